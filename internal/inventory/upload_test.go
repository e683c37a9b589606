package inventory

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/popis/internal/model"
)

func imageFile(name, contentType string, size int) ImageFile {
	return ImageFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(size),
		Body:        bytes.NewReader(make([]byte, size)),
	}
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name string
		file ImageFile
	}{
		{"too large", imageFile("big.png", "image/png", 6<<20)},
		{"gif", imageFile("anim.gif", "image/gif", 1024)},
		{"no type", imageFile("file", "", 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := newFakeBlobs()
			c := newTestController(t, newFakeRecords(), blobs)
			require.NoError(t, c.BeginCreate())

			err := c.UploadImage(context.Background(), tt.file, "")
			require.ErrorIs(t, err, model.ErrUploadRejected)
			assert.Empty(t, blobs.uploads())
			assert.Empty(t, c.View().Form.Record.ImageURL)

			notices := c.TakeNotices()
			require.Len(t, notices, 1)
			assert.Equal(t, NoticeWarn, notices[0].Level)
		})
	}
}

func TestUploadBodyLargerThanDeclared(t *testing.T) {
	blobs := newFakeBlobs()
	c := newTestController(t, newFakeRecords(), blobs)
	require.NoError(t, c.BeginCreate())

	file := imageFile("lie.png", "image/png", 6<<20)
	file.Size = 1024

	require.ErrorIs(t, c.UploadImage(context.Background(), file, ""), model.ErrUploadRejected)
	assert.Empty(t, blobs.uploads())
}

func TestUploadToForm(t *testing.T) {
	blobs := newFakeBlobs()
	records := newFakeRecords()
	c := newTestController(t, records, blobs)
	require.NoError(t, c.BeginCreate())

	require.NoError(t, c.UploadImage(context.Background(), imageFile("photo.png", "image/png", 2<<20), ""))

	keys := blobs.uploads()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasSuffix(keys[0], ".png"), keys[0])
	assert.Equal(t, "/blobs/"+keys[0], c.View().Form.Record.ImageURL)
	assert.Zero(t, records.count("setImageURL"), "form uploads are saved on submit")

	require.NoError(t, c.UploadImage(context.Background(), imageFile("photo.png", "image/png", 2<<20), ""))
	keys = blobs.uploads()
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, "/blobs/"+keys[1], c.Records()[0].ImageURL)
}

func TestUploadWithoutForm(t *testing.T) {
	blobs := newFakeBlobs()
	c := newTestController(t, newFakeRecords(), blobs)

	err := c.UploadImage(context.Background(), imageFile("photo.jpg", "image/jpeg", 1024), "")
	require.ErrorIs(t, err, ErrFormClosed)
	assert.Empty(t, blobs.uploads())
}

func TestUploadToRecord(t *testing.T) {
	c, records := loadedController(t,
		record("Cable", "", model.StatusAvailable, 1, 0, 0),
		record("Screw", "", model.StatusUsed, 2, 2, 0),
	)
	require.NoError(t, c.BeginEdit("rec-2"))

	require.NoError(t, c.UploadImage(context.Background(), imageFile("p.jpg", "image/jpg", 1024), "rec-2"))

	url := c.Records()[1].ImageURL
	assert.True(t, strings.HasPrefix(url, "/blobs/"), url)
	assert.True(t, strings.HasSuffix(url, ".jpg"), url)
	assert.Equal(t, url, records.docs["rec-2"].ImageURL)
	assert.Empty(t, c.Records()[0].ImageURL)
	assert.Equal(t, url, c.View().Form.Record.ImageURL)
	assert.Zero(t, records.count("update"))
}

func TestUploadFailures(t *testing.T) {
	t.Run("blob store", func(t *testing.T) {
		c, records := loadedController(t, record("Cable", "", model.StatusAvailable, 1, 0, 0))
		c.blobs.(*fakeBlobs).err = errors.New("bucket full")

		err := c.UploadImage(context.Background(), imageFile("p.png", "image/png", 1024), "rec-1")
		require.ErrorIs(t, err, model.ErrUploadError)
		assert.Zero(t, records.count("setImageURL"))
		assert.Empty(t, c.Records()[0].ImageURL)
	})

	t.Run("record store", func(t *testing.T) {
		c, records := loadedController(t, record("Cable", "", model.StatusAvailable, 1, 0, 0))
		blobs := c.blobs.(*fakeBlobs)
		records.err = errors.New("offline")

		err := c.UploadImage(context.Background(), imageFile("p.png", "image/png", 1024), "rec-1")
		require.ErrorIs(t, err, model.ErrStoreWrite)
		assert.Empty(t, c.Records()[0].ImageURL)
		assert.Len(t, blobs.uploads(), 1)
		assert.Empty(t, blobs.stored(), "unreferenced image must be removed")
	})

	t.Run("record deleted in store", func(t *testing.T) {
		c, records := loadedController(t, record("Cable", "", model.StatusAvailable, 1, 0, 0))
		blobs := c.blobs.(*fakeBlobs)
		delete(records.docs, "rec-1")

		err := c.UploadImage(context.Background(), imageFile("p.png", "image/png", 1024), "rec-1")
		require.ErrorIs(t, err, model.ErrNotFound)
		assert.Empty(t, blobs.stored())
	})

	t.Run("unknown target", func(t *testing.T) {
		c, records := loadedController(t)
		blobs := c.blobs.(*fakeBlobs)

		err := c.UploadImage(context.Background(), imageFile("p.png", "image/png", 1024), "gone")
		require.ErrorIs(t, err, model.ErrNotFound)
		assert.Empty(t, blobs.uploads())
		assert.Zero(t, records.count("setImageURL"))

		notices := c.TakeNotices()
		require.Len(t, notices, 1)
		assert.Equal(t, NoticeError, notices[0].Level)
	})
}

func TestClearFormImage(t *testing.T) {
	rec := record("Cable", "", model.StatusAvailable, 1, 0, 0)
	rec.ImageURL = "/blobs/x.png"
	c, _ := loadedController(t, rec)

	assert.ErrorIs(t, c.ClearFormImage(), ErrFormClosed)

	require.NoError(t, c.BeginEdit("rec-1"))
	require.NoError(t, c.ClearFormImage())
	assert.Empty(t, c.View().Form.Record.ImageURL)
	assert.Equal(t, "/blobs/x.png", c.Records()[0].ImageURL)
}

func TestNewImageKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name, contentType, suffix string
	}{
		{"photo.PNG", "image/png", ".png"},
		{"photo.jpeg", "image/jpeg", ".jpeg"},
		{"noext", "image/png", ".png"},
		{"noext", "image/jpeg", ".jpg"},
		{"weird.p/../ng", "image/png", ".png"},
		{"long.extension", "image/jpeg", ".jpg"},
	}

	seen := map[string]bool{}
	for _, tt := range tests {
		key, err := NewImageKey(now, tt.name, tt.contentType)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, "1700000000123_"), key)
		assert.True(t, strings.HasSuffix(key, tt.suffix), "%s -> %s", tt.name, key)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}
