package inventory

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/model"
)

// ImageFile is an image chosen for upload. Size and ContentType are what the
// client declared; the body is checked against Size again while reading.
type ImageFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadImage stores an image and points a record at it. With a targetID the
// record's stored imageUrl is patched; without one only the open form
// changes and the URL is saved on the next Submit.
//
// Files that are not JPEG or PNG, or larger than imaging.MaxUploadSize, are
// rejected with model.ErrUploadRejected before the blob store is called.
func (c *Controller) UploadImage(ctx context.Context, file ImageFile, targetID string) error {
	contentType, ok := imaging.CanonicalMIME(file.ContentType)
	if !ok {
		return c.reject(file, "Please upload only JPG or PNG images.", "unsupported type %q", file.ContentType)
	}
	if file.Size > imaging.MaxUploadSize {
		return c.reject(file, "File size must be less than 5MB.", "size %d exceeds limit", file.Size)
	}

	c.mu.Lock()
	formOpen, known := c.form.Open(), c.indexLocked(targetID) >= 0
	c.mu.Unlock()
	switch {
	case targetID == "" && !formOpen:
		return ErrFormClosed
	case targetID != "" && !known:
		err := fmt.Errorf("record %s: %w", targetID, model.ErrNotFound)
		c.logger.Warn("upload target missing", "id", targetID)
		c.notify(NoticeError, "Item no longer exists.")
		return err
	}

	if err := c.begin(actionUpload); err != nil {
		return err
	}
	defer c.end(actionUpload)

	data, err := io.ReadAll(io.LimitReader(file.Body, imaging.MaxUploadSize+1))
	if err != nil {
		return c.fail("upload", fmt.Errorf("%w: reading %s: %w", model.ErrUploadError, file.Name, err),
			"Error uploading image: could not read file.")
	}
	if len(data) > imaging.MaxUploadSize {
		return c.reject(file, "File size must be less than 5MB.", "body exceeds limit")
	}

	key, err := c.keys(c.now(), file.Name, contentType)
	if err != nil {
		return c.fail("upload", fmt.Errorf("%w: %w", model.ErrUploadError, err), "Error uploading image.")
	}
	if err := c.blobs.Upload(ctx, key, data, contentType); err != nil {
		return c.fail("upload", err, "Error uploading image: "+err.Error(), "key", key)
	}
	url, err := c.blobs.PublicURL(ctx, key)
	if err != nil {
		return c.fail("upload", err, "Error uploading image: failed to get public URL.", "key", key)
	}

	if targetID != "" {
		if err := c.records.SetImageURL(ctx, targetID, url); err != nil {
			c.discard(key)
			return c.fail("upload", err, "Error uploading image: could not update item.", "id", targetID, "key", key)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if targetID != "" {
		if i := c.indexLocked(targetID); i >= 0 {
			c.items[i].ImageURL = url
		}
		// Keep an open edit of the same record from writing the old URL back.
		if c.form.Mode == FormEditing && c.form.TargetID == targetID {
			c.form.Record.ImageURL = url
		}
	} else if c.form.Open() {
		c.form.Record.ImageURL = url
	} else {
		c.logger.Warn("form closed before upload finished", "key", key)
	}

	c.logger.Info("image uploaded", "key", key, "id", targetID, "bytes", len(data))
	return nil
}

// ClearFormImage removes the image reference from the open form. The blob
// itself is left in place.
func (c *Controller) ClearFormImage() error {
	return c.Apply(model.SetField{Name: model.FieldImageURL, Value: ""})
}

// discard removes a blob nothing will reference. It runs on its own context
// so a cancelled request does not leave the object behind.
func (c *Controller) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.blobs.Delete(ctx, key); err != nil {
		c.logger.Error("failed to remove unreferenced image", "key", key, "error", err)
		return
	}
	c.logger.Info("removed unreferenced image", "key", key)
}

func (c *Controller) reject(file ImageFile, msg, format string, args ...any) error {
	err := fmt.Errorf("%w: %s", model.ErrUploadRejected, fmt.Sprintf(format, args...))
	c.logger.Warn("upload rejected", "file", file.Name, "error", err)
	c.notify(NoticeWarn, msg)
	return err
}

// NewImageKey returns a storage key made of the upload time in milliseconds,
// a random suffix and the file's extension.
func NewImageKey(now time.Time, name, contentType string) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating key suffix: %w", err)
	}
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
	return fmt.Sprintf("%d_%s%s", now.UnixMilli(), suffix, extension(name, contentType)), nil
}

// extension returns the lowercased extension of name, or one derived from
// the content type when name has none or an unusable one.
func extension(name, contentType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) >= 2 && len(ext) <= 6 && strings.Trim(ext[1:], "abcdefghijklmnopqrstuvwxyz0123456789") == "" {
		return ext
	}
	if contentType == imaging.MIMEPNG {
		return ".png"
	}
	return ".jpg"
}
