package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/model"
)

// DirBucket keeps objects as files in a directory. Only the bytes are kept,
// so the content type is sniffed from them on read.
type DirBucket struct {
	dir string
}

// NewDirBucket returns a bucket rooted at dir, creating it if needed.
func NewDirBucket(dir string) (*DirBucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &DirBucket{dir: dir}, nil
}

func (b *DirBucket) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("blob %q: %w", key, model.ErrNotFound)
	}
	return filepath.Join(b.dir, key), nil
}

// Put writes an object atomically, replacing any object with the same key.
func (b *DirBucket) Put(_ context.Context, obj *Object) error {
	path, err := b.path(obj.Key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving blob into place: %w", err)
	}
	return nil
}

// Get reads an object.
func (b *DirBucket) Get(_ context.Context, key string) (*Object, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}

	return &Object{
		Key:         key,
		ContentType: sniffContentType(data),
		Size:        info.Size(),
		Checksum:    Checksum(data),
		Data:        data,
		CreatedAt:   info.ModTime(),
	}, nil
}

// Delete removes an object.
func (b *DirBucket) Delete(_ context.Context, key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

func sniffContentType(data []byte) string {
	if ct, ok := imaging.CanonicalMIME(http.DetectContentType(data)); ok {
		return ct
	}
	return "application/octet-stream"
}
