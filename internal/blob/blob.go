// Package blob stores uploaded images under generated keys and hands out
// durable public URLs for them.
package blob

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/model"
)

// Object is a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Checksum    string
	Data        []byte
	CreatedAt   time.Time
}

// Bucket is where objects are kept. Get and Delete return an error matching
// model.ErrNotFound for unknown keys.
type Bucket interface {
	Put(ctx context.Context, obj *Object) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]{0,127}$`)

// ValidKey reports whether key is safe to use as an object key.
func ValidKey(key string) bool {
	return validKey.MatchString(key) && !strings.Contains(key, "..")
}

// Store is the upload adapter: it normalises images, writes them to a bucket
// and signs public URLs.
type Store struct {
	bucket  Bucket
	signer  *Signer
	baseURL string
}

// NewStore returns a store writing to bucket. Public URLs are baseURL + "/" +
// key, signed with secret.
func NewStore(bucket Bucket, secret, baseURL string) *Store {
	return &Store{
		bucket:  bucket,
		signer:  NewSigner(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload stores data under key, replacing any existing object.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: invalid key %q", model.ErrUploadError, key)
	}

	img, err := imaging.Process(data, contentType)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrUploadError, err)
	}

	obj := &Object{
		Key:         key,
		ContentType: img.MIME,
		Size:        int64(len(img.Data)),
		Checksum:    Checksum(img.Data),
		Data:        img.Data,
		CreatedAt:   time.Now(),
	}
	if err := s.bucket.Put(ctx, obj); err != nil {
		return fmt.Errorf("%w: storing %s: %w", model.ErrUploadError, key, err)
	}
	return nil
}

// PublicURL returns the signed URL of an existing object.
func (s *Store) PublicURL(ctx context.Context, key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("blob %q: %w", key, model.ErrNotFound)
	}
	if _, err := s.bucket.Get(ctx, key); err != nil {
		return "", err
	}

	sig, err := s.signer.Sign(key)
	if err != nil {
		return "", fmt.Errorf("signing url for %s: %w", key, err)
	}
	return s.baseURL + "/" + url.PathEscape(key) + "?sig=" + url.QueryEscape(sig), nil
}

// Open returns the object behind a public URL after checking its signature.
// A bad signature is reported as not found.
func (s *Store) Open(ctx context.Context, key, sig string) (*Object, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("blob %q: %w", key, model.ErrNotFound)
	}
	if err := s.signer.Verify(key, sig); err != nil {
		return nil, fmt.Errorf("blob %s: %w: %w", key, model.ErrNotFound, err)
	}
	return s.bucket.Get(ctx, key)
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("blob %q: %w", key, model.ErrNotFound)
	}
	if err := s.bucket.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
