package inventory

import (
	"context"

	"github.com/erazemk/popis/internal/model"
)

// RecordStore is the remote document collection holding inventory records.
// Implementations report failures wrapped around model.ErrStoreUnavailable,
// model.ErrStoreWrite or model.ErrNotFound.
type RecordStore interface {
	// List returns every record.
	List(ctx context.Context) ([]model.InventoryRecord, error)

	// Create stores a record without an ID and returns the ID it was given.
	Create(ctx context.Context, rec model.InventoryRecord) (string, error)

	// Update overwrites the full record stored under id.
	Update(ctx context.Context, id string, rec model.InventoryRecord) error

	// SetImageURL patches only the image reference of a record.
	SetImageURL(ctx context.Context, id, url string) error

	// Delete removes a record.
	Delete(ctx context.Context, id string) error
}

// BlobStore is the object store holding uploaded images. Failures wrap
// model.ErrUploadError or model.ErrNotFound.
type BlobStore interface {
	// Upload stores data under key, replacing any existing object.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// PublicURL returns a durable URL for an existing object.
	PublicURL(ctx context.Context, key string) (string, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error
}
