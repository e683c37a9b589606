package blob

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

// DBBucket keeps objects in the blobs table of the application database.
type DBBucket struct {
	db *sql.DB
}

// NewDBBucket returns a bucket over an open database with the schema applied.
func NewDBBucket(db *sql.DB) *DBBucket {
	return &DBBucket{db: db}
}

// Put stores an object, replacing any object with the same key.
func (b *DBBucket) Put(ctx context.Context, obj *Object) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, content_type, size, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		     data = excluded.data,
		     content_type = excluded.content_type,
		     size = excluded.size,
		     checksum = excluded.checksum,
		     created_at = excluded.created_at`,
		obj.Key, obj.Data, obj.ContentType, obj.Size, obj.Checksum, obj.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	return nil
}

// Get returns an object with its data.
func (b *DBBucket) Get(ctx context.Context, key string) (*Object, error) {
	obj := &Object{Key: key}
	err := b.db.QueryRowContext(ctx,
		`SELECT data, content_type, size, checksum, created_at FROM blobs WHERE key = ?`, key,
	).Scan(&obj.Data, &obj.ContentType, &obj.Size, &obj.Checksum, &obj.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting blob: %w", err)
	}
	return obj, nil
}

// Delete removes an object.
func (b *DBBucket) Delete(ctx context.Context, key string) error {
	result, err := b.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	}
	return nil
}
