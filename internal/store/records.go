package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/popis/internal/model"
)

// timeLayout sorts lexicographically in UTC, unlike RFC3339Nano which trims
// trailing zeros.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Records is a document collection of inventory records kept in SQLite.
type Records struct {
	db *sqlx.DB
}

// NewRecords returns a record store over an open database with the schema applied.
func NewRecords(db *sql.DB) *Records {
	return &Records{db: sqlx.NewDb(db, "sqlite")}
}

type recordRow struct {
	ID        string `db:"id"`
	Doc       string `db:"doc"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// List returns all records in creation order.
func (s *Records) List(ctx context.Context) ([]model.InventoryRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, doc, created_at, updated_at FROM records ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %w", model.ErrStoreUnavailable, err)
	}

	records := make([]model.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecord(row.ID, []byte(row.Doc))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Create stores a new record under a generated ID and returns the ID.
func (s *Records) Create(ctx context.Context, rec model.InventoryRecord) (string, error) {
	doc, err := encodeRecord(rec)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}

	row := recordRow{
		ID:        uuid.NewString(),
		Doc:       string(doc),
		CreatedAt: formatTime(rec.CreatedAt),
		UpdatedAt: formatTime(rec.UpdatedAt),
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO records (id, doc, created_at, updated_at)
		 VALUES (:id, :doc, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return "", fmt.Errorf("%w: creating record: %w", model.ErrStoreWrite, err)
	}
	return row.ID, nil
}

// Update overwrites the whole document of an existing record.
func (s *Records) Update(ctx context.Context, id string, rec model.InventoryRecord) error {
	doc, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE records SET doc = ?, updated_at = ? WHERE id = ?`,
		string(doc), formatTime(rec.UpdatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("%w: updating record: %w", model.ErrStoreWrite, err)
	}
	return expectOneRow(result, id)
}

// SetImageURL patches only the imageUrl field of a record's document.
func (s *Records) SetImageURL(ctx context.Context, id, url string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE records SET doc = json_set(doc, '$.imageUrl', ?) WHERE id = ?`,
		url, id,
	)
	if err != nil {
		return fmt.Errorf("%w: setting record image: %w", model.ErrStoreWrite, err)
	}
	return expectOneRow(result, id)
}

// Delete removes a record. There is no soft delete.
func (s *Records) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting record: %w", model.ErrStoreWrite, err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking affected rows: %w", model.ErrStoreWrite, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// encodeRecord serialises a record body. The ID is the document key, never
// part of the body.
func encodeRecord(rec model.InventoryRecord) ([]byte, error) {
	rec = rec.Clone()
	rec.ID = ""
	rec.Normalize()
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return doc, nil
}

func decodeRecord(id string, doc []byte) (model.InventoryRecord, error) {
	var rec model.InventoryRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return model.InventoryRecord{}, fmt.Errorf("decoding record %s: %w", id, err)
	}
	rec.ID = id
	rec.Normalize()
	return rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}
