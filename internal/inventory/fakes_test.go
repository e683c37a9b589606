package inventory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/popis/internal/model"
)

// fakeRecords is an in-memory RecordStore. Setting err makes every call
// fail; block, when set, is received from before each call returns.
type fakeRecords struct {
	mu     sync.Mutex
	docs   map[string]model.InventoryRecord
	order  []string
	nextID int
	calls  map[string]int
	err    error
	block  chan struct{}
}

func newFakeRecords(recs ...model.InventoryRecord) *fakeRecords {
	f := &fakeRecords{docs: map[string]model.InventoryRecord{}, calls: map[string]int{}}
	for _, rec := range recs {
		f.nextID++
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("rec-%d", f.nextID)
		}
		f.docs[rec.ID] = rec
		f.order = append(f.order, rec.ID)
	}
	return f
}

func (f *fakeRecords) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeRecords) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRecords) List(ctx context.Context) ([]model.InventoryRecord, error) {
	if err := f.enter("list"); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.InventoryRecord, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.docs[id].Clone())
	}
	return out, nil
}

func (f *fakeRecords) Create(ctx context.Context, rec model.InventoryRecord) (string, error) {
	if err := f.enter("create"); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	f.docs[rec.ID] = rec.Clone()
	f.order = append(f.order, rec.ID)
	return rec.ID, nil
}

func (f *fakeRecords) Update(ctx context.Context, id string, rec model.InventoryRecord) error {
	if err := f.enter("update"); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	rec.ID = id
	f.docs[id] = rec.Clone()
	return nil
}

func (f *fakeRecords) SetImageURL(ctx context.Context, id, url string) error {
	if err := f.enter("setImageURL"); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	rec.ImageURL = url
	f.docs[id] = rec
	return nil
}

func (f *fakeRecords) Delete(ctx context.Context, id string) error {
	if err := f.enter("delete"); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	delete(f.docs, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
	return nil
}

// fakeBlobs records every upload.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	keys    []string
	err     error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.err != nil {
		return fmt.Errorf("%w: %w", model.ErrUploadError, f.err)
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) PublicURL(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("object %s: %w", key, model.ErrNotFound)
	}
	return "/blobs/" + key, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("object %s: %w", key, model.ErrNotFound)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobs) stored() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

func (f *fakeBlobs) uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.keys)
}

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, records *fakeRecords, blobs *fakeBlobs) *Controller {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(records, blobs, WithLogger(logger), WithClock(func() time.Time { return testTime }))
}

func record(typ, desc string, status model.Status, total, used, excess int) model.InventoryRecord {
	rec := model.NewRecord()
	rec.Type = typ
	rec.Description = desc
	rec.Status = status
	rec.QtyTotal = total
	rec.QtyUsed = used
	rec.QtyExcess = excess
	return rec
}

func yes(string) bool { return true }
func no(string) bool  { return false }
