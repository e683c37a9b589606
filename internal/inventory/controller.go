// Package inventory holds the working set of inventory records and the edit
// form, and is the only caller of the record and blob stores.
//
// Every change to the in-memory list happens after the store has confirmed
// the write, so a failed call leaves the list exactly as it was.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/popis/internal/model"
)

// Controller errors.
var (
	ErrBusy         = errors.New("action already in progress")
	ErrClosed       = errors.New("controller closed")
	ErrFormClosed   = errors.New("no form is open")
	ErrFormOpen     = errors.New("a form is already open")
	ErrNotConfirmed = errors.New("not confirmed")
)

// DeletePrompt is the question put to the user before a delete.
const DeletePrompt = "Are you sure you want to delete this item?"

type action string

const (
	actionLoad   action = "load"
	actionSubmit action = "submit"
	actionDelete action = "delete"
	actionUpload action = "upload"
)

// Controller owns the record list, the edit form and view state for one
// session. It is safe for concurrent use; store calls are made without
// holding the lock, and a second trigger of an action that is still running
// is refused with ErrBusy.
type Controller struct {
	records RecordStore
	blobs   BlobStore
	logger  *slog.Logger
	now     func() time.Time
	keys    func(now time.Time, name, contentType string) (string, error)

	mu       sync.Mutex
	items    []model.InventoryRecord
	form     Form
	formSeq  uint64
	search   string
	image    string
	notices  []Notice
	inflight map[action]bool
	closed   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the time source used for timestamps and image keys.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New returns a controller with an empty list and a closed form.
func New(records RecordStore, blobs BlobStore, opts ...Option) *Controller {
	c := &Controller{
		records:  records,
		blobs:    blobs,
		logger:   slog.Default(),
		now:      time.Now,
		keys:     NewImageKey,
		form:     closedForm(),
		inflight: make(map[action]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close marks the controller as no longer live. Results of store calls still
// in flight are discarded and further actions return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// begin claims an action, refusing re-entrant triggers.
func (c *Controller) begin(a action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.inflight[a] {
		return ErrBusy
	}
	c.inflight[a] = true
	return nil
}

func (c *Controller) end(a action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, a)
}

// Load replaces the list with the records in the store. On failure the
// previous list is kept.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.begin(actionLoad); err != nil {
		return err
	}
	defer c.end(actionLoad)

	records, err := c.records.List(ctx)
	if err != nil {
		return c.fail("load", err, "Error loading inventory items. Please refresh the page.")
	}

	items := make([]model.InventoryRecord, len(records))
	for i, rec := range records {
		rec = rec.Clone()
		rec.Normalize()
		items[i] = rec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.items = items
	c.logger.Info("inventory loaded", "records", len(items))
	return nil
}

// BeginCreate opens the form with default values.
func (c *Controller) BeginCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.form.Open() {
		return ErrFormOpen
	}
	c.setForm(Form{Mode: FormCreating, Record: model.NewRecord()})
	return nil
}

// BeginEdit opens the form on a copy of the record with the given ID,
// replacing whatever the form held. No lock is taken against other editors.
func (c *Controller) BeginEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	c.setForm(Form{Mode: FormEditing, TargetID: id, Record: c.items[i].Clone()})
	return nil
}

// Cancel closes the form and discards its contents.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setForm(closedForm())
}

// Apply applies one edit to the open form.
func (c *Controller) Apply(e model.Edit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.form.Open() {
		return ErrFormClosed
	}
	rec, err := c.form.Record.Apply(e)
	if err != nil {
		return err
	}
	c.form.Record = rec
	return nil
}

// Submit writes the form to the store: an update when editing an existing
// record, a create otherwise. On success the list is updated from the
// confirmed write and the form is closed; on failure nothing changes.
func (c *Controller) Submit(ctx context.Context) error {
	if err := c.begin(actionSubmit); err != nil {
		return err
	}
	defer c.end(actionSubmit)

	c.mu.Lock()
	form := c.form.clone()
	seq := c.formSeq
	c.mu.Unlock()

	if !form.Open() {
		return ErrFormClosed
	}

	rec := form.Record
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		c.notify(NoticeWarn, "Item not saved: "+err.Error())
		c.logger.Warn("record rejected", "error", err)
		return err
	}
	if rec.BreakdownMismatch() {
		c.notify(NoticeWarn, fmt.Sprintf("Used breakdown adds up to %d, not %d.", rec.BreakdownSum(), rec.QtyUsed))
	}

	now := c.now()
	rec.UpdatedAt = now

	if form.Mode == FormEditing {
		rec.ID = form.TargetID
		if err := c.records.Update(ctx, form.TargetID, rec); err != nil {
			return c.fail("update", err, "Error saving item. Please try again.", "id", form.TargetID)
		}
	} else {
		rec.CreatedAt = now
		rec.ID = ""
		id, err := c.records.Create(ctx, rec)
		if err != nil {
			return c.fail("create", err, "Error saving item. Please try again.")
		}
		rec.ID = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if i := c.indexLocked(rec.ID); i >= 0 {
		c.items[i] = rec
	} else if form.Mode == FormCreating {
		c.items = append(c.items, rec)
	}
	// Edits opened while the write was in flight are left alone.
	if c.formSeq == seq {
		c.setForm(closedForm())
	}

	c.logger.Info("record saved", "id", rec.ID, "mode", form.Mode.String())
	c.notices = append(c.notices, Notice{Level: NoticeInfo, Message: "Item saved."})
	return nil
}

// Delete removes a record after confirm approves DeletePrompt. A nil confirm
// never approves.
func (c *Controller) Delete(ctx context.Context, id string, confirm func(prompt string) bool) error {
	if confirm == nil || !confirm(DeletePrompt) {
		return ErrNotConfirmed
	}
	if err := c.begin(actionDelete); err != nil {
		return err
	}
	defer c.end(actionDelete)

	if err := c.records.Delete(ctx, id); err != nil {
		msg := "Error deleting item. Please try again."
		if errors.Is(err, model.ErrNotFound) {
			msg = "Item no longer exists."
		}
		return c.fail("delete", err, msg, "id", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.items = slices.DeleteFunc(c.items, func(rec model.InventoryRecord) bool { return rec.ID == id })
	if c.form.Mode == FormEditing && c.form.TargetID == id {
		c.setForm(closedForm())
	}
	c.logger.Info("record deleted", "id", id)
	return nil
}

// setForm replaces the form. Callers hold c.mu.
func (c *Controller) setForm(f Form) {
	c.form = f
	c.formSeq++
}

func (c *Controller) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(c.items, func(rec model.InventoryRecord) bool { return rec.ID == id })
}

// fail logs a store failure, queues a notice and returns err.
func (c *Controller) fail(op string, err error, msg string, attrs ...any) error {
	c.logger.Error("inventory "+op+" failed", append(attrs, "error", err)...)
	c.notify(NoticeError, msg)
	return err
}
