package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/model"
)

// maxRequestSize bounds upload request bodies. Files between
// imaging.MaxUploadSize and this are let through so the controller can
// reject them with a notice.
const maxRequestSize = 2 * imaging.MaxUploadSize

// multipartMemory is how much of a multipart body is kept in memory.
const multipartMemory = 1 << 20

// Index handles GET /. A q parameter, even an empty one, sets the search.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("q") {
		s.Inventory.SetSearch(r.URL.Query().Get("q"))
	}

	view := s.Inventory.View()
	s.Templates.Render(w, "index.html", &struct {
		PageData
		View              inventory.View
		Editing           bool
		Statuses          []model.Status
		ConditionStatuses []model.ConditionStatus
		DeletePrompt      string
	}{
		PageData:          PageData{Title: "Inventory Management", Notices: s.Inventory.TakeNotices()},
		View:              view,
		Editing:           view.Form.Mode == inventory.FormEditing,
		Statuses:          model.Statuses,
		ConditionStatuses: model.ConditionStatuses,
		DeletePrompt:      inventory.DeletePrompt,
	})
}

// Reload handles POST /reload.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	s.back(w, r, "reload", s.Inventory.Load(r.Context()))
}

// Export handles GET /export.csv.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inventory.ExportFilename))
	if err := s.Inventory.ExportSnapshot(w); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

// FormNew handles POST /form/new.
func (s *Server) FormNew(w http.ResponseWriter, r *http.Request) {
	s.back(w, r, "new", s.Inventory.BeginCreate())
}

// RecordEdit handles POST /records/{id}/edit.
func (s *Server) RecordEdit(w http.ResponseWriter, r *http.Request) {
	s.back(w, r, "edit", s.Inventory.BeginEdit(r.PathValue("id")))
}

// FormSubmit handles POST /form. The posted fields are applied to the open
// form first, then the action button that was pressed.
func (s *Server) FormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		return
	}

	action := r.PostFormValue("action")
	if action == "cancel" {
		s.Inventory.Cancel()
		s.back(w, r, action, nil)
		return
	}

	if !s.applyForm(w, r) {
		return
	}

	var err error
	switch {
	case action == "save" || action == "":
		err = s.Inventory.Submit(r.Context())
	case action == "add-row":
		err = s.Inventory.Apply(model.AddBreakdown{})
	case strings.HasPrefix(action, "remove-row-"):
		i, convErr := strconv.Atoi(strings.TrimPrefix(action, "remove-row-"))
		if convErr != nil {
			http.Error(w, "invalid row", http.StatusBadRequest)
			return
		}
		err = s.Inventory.Apply(model.RemoveBreakdown{Index: i})
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	if errors.Is(err, model.ErrInvalidEdit) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.back(w, r, action, err)
}

// FormImage handles POST /form/image. The image is attached to the open
// form and saved with it on the next submit.
func (s *Server) FormImage(w http.ResponseWriter, r *http.Request) {
	file, closeFile, ok := readImage(w, r)
	if !ok {
		return
	}
	defer closeFile()

	if !s.applyForm(w, r) {
		return
	}
	s.back(w, r, "upload", s.Inventory.UploadImage(r.Context(), file, ""))
}

// FormImageClear handles POST /form/image/clear.
func (s *Server) FormImageClear(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		return
	}
	if !s.applyForm(w, r) {
		return
	}
	s.back(w, r, "clear-image", s.Inventory.ClearFormImage())
}

// RecordImage handles POST /records/{id}/image. The record is patched in the
// store right away.
func (s *Server) RecordImage(w http.ResponseWriter, r *http.Request) {
	file, closeFile, ok := readImage(w, r)
	if !ok {
		return
	}
	defer closeFile()

	s.back(w, r, "upload", s.Inventory.UploadImage(r.Context(), file, r.PathValue("id")))
}

// RecordDelete handles POST /records/{id}/delete. The page asks the user
// first and posts confirm=yes only when they agree.
func (s *Server) RecordDelete(w http.ResponseWriter, r *http.Request) {
	confirmed := r.PostFormValue("confirm") == "yes"
	err := s.Inventory.Delete(r.Context(), r.PathValue("id"), func(string) bool { return confirmed })
	s.back(w, r, "delete", err)
}

// RecordView handles POST /records/{id}/view.
func (s *Server) RecordView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, rec := range s.Inventory.Records() {
		if rec.ID == id && rec.ImageURL != "" {
			s.Inventory.ViewImage(rec.ImageURL)
			break
		}
	}
	s.back(w, r, "view", nil)
}

// ViewClose handles POST /view/close.
func (s *Server) ViewClose(w http.ResponseWriter, r *http.Request) {
	s.Inventory.CloseImage()
	s.back(w, r, "close", nil)
}

// applyForm applies the posted form fields to the open form. It writes an
// error response and returns false on a malformed edit.
func (s *Server) applyForm(w http.ResponseWriter, r *http.Request) bool {
	rows := len(s.Inventory.View().Form.Record.QtyUsedBreakdown)
	for _, e := range formEdits(r.PostForm, rows) {
		err := s.Inventory.Apply(e)
		switch {
		case err == nil:
		case errors.Is(err, inventory.ErrFormClosed):
			// Stale page; the form was closed elsewhere.
			s.back(w, r, "apply", err)
			return false
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return false
		}
	}
	return true
}

// formEdits turns posted fields into form edits. Fields that were not posted
// are left alone. Breakdown rows past rows are ignored.
func formEdits(form url.Values, rows int) []model.Edit {
	var edits []model.Edit

	fields := append(append([]model.Field{}, model.TextFields...), model.QtyFields...)
	fields = append(fields, model.FieldStatus)
	for _, f := range fields {
		if form.Has(string(f)) {
			edits = append(edits, model.SetField{Name: f, Value: form.Get(string(f))})
		}
	}

	for i := range model.NumConditions {
		if key := fmt.Sprintf("cond_qty_%d", i); form.Has(key) {
			edits = append(edits, model.SetConditionQty{Index: i, Value: form.Get(key)})
		}
		if key := fmt.Sprintf("cond_status_%d", i); form.Has(key) {
			edits = append(edits, model.SetConditionStatus{Index: i, Value: form.Get(key)})
		}
	}

	for i := range rows {
		if key := fmt.Sprintf("row_cond_%d", i); form.Has(key) {
			edits = append(edits, model.SetBreakdownCondition{Index: i, Value: form.Get(key)})
		}
		if key := fmt.Sprintf("row_qty_%d", i); form.Has(key) {
			edits = append(edits, model.SetBreakdownQty{Index: i, Value: form.Get(key)})
		}
	}

	return edits
}

// parseForm parses url-encoded and multipart bodies alike, writing a 400 on
// failure.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "invalid form", http.StatusBadRequest)
		}
	}
	return err
}

// readImage parses a multipart upload and returns its "image" file.
func readImage(w http.ResponseWriter, r *http.Request) (inventory.ImageFile, func(), bool) {
	if err := parseForm(w, r); err != nil {
		return inventory.ImageFile{}, nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image required", http.StatusBadRequest)
		return inventory.ImageFile{}, nil, false
	}

	return inventory.ImageFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { file.Close() }, true
}

// back redirects to the page. Errors from the stores have already been
// logged and turned into notices by the controller; the rest are ignored
// triggers and only logged here.
func (s *Server) back(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, inventory.ErrBusy),
		errors.Is(err, inventory.ErrFormClosed),
		errors.Is(err, inventory.ErrFormOpen),
		errors.Is(err, inventory.ErrNotConfirmed),
		errors.Is(err, inventory.ErrClosed):
		slog.Warn("action ignored", "action", action, "error", err)
	case errors.Is(err, model.ErrNotFound) && (action == "edit" || action == "delete"):
		slog.Warn("record not found", "action", action, "id", r.PathValue("id"))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
