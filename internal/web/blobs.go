package web

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/erazemk/popis/internal/model"
	webembed "github.com/erazemk/popis/web"
)

// BlobGet handles GET /blobs/{key}. Unknown keys and bad signatures get the
// placeholder image, so a record pointing at a missing blob still renders.
func (s *Server) BlobGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	obj, err := s.Blobs.Open(r.Context(), key, r.URL.Query().Get("sig"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			slog.Warn("blob not found", "key", key)
		} else {
			slog.Error("failed to open blob", "key", key, "error", err)
		}
		servePlaceholder(w, r)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if obj.Checksum != "" {
		w.Header().Set("ETag", `"`+obj.Checksum+`"`)
	}
	http.ServeContent(w, r, "", obj.CreatedAt, bytes.NewReader(obj.Data))
}

func servePlaceholder(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(webembed.StaticFS(), "placeholder.svg")
	if err != nil {
		slog.Error("failed to read placeholder", "error", err)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write placeholder", "error", err)
	}
}
