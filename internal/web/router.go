// Package web is the single-page presentation layer. Every button posts an
// intent to the inventory controller and redirects back to the page, which
// renders the controller's current view.
package web

import (
	"context"
	"net/http"

	"github.com/erazemk/popis/internal/blob"
	"github.com/erazemk/popis/internal/inventory"
	webembed "github.com/erazemk/popis/web"
)

// BlobSource serves stored images behind signed URLs.
type BlobSource interface {
	Open(ctx context.Context, key, sig string) (*blob.Object, error)
}

// Server holds all dependencies for page handlers.
type Server struct {
	Inventory *inventory.Controller
	Blobs     BlobSource
	Templates *Templates
}

// NewRouter creates the router with all page routes registered.
func NewRouter(ctrl *inventory.Controller, blobs BlobSource) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Inventory: ctrl,
		Blobs:     blobs,
		Templates: templates,
	}

	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	mux.HandleFunc("GET /blobs/{key}", s.BlobGet)

	mux.HandleFunc("GET /{$}", s.Index)
	mux.HandleFunc("POST /reload", s.Reload)
	mux.HandleFunc("GET /export.csv", s.Export)

	mux.HandleFunc("POST /form/new", s.FormNew)
	mux.HandleFunc("POST /form", s.FormSubmit)
	mux.HandleFunc("POST /form/image", s.FormImage)
	mux.HandleFunc("POST /form/image/clear", s.FormImageClear)

	mux.HandleFunc("POST /records/{id}/edit", s.RecordEdit)
	mux.HandleFunc("POST /records/{id}/image", s.RecordImage)
	mux.HandleFunc("POST /records/{id}/delete", s.RecordDelete)
	mux.HandleFunc("POST /records/{id}/view", s.RecordView)
	mux.HandleFunc("POST /view/close", s.ViewClose)

	return mux, nil
}
