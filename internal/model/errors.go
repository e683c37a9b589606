package model

import "errors"

// Failure kinds shared by the record store, the blob store and the controller.
// Adapters wrap their underlying error together with one of these so callers
// can match with errors.Is.
var (
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrStoreWrite       = errors.New("record store write failed")
	ErrNotFound         = errors.New("not found")
	ErrUploadRejected   = errors.New("upload rejected")
	ErrUploadError      = errors.New("upload failed")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrInvalidEdit      = errors.New("invalid edit")
)
