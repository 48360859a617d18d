package docstore

import "errors"

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrBatchTooLarge is returned when a single commit would exceed MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch exceeds maximum operation count")

	// ErrInvalidQuery is returned for queries the store cannot evaluate.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)
