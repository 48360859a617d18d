// Package blobstore stores generated artifacts such as leaderboard exports.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a path has no stored object.
var ErrNotFound = errors.New("blob not found")

// Store uploads bytes under a path and hands out download URLs.
type Store interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	DownloadURL(ctx context.Context, path string) (string, error)
}
