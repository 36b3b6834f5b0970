package ports

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists for the match.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists the opaque JSON record of a match between operations.
type SnapshotStore interface {
	// Save replaces the stored record of matchID.
	Save(ctx context.Context, matchID string, data []byte) error

	// Load returns the stored record of matchID or ErrSnapshotNotFound.
	Load(ctx context.Context, matchID string) ([]byte, error)
}
