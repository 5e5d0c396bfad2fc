package storage

import (
	"context"

	"blur-chat/internal/models"
)

// SnapshotStore is the durable persistence collaborator. The core treats it
// as an opaque document store: Load returns the full prior state (empty
// collections when nothing was saved before) and Save replaces it.
type SnapshotStore interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snap models.Snapshot) error
}
