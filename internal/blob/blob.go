// Package blob abstracts the content byte store. Live document content
// is keyed by the document id; archived snapshots by "{id}_v{version}".
package blob

import (
	"context"
	"fmt"
)

// Store is the blob store contract. Get returns apperr.ErrNotFound for
// unknown keys; other failures are wrapped as storage-unavailable.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// LiveKey is the key holding a document's current content.
func LiveKey(docID string) string { return docID }

// SnapshotKey is the key holding the content archived for a version.
func SnapshotKey(docID string, version int) string {
	return fmt.Sprintf("%s_v%d", docID, version)
}
