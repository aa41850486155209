package ledger

import (
	"context"
	"io"
)

// Vault stores document bytes by key and versioned ledger snapshots.
// All operations stream through io.Reader/io.Writer.
type Vault interface {
	// PutContent stores content under key. Storing the same key twice is safe
	// and keeps the first copy. size is the number of bytes read from r.
	PutContent(ctx context.Context, key string, r io.Reader, size int64) error

	// GetContent writes the content stored under key to w.
	GetContent(ctx context.Context, key string, w io.Writer) error

	// HasContent reports whether key is present.
	HasContent(ctx context.Context, key string) (bool, error)

	// PutSnapshot stores a ledger snapshot for ledgerID tagged with version.
	PutSnapshot(ctx context.Context, ledgerID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the latest snapshot for ledgerID to w.
	GetSnapshot(ctx context.Context, ledgerID string, w io.Writer) error

	// SnapshotVersion returns the stored snapshot version, or 0 when none exists.
	SnapshotVersion(ctx context.Context, ledgerID string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
