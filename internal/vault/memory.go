package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"landledger/internal/ledger"
)

// MemoryVault keeps document content and ledger snapshots in memory.
// It is safe for concurrent use and intended for tests and throwaway ledgers.
type MemoryVault struct {
	name     string
	mu       sync.RWMutex
	content  map[string][]byte // key -> bytes
	snapshot map[string][]byte // ledgerID -> snapshot
	version  map[string]int64  // ledgerID -> snapshot version
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		content:  make(map[string][]byte),
		snapshot: make(map[string][]byte),
		version:  make(map[string]int64),
	}
}

func readExactly(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

func (m *MemoryVault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.content[key]; !ok {
		m.content[key] = data
	}
	return nil
}

func (m *MemoryVault) GetContent(ctx context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.content[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrContentNotFound, key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryVault) HasContent(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.content[key]
	return ok, nil
}

func (m *MemoryVault) PutSnapshot(ctx context.Context, ledgerID string, r io.Reader, size int64, version int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot[ledgerID] = data
	m.version[ledgerID] = version
	return nil
}

func (m *MemoryVault) GetSnapshot(ctx context.Context, ledgerID string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.snapshot[ledgerID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: snapshot for ledger %s", ledger.ErrContentNotFound, ledgerID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (m *MemoryVault) SnapshotVersion(ctx context.Context, ledgerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version[ledgerID], nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Len returns the number of distinct content keys stored.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

// Corrupt overwrites the bytes stored under key. Tests use it to exercise
// fingerprint verification.
func (m *MemoryVault) Corrupt(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[key] = data
}

var _ ledger.Vault = (*MemoryVault)(nil)
