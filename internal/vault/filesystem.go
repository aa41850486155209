package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"landledger/internal/ledger"
)

// FileSystemVault stores content and snapshots under a root directory:
//
//	<root>/
//	  documents/
//	    <fingerprint>[.age]
//	  snapshots/
//	    <ledgerID>.db
//	    <ledgerID>.version
type FileSystemVault struct {
	name         string
	root         string
	documentsDir string
	snapshotsDir string
}

// NewFileSystemVault creates the directory layout under root if needed.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	v := &FileSystemVault{
		name:         name,
		root:         root,
		documentsDir: filepath.Join(root, "documents"),
		snapshotsDir: filepath.Join(root, "snapshots"),
	}
	for _, dir := range []string{v.documentsDir, v.snapshotsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}
	return v, nil
}

// contentPath rejects keys that could escape the documents directory.
func (v *FileSystemVault) contentPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: invalid vault key %q", ledger.ErrInvalidArgument, key)
	}
	return filepath.Join(v.documentsDir, key), nil
}

func (v *FileSystemVault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	dest, err := v.contentPath(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dest); err == nil {
		// Already stored; drain r so callers see the same size check.
		n, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if n != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, n)
		}
		return nil
	}
	return writeAtomic(dest, r, size)
}

func (v *FileSystemVault) GetContent(ctx context.Context, key string, w io.Writer) error {
	src, err := v.contentPath(key)
	if err != nil {
		return err
	}
	return copyFile(src, w, key)
}

func (v *FileSystemVault) HasContent(ctx context.Context, key string) (bool, error) {
	src, err := v.contentPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(src)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("checking content: %w", err)
	}
}

func (v *FileSystemVault) PutSnapshot(ctx context.Context, ledgerID string, r io.Reader, size int64, version int64) error {
	if err := writeAtomic(filepath.Join(v.snapshotsDir, ledgerID+".db"), r, size); err != nil {
		return err
	}
	versionPath := filepath.Join(v.snapshotsDir, ledgerID+".version")
	return writeAtomic(versionPath, strings.NewReader(strconv.FormatInt(version, 10)),
		int64(len(strconv.FormatInt(version, 10))))
}

func (v *FileSystemVault) GetSnapshot(ctx context.Context, ledgerID string, w io.Writer) error {
	return copyFile(filepath.Join(v.snapshotsDir, ledgerID+".db"), w, "snapshot for ledger "+ledgerID)
}

// SnapshotVersion returns 0 when no snapshot has been written.
func (v *FileSystemVault) SnapshotVersion(ctx context.Context, ledgerID string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(v.snapshotsDir, ledgerID+".version"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories exist.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	for _, dir := range []string{v.root, v.documentsDir, v.snapshotsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeAtomic writes r to dest through a temp file in the same directory.
func writeAtomic(dest string, r io.Reader, size int64) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, n)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func copyFile(src string, w io.Writer, what string) error {
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ledger.ErrContentNotFound, what)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

var _ ledger.Vault = (*FileSystemVault)(nil)
