package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// encryptedSuffix keeps encrypted and plaintext copies of the same content
// under different vault keys.
const encryptedSuffix = ".age"

// DocumentLog is the append-only ledger of document fingerprints shared by the
// land and portion registries. Raw bytes go to the vault keyed by fingerprint;
// the database keeps {id, fingerprint} at sequential ids.
type DocumentLog struct {
	database  Database
	vault     Vault
	encryptor Encryptor // nil disables at-rest encryption
	logger    Logger
	clock     Clock
}

// NewDocumentLog creates a DocumentLog. encryptor may be nil.
func NewDocumentLog(database Database, vault Vault, encryptor Encryptor, logger Logger, clock Clock) *DocumentLog {
	return &DocumentLog{
		database:  database,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
	}
}

// Append fingerprints doc, stores its bytes, and records a new entry.
// Identical content appended twice gets two ids; the log is an audit trail.
func (l *DocumentLog) Append(ctx context.Context, doc Document) (int64, error) {
	if len(doc.Name) > 256 {
		return 0, fmt.Errorf("%w: document name longer than 256 characters", ErrInvalidArgument)
	}

	fp := FingerprintOf(doc.Data)
	key, payload, err := l.seal(fp, doc.Data)
	if err != nil {
		return 0, err
	}

	// Content goes to the vault before the row is written. If the surrounding
	// transaction rolls back, the orphaned blob is harmless.
	exists, err := l.vault.HasContent(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("checking vault content: %w", err)
	}
	if !exists {
		if err := l.vault.PutContent(ctx, key, bytes.NewReader(payload), int64(len(payload))); err != nil {
			return 0, fmt.Errorf("uploading document to vault: %w", err)
		}
	} else {
		l.logger.Debug("document content deduplicated", "fingerprint", fp.Hex())
	}

	entry := &DocumentEntry{
		Fingerprint: fp,
		Name:        doc.Name,
		Size:        int64(len(doc.Data)),
		Encrypted:   l.encryptor != nil,
		CreatedAt:   l.clock.Now(),
	}
	if err := l.database.InsertDocument(ctx, entry); err != nil {
		return 0, fmt.Errorf("recording document: %w", err)
	}

	l.logger.Info("document appended", "id", entry.ID, "fingerprint", fp.Hex(), "size", entry.Size)
	return entry.ID, nil
}

// seal returns the vault key and the bytes to store for data.
func (l *DocumentLog) seal(fp Fingerprint, data []byte) (string, []byte, error) {
	if l.encryptor == nil {
		return fp.Hex(), data, nil
	}
	var buf bytes.Buffer
	if err := l.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
		return "", nil, fmt.Errorf("encrypting document: %w", err)
	}
	return fp.Hex() + encryptedSuffix, buf.Bytes(), nil
}

// Get returns the fingerprint stored at id.
func (l *DocumentLog) Get(ctx context.Context, id int64) (Fingerprint, error) {
	entry, err := l.Entry(ctx, id)
	if err != nil {
		return Fingerprint{}, err
	}
	return entry.Fingerprint, nil
}

// Entry returns the full log entry stored at id.
func (l *DocumentLog) Entry(ctx context.Context, id int64) (*DocumentEntry, error) {
	entry, err := l.database.FindDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	return entry, nil
}

// Total returns the number of entries ever appended.
func (l *DocumentLog) Total(ctx context.Context) (int64, error) {
	n, err := l.database.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Content writes the original bytes of document id to w after checking them
// against the recorded fingerprint. decryptCtx is required for encrypted entries.
func (l *DocumentLog) Content(ctx context.Context, id int64, w io.Writer, decryptCtx DecryptionContext) error {
	entry, err := l.Entry(ctx, id)
	if err != nil {
		return err
	}

	key := entry.Fingerprint.Hex()
	if entry.Encrypted {
		key += encryptedSuffix
	}

	var stored bytes.Buffer
	if err := l.vault.GetContent(ctx, key, &stored); err != nil {
		return fmt.Errorf("downloading document %d: %w", id, err)
	}

	plain := stored.Bytes()
	if entry.Encrypted {
		if decryptCtx == nil {
			return fmt.Errorf("document %d is encrypted: unlock the private key first", id)
		}
		var out bytes.Buffer
		if err := decryptCtx.Decrypt(&stored, &out); err != nil {
			return fmt.Errorf("decrypting document %d: %w", id, err)
		}
		plain = out.Bytes()
	}

	if FingerprintOf(plain) != entry.Fingerprint {
		return fmt.Errorf("%w: document %d", ErrFingerprintMismatch, id)
	}

	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("writing document %d: %w", id, err)
	}
	return nil
}
