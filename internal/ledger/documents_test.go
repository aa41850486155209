package ledger_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"landledger/internal/ledger"
	"landledger/internal/testutil"
)

func TestDocumentLog_Append(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewTestLedger(t, nil)

	docs := []ledger.Document{
		{Name: "deed.pdf", Data: []byte("deed")},
		{Name: "survey.pdf", Data: []byte("survey")},
		{Name: "deed-copy.pdf", Data: []byte("deed")},
	}
	for want, doc := range docs {
		id, err := l.Documents.Append(ctx, doc)
		if err != nil {
			t.Fatalf("Append(%s) error = %v", doc.Name, err)
		}
		if id != int64(want) {
			t.Errorf("Append(%s) = %d, want %d", doc.Name, id, want)
		}
	}

	t.Run("identical content gets its own entry", func(t *testing.T) {
		first, _ := l.Documents.Get(ctx, 0)
		third, _ := l.Documents.Get(ctx, 2)
		if first != third {
			t.Errorf("fingerprints differ for identical content: %s vs %s", first, third)
		}
		if total, _ := l.Documents.Total(ctx); total != 3 {
			t.Errorf("Total() = %d, want 3", total)
		}
		if n := l.Vault.Len(); n != 2 {
			t.Errorf("vault holds %d blobs, want 2", n)
		}
	})

	t.Run("get returns sha256 fingerprint", func(t *testing.T) {
		fp, err := l.Documents.Get(ctx, 1)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if fp != ledger.FingerprintOf([]byte("survey")) {
			t.Errorf("Get(1) = %s", fp)
		}
	})

	t.Run("get missing id", func(t *testing.T) {
		if _, err := l.Documents.Get(ctx, 3); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("Get(3) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		_, err := l.Documents.Append(ctx, ledger.Document{Name: strings.Repeat("n", 257), Data: []byte("x")})
		if !errors.Is(err, ledger.ErrInvalidArgument) {
			t.Errorf("Append() error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestDocumentLog_Content(t *testing.T) {
	ctx := context.Background()

	t.Run("plaintext round trip", func(t *testing.T) {
		l := testutil.NewTestLedger(t, nil)
		id, err := l.Documents.Append(ctx, ledger.Document{Name: "deed", Data: []byte("parcel 12")})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		var buf bytes.Buffer
		if err := l.Documents.Content(ctx, id, &buf, nil); err != nil {
			t.Fatalf("Content() error = %v", err)
		}
		if buf.String() != "parcel 12" {
			t.Errorf("Content() = %q, want %q", buf.String(), "parcel 12")
		}
	})

	t.Run("encrypted round trip", func(t *testing.T) {
		enc := testutil.NewTestEncryptor()
		l := testutil.NewTestLedger(t, enc)
		data := []byte("confidential lease")
		id, err := l.Documents.Append(ctx, ledger.Document{Name: "lease", Data: data})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		entry, _ := l.Documents.Entry(ctx, id)
		if !entry.Encrypted {
			t.Error("Entry().Encrypted = false, want true")
		}
		if ok, _ := l.Vault.HasContent(ctx, ledger.FingerprintOf(data).Hex()+".age"); !ok {
			t.Error("vault has no .age blob for the encrypted document")
		}

		if err := l.Documents.Content(ctx, id, &bytes.Buffer{}, nil); err == nil {
			t.Error("Content() without decryption context should fail")
		}

		dc, _ := enc.Unlock("")
		var buf bytes.Buffer
		if err := l.Documents.Content(ctx, id, &buf, dc); err != nil {
			t.Fatalf("Content() error = %v", err)
		}
		if !bytes.Equal(buf.Bytes(), data) {
			t.Errorf("Content() = %q, want %q", buf.Bytes(), data)
		}
	})

	t.Run("tampered content", func(t *testing.T) {
		l := testutil.NewTestLedger(t, nil)
		id, _ := l.Documents.Append(ctx, ledger.Document{Name: "deed", Data: []byte("original")})
		l.Vault.Corrupt(ledger.FingerprintOf([]byte("original")).Hex(), []byte("forged"))

		err := l.Documents.Content(ctx, id, &bytes.Buffer{}, nil)
		if !errors.Is(err, ledger.ErrFingerprintMismatch) {
			t.Errorf("Content() error = %v, want ErrFingerprintMismatch", err)
		}
	})
}
