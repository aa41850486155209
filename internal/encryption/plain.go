package encryption

import (
	"bytes"
	"fmt"
	"io"

	"landledger/internal/ledger"
)

// plainHeader marks content sealed by PlainEncryptor.
var plainHeader = []byte("LLENC\x00\x00\x00")

// PlainEncryptor is a deterministic stand-in for AgeEncryptor. It frames data
// with a fixed header so sealed bytes differ from the plaintext without any
// key material. Selected with encryption type "test".
type PlainEncryptor struct{}

var _ ledger.Encryptor = PlainEncryptor{}

func (PlainEncryptor) Setup(string) error { return nil }

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(plainHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Unlock(string) (ledger.DecryptionContext, error) {
	return plainDecryption{}, nil
}

func (PlainEncryptor) IsConfigured() bool { return true }

type plainDecryption struct{}

func (plainDecryption) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(plainHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, plainHeader) {
		return fmt.Errorf("invalid content header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
