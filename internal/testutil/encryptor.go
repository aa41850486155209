package testutil

import (
	"landledger/internal/encryption"
	"landledger/internal/ledger"
)

// NewTestEncryptor returns a deterministic encryptor that needs no keys.
func NewTestEncryptor() ledger.Encryptor {
	return encryption.PlainEncryptor{}
}
