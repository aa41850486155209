package encryption

import (
	"fmt"

	"landledger/internal/config"
	"landledger/internal/ledger"
)

// NewEncryptorFromConfig returns the configured Encryptor, or nil when
// encryption is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (ledger.Encryptor, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return PlainEncryptor{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
