package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/veldtlabs/passgate/pkg/jwtx"
)

// InitSigningKey loads the Ed25519 signing key from the configured PEM file,
// or generates an ephemeral key when no file is configured. Ephemeral keys
// invalidate every outstanding token on restart, which is fine for dev and
// wrong for anything else.
func InitSigningKey(cfg Config, logger *slog.Logger) (*jwtx.EdDSASigner, error) {
	if cfg.SigningKeyFile == "" {
		pemKey, err := jwtx.GenerateEdDSAKeyPEM()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		logger.Warn("no signing key file configured, using an ephemeral key")
		return jwtx.NewSignerEdDSA(keyID(pemKey), pemKey)
	}

	pemKey, err := os.ReadFile(cfg.SigningKeyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read signing key file: %w", err)
		}

		// First start with a configured path: generate and persist the key.
		pemKey, err = jwtx.GenerateEdDSAKeyPEM()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		if err := os.WriteFile(cfg.SigningKeyFile, pemKey, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write signing key file: %w", err)
		}
		logger.Info("generated new signing key", "path", cfg.SigningKeyFile)
	}

	signer, err := jwtx.NewSignerEdDSA(keyID(pemKey), pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	logger.Info("signing key loaded", "alg", signer.Alg(), "kid", signer.KID())
	return signer, nil
}

// keyID derives a stable kid from the key material, so restarts with the
// same persisted key keep validating tokens issued before the restart.
func keyID(pemKey []byte) string {
	sum := sha256.Sum256(pemKey)
	return hex.EncodeToString(sum[:8])
}
