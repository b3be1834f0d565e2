// internal/ingest/signature_test.go
package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/FishTankManager/GithubAquarium-Back/internal/errors"
)

func TestVerifySignature(t *testing.T) {
	secret := "it's a secret to everybody"
	body := []byte(`{"ref":"refs/heads/main"}`)

	t.Run("accepts a valid signature", func(t *testing.T) {
		err := VerifySignature(secret, body, Sign(secret, body))
		assert.NoError(t, err)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		err := VerifySignature(secret, body, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrSignatureInvalid))
	})

	t.Run("rejects an unexpected scheme", func(t *testing.T) {
		err := VerifySignature(secret, body, "sha1=deadbeef")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrSignatureInvalid))
	})

	t.Run("rejects non-hex signature bytes", func(t *testing.T) {
		err := VerifySignature(secret, body, "sha256=not-hex-at-all")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrSignatureInvalid))
	})

	t.Run("rejects a signature computed with another secret", func(t *testing.T) {
		err := VerifySignature(secret, body, Sign("wrong secret", body))
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrSignatureInvalid))
	})

	t.Run("rejects a signature over a different body", func(t *testing.T) {
		err := VerifySignature(secret, body, Sign(secret, []byte("tampered")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrSignatureInvalid))
	})
}
