// internal/ingest/signature.go
package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	apperrors "github.com/FishTankManager/GithubAquarium-Back/internal/errors"
)

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// request body. Verification happens before any payload parsing; a request
// that fails here must cause no state change.
func VerifySignature(secret string, body []byte, header string) error {
	if header == "" {
		return fmt.Errorf("%w: signature header missing", apperrors.ErrSignatureInvalid)
	}

	scheme, signature, found := strings.Cut(header, "=")
	if !found || scheme != "sha256" {
		return fmt.Errorf("%w: unexpected signature format", apperrors.ErrSignatureInvalid)
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not valid hex", apperrors.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return fmt.Errorf("%w: signature mismatch", apperrors.ErrSignatureInvalid)
	}
	return nil
}

// Sign computes the signature header value for a body. Used by tests and
// local tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
