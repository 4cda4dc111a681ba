package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/avaldez/facturador-webhook/internal/domain"
)

const prefix = "sha256="

// Verifier authenticates webhook bodies with HMAC-SHA256 over the raw bytes
// as received. No re-serialization happens anywhere between the wire and the
// digest, so the bytes are exactly what the sender signed.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks a `sha256=<hex>` header against the body. Comparison goes
// through hmac.Equal to keep it constant time.
func (v *Verifier) Verify(body []byte, header string) error {
	if strings.TrimSpace(header) == "" {
		return &domain.AuthenticationError{Message: "signature required"}
	}

	got := strings.TrimPrefix(header, prefix)
	if got == header {
		return &domain.AuthenticationError{Message: "invalid signature"}
	}

	gotRaw, err := hex.DecodeString(got)
	if err != nil {
		return &domain.AuthenticationError{Message: "invalid signature"}
	}

	if !hmac.Equal(gotRaw, v.digest(body)) {
		return &domain.AuthenticationError{Message: "invalid signature"}
	}
	return nil
}

// Sign produces the header value for a body. Used by the outbound notifier
// so the hub can verify our callbacks the same way.
func (v *Verifier) Sign(body []byte) string {
	return prefix + hex.EncodeToString(v.digest(body))
}

func (v *Verifier) digest(body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return mac.Sum(nil)
}
