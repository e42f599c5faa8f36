// Package webhook authenticates payment gateway (NETS) server-to-server
// callbacks with a MAC over the request body.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Scheme selects how the MAC is computed.
type Scheme string

const (
	// SchemeHMACSHA256 is base64(HMAC-SHA256(secret, payload)).
	SchemeHMACSHA256 Scheme = "hmac-sha256"
	// SchemeLegacy is base64(SHA-256(payload || secret)), the format the
	// NETS gateway sends. It is a keyed hash, not an HMAC, and is open to
	// length extension; use it only where the gateway requires it.
	SchemeLegacy Scheme = "legacy"
)

// ParseScheme validates a configured scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeHMACSHA256, "":
		return SchemeHMACSHA256, nil
	case SchemeLegacy:
		return SchemeLegacy, nil
	default:
		return "", fmt.Errorf("unknown mac scheme %q", s)
	}
}

// Verifier checks MACs with a shared secret.
type Verifier struct {
	secret []byte
	scheme Scheme
}

// NewVerifier creates a verifier. The secret must not be empty.
func NewVerifier(secret string, scheme Scheme) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	if scheme != SchemeHMACSHA256 && scheme != SchemeLegacy {
		return nil, fmt.Errorf("unknown mac scheme %q", scheme)
	}
	return &Verifier{secret: []byte(secret), scheme: scheme}, nil
}

// Scheme returns the configured scheme.
func (v *Verifier) Scheme() Scheme {
	return v.scheme
}

// Sign returns the MAC of payload, base64 encoded.
func (v *Verifier) Sign(payload []byte) string {
	return base64.StdEncoding.EncodeToString(v.sum(payload))
}

// Verify reports whether providedMac is the MAC of exactly rawPayload.
// The comparison is constant time.
func (v *Verifier) Verify(rawPayload []byte, providedMac string) bool {
	providedMac = strings.TrimSpace(providedMac)
	if providedMac == "" {
		return false
	}
	expected := v.Sign(rawPayload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(providedMac)) == 1
}

func (v *Verifier) sum(payload []byte) []byte {
	switch v.scheme {
	case SchemeLegacy:
		h := sha256.New()
		h.Write(payload)
		h.Write(v.secret)
		return h.Sum(nil)
	default:
		mac := hmac.New(sha256.New, v.secret)
		mac.Write(payload)
		return mac.Sum(nil)
	}
}
