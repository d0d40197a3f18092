// Package envelope seals backend request payloads as PASETO v4.local tokens.
//
// The chapter-text and speech endpoints expect an encrypted envelope that
// carries the request fields and a millisecond timestamp. The symmetric key is
// derived from a configured shared secret with Argon2id, so the secret itself
// never appears in code or on the wire.
package envelope

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	issuer   = "novel-audio"
	audience = "novel-audio-backend"

	// TimestampClaim holds the sealing time in Unix milliseconds.
	TimestampClaim = "timestamp"

	// Argon2id parameters for key derivation. The salt is fixed so both ends
	// derive the same key from the same secret.
	keySalt        = "novel-audio/envelope/v1"
	keyIterations  = 2
	keyMemory      = 19 * 1024
	keyParallelism = 1
	keyLength      = 32

	minSecretLength = 16
)

// ErrWeakSecret is returned when the shared secret is too short to derive a key from.
var ErrWeakSecret = fmt.Errorf("shared secret must be at least %d bytes", minSecretLength)

// DeriveKey derives a 32-byte v4.local key from secret.
func DeriveKey(secret string) ([]byte, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return argon2.IDKey([]byte(secret), []byte(keySalt), keyIterations, keyMemory, keyParallelism, keyLength), nil
}

// Sealer encrypts and decrypts request envelopes.
type Sealer struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewSealer creates a sealer whose envelopes expire after ttl.
func NewSealer(secret string, ttl time.Duration) (*Sealer, error) {
	raw, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}

	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("create envelope key: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Minute
	}

	return &Sealer{key: key, ttl: ttl, now: time.Now}, nil
}

// Seal encrypts fields together with a timestamp claim.
func (s *Sealer) Seal(fields map[string]any) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(issuer)
	token.SetAudience(audience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	token.SetJti(uuid.NewString())

	for k, v := range fields {
		if err := token.Set(k, v); err != nil {
			return "", fmt.Errorf("set claim %q: %w", k, err)
		}
	}
	if err := token.Set(TimestampClaim, now.UnixMilli()); err != nil {
		return "", fmt.Errorf("set timestamp: %w", err)
	}

	return token.V4Encrypt(s.key, nil), nil
}

// Open decrypts and validates an envelope, decoding its claims into dst.
func (s *Sealer) Open(sealed string, dst any) error {
	if sealed == "" {
		return errors.New("empty envelope")
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(audience))
	parser.AddRule(paseto.IssuedBy(issuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, sealed, nil)
	if err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}

	if err := json.Unmarshal(token.ClaimsJSON(), dst); err != nil {
		return fmt.Errorf("decode envelope claims: %w", err)
	}
	return nil
}
