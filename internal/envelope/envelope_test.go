package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-shared-secret-for-tests"

type speechClaims struct {
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	Timestamp int64  `json:"timestamp"`
	Jti       string `json:"jti"`
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey(testSecret)
	require.NoError(t, err)
	b, err := DeriveKey(testSecret)
	require.NoError(t, err)
	c, err := DeriveKey(testSecret + "!")
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, b, "derivation must be deterministic")
	assert.NotEqual(t, a, c)
}

func TestDeriveKey_RejectsShortSecret(t *testing.T) {
	_, err := DeriveKey("short")
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestSealer_SealAndOpen(t *testing.T) {
	s, err := NewSealer(testSecret, time.Minute)
	require.NoError(t, err)
	fixed := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return fixed }

	sealed, err := s.Seal(map[string]any{"text": "Xin chào.", "voice": "vi-VN-HoaiMyNeural"})
	require.NoError(t, err)
	assert.Contains(t, sealed, "v4.local.")
	assert.NotContains(t, sealed, "Xin")

	var got speechClaims
	require.NoError(t, s.Open(sealed, &got))
	assert.Equal(t, "Xin chào.", got.Text)
	assert.Equal(t, "vi-VN-HoaiMyNeural", got.Voice)
	assert.Equal(t, fixed.UnixMilli(), got.Timestamp)
	assert.NotEmpty(t, got.Jti)
}

func TestSealer_UniqueTokenIDs(t *testing.T) {
	s, err := NewSealer(testSecret, time.Minute)
	require.NoError(t, err)

	first, err := s.Seal(map[string]any{"text": "a"})
	require.NoError(t, err)
	second, err := s.Seal(map[string]any{"text": "a"})
	require.NoError(t, err)

	var a, b speechClaims
	require.NoError(t, s.Open(first, &a))
	require.NoError(t, s.Open(second, &b))
	assert.NotEqual(t, a.Jti, b.Jti)
}

func TestSealer_OpenWithDifferentSecretFails(t *testing.T) {
	s1, err := NewSealer(testSecret, time.Minute)
	require.NoError(t, err)
	s2, err := NewSealer("another-shared-secret-value", time.Minute)
	require.NoError(t, err)

	sealed, err := s1.Seal(map[string]any{"text": "hello"})
	require.NoError(t, err)

	var got speechClaims
	assert.Error(t, s2.Open(sealed, &got))
}

func TestSealer_ExpiredEnvelopeRejected(t *testing.T) {
	s, err := NewSealer(testSecret, time.Second)
	require.NoError(t, err)
	start := time.Now()
	s.now = func() time.Time { return start }

	sealed, err := s.Seal(map[string]any{"text": "hello"})
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(time.Minute) }
	var got speechClaims
	assert.Error(t, s.Open(sealed, &got))
}

func TestSealer_OpenEmpty(t *testing.T) {
	s, err := NewSealer(testSecret, time.Minute)
	require.NoError(t, err)

	var got speechClaims
	assert.Error(t, s.Open("", &got))
}
