package account

import (
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// KeyHasher derives the stored lookup hash of a plaintext secret.
type KeyHasher interface {
	Hash(secret string) string
}

// ErrHashKeyLength is returned when a keyed hasher is built with a key that
// is not exactly 32 bytes.
var ErrHashKeyLength = errors.New("account: hash key must be 32 bytes")

// Blake3Hasher hashes secrets with keyed BLAKE3 so that a leaked table of
// hashes cannot be checked against guesses without the server key.
type Blake3Hasher struct {
	key []byte
}

// NewBlake3Hasher builds a hasher over a 32-byte key.
func NewBlake3Hasher(key []byte) (*Blake3Hasher, error) {
	if len(key) != 32 {
		return nil, ErrHashKeyLength
	}
	k := make([]byte, 32)
	copy(k, key)
	return &Blake3Hasher{key: k}, nil
}

// DeriveHashKey derives a 32-byte hashing key from an arbitrary-length
// server secret.
func DeriveHashKey(secret string) []byte {
	out := make([]byte, 32)
	blake3.DeriveKey("reel api key hashing v1", []byte(secret), out)
	return out
}

// Hash returns the hex-encoded keyed digest of secret.
func (h *Blake3Hasher) Hash(secret string) string {
	hasher, err := blake3.NewKeyed(h.key)
	if err != nil {
		panic("account: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write([]byte(secret)) //nolint:errcheck // hash writes never fail
	return hex.EncodeToString(hasher.Sum(nil))
}

// NewSecret returns a fresh plaintext API key secret.
func NewSecret() string {
	return "rk_" + uuidHex() + uuidHex()
}

func uuidHex() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
