package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const sealInfo = "kinto-admin session sealing v1"

var ErrSealedDataInvalid = errors.New("sealed data is invalid")

// SecretBoxSealer encrypts session data with NaCl secretbox. The key is
// derived from the console secret with HKDF-SHA256.
type SecretBoxSealer struct {
	key [32]byte
}

// NewSealer derives a sealing key from secret
func NewSealer(secret string) (*SecretBoxSealer, error) {
	if secret == "" {
		return nil, errors.New("sealer secret cannot be empty")
	}
	s := &SecretBoxSealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, err
	}
	return s, nil
}

// Seal encrypts plaintext and returns nonce||box, base64url encoded
func (s *SecretBoxSealer) Seal(plaintext []byte) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Open decrypts the output of Seal
func (s *SecretBoxSealer) Open(sealed string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return nil, ErrSealedDataInvalid
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealedDataInvalid
	}
	return plain, nil
}
