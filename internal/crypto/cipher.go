package crypto

import (
	"encoding/base64"
	"errors"
)

var ErrInvalidContentKey = errors.New("invalid content key: must be base64 encoded 32 bytes")

// ContentCipher seals message content before it is stored.
type ContentCipher interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// NewContentCipher returns an AES-256-GCM cipher for a base64 key, or a
// pass-through cipher when the key is empty.
func NewContentCipher(keyBase64 string) (ContentCipher, error) {
	if keyBase64 == "" {
		return plainCipher{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidContentKey
	}
	return aesCipher{key: key}, nil
}

type aesCipher struct {
	key []byte
}

func (c aesCipher) Seal(plaintext string) (string, error) { return Encrypt(plaintext, c.key) }
func (c aesCipher) Open(stored string) (string, error)    { return Decrypt(stored, c.key) }

type plainCipher struct{}

func (plainCipher) Seal(plaintext string) (string, error) { return plaintext, nil }
func (plainCipher) Open(stored string) (string, error)    { return stored, nil }
