package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// FieldEncryptor is the opaque encryption collaborator used for sensitive
// order fields (shipping addresses). The engine treats it as a black box.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

type aesEncryptor struct {
	aead cipher.AEAD
}

// NewAESEncryptor builds an AES-GCM encryptor from a 16- or 32-byte key.
func NewAESEncryptor(key []byte) (FieldEncryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aesEncryptor{aead: aead}, nil
}

func (e *aesEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (e *aesEncryptor) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < e.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, ct := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plain, err := e.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

// Plaintext is the no-op encryptor for deployments without a configured
// key and for tests.
type Plaintext struct{}

func (Plaintext) Encrypt(s string) (string, error) { return s, nil }
func (Plaintext) Decrypt(s string) (string, error) { return s, nil }
