package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrDecryptFailed is returned for any ciphertext that cannot be authenticated
// and decrypted: truncated input, a tampered tag, or a wrong purpose.
var ErrDecryptFailed = errors.New("decrypt failed")

const gcmTagSize = 16

// FieldCipher encrypts sensitive row fields with AES-256-GCM. The purpose
// string is bound as additional authenticated data, so ciphertext produced for
// one purpose cannot be replayed under another.
//
// Wire layout: nonce (12 bytes) || auth tag (16 bytes) || ciphertext.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher returns a FieldCipher for the given 32-byte AES key.
// A key of any other length is a configuration error.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: field cipher key must be 32 bytes, got %d", ErrMissingKey, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingKey, err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals data under the given purpose and returns
// nonce || tag || ciphertext.
func (c *FieldCipher) Encrypt(data []byte, purpose string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	// Seal emits ciphertext followed by the tag; reorder to nonce||tag||ct.
	sealed := c.aead.Seal(nil, nonce, data, []byte(purpose))
	ct := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

// Decrypt opens nonce || tag || ciphertext produced by Encrypt under the same
// purpose. It fails closed: any truncated input or tag mismatch returns
// ErrDecryptFailed and never partial plaintext.
func (c *FieldCipher) Decrypt(data []byte, purpose string) ([]byte, error) {
	minLen := c.aead.NonceSize() + gcmTagSize
	if len(data) < minLen {
		return nil, ErrDecryptFailed
	}
	nonce := data[:c.aead.NonceSize()]
	tag := data[c.aead.NonceSize():minLen]
	ct := data[minLen:]

	sealed := make([]byte, 0, len(ct)+gcmTagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, nonce, sealed, []byte(purpose))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
