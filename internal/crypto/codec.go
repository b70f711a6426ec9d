// Package crypto seals and opens opaque secret strings with AES-256-GCM so
// provider credentials can be stored as a single text column.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
)

// KeySize is the required key length for AES-256.
const KeySize = 32

// Codec performs authenticated symmetric encryption with a process-wide key.
// The key is loaded once at startup and never rotated; rotating it requires
// re-encrypting all stored envelopes out-of-band.
type Codec struct {
	key []byte
}

// NewCodec validates the key and returns a Codec. A missing or wrongly sized
// key fails fast instead of silently encrypting with weak material.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, &errors.ErrConfiguration{Setting: "encryption_key", Reason: "key is not set"}
	}
	if len(key) != KeySize {
		return nil, &errors.ErrConfiguration{
			Setting: "encryption_key",
			Reason:  fmt.Sprintf("key must be %d bytes, got %d", KeySize, len(key)),
		}
	}
	return &Codec{key: append([]byte(nil), key...)}, nil
}

// Seal encrypts plaintext with a fresh random nonce and returns the envelope
// "<nonce-hex>:<tag-hex>:<ciphertext-hex>". The format is order-stable and
// carries no version field.
func (c *Codec) Seal(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &errors.ErrConfiguration{Setting: "encryption_key", Reason: fmt.Sprintf("nonce generation failed: %v", err)}
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	// gcm.Seal appends the tag to the ciphertext; the envelope keeps them
	// in separate fields.
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	), nil
}

// Open decrypts an envelope produced by Seal. Tampering with any byte of the
// envelope fails authentication, not just confidentiality.
func (c *Codec) Open(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", &errors.ErrDecryption{Reason: "malformed envelope"}
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", &errors.ErrDecryption{Reason: "invalid nonce encoding", Err: err}
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", &errors.ErrDecryption{Reason: "invalid tag encoding", Err: err}
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", &errors.ErrDecryption{Reason: "invalid ciphertext encoding", Err: err}
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", &errors.ErrDecryption{Reason: "wrong nonce length"}
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", &errors.ErrDecryption{Reason: "authentication failed", Err: err}
	}

	return string(plaintext), nil
}

func (c *Codec) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, &errors.ErrConfiguration{Setting: "encryption_key", Reason: err.Error()}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &errors.ErrConfiguration{Setting: "encryption_key", Reason: err.Error()}
	}
	return gcm, nil
}
