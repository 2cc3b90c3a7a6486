package oauth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"fitgate/internal/fault"
)

const (
	gcmNonceSize = 12
	gcmTagSize   = 16
	keySize      = 32
)

// Cipher seals token strings with AES-256-GCM. The wire form is
// ivHex:authTagHex:ciphertextHex.
type Cipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewCipher creates a Cipher from a 32 byte key. A key of any other length
// is a configuration error.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fault.Newf(fault.KindConfiguration, "encryption key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfiguration, err, "invalid encryption key")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fault.Wrap(fault.KindConfiguration, err, "failed to initialize AES-GCM")
	}
	return &Cipher{aead: aead, random: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fault.Wrap(fault.KindInternal, err, "failed to generate nonce")
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	}, ":"), nil
}

// Decrypt opens a value produced by Encrypt. Any malformed input or failed
// integrity check is a decryption fault; wrong plaintext is never returned.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", fault.New(fault.KindDecryption, "malformed ciphertext: expected iv:tag:data")
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != gcmNonceSize {
		return "", fault.New(fault.KindDecryption, "malformed ciphertext: bad iv")
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagSize {
		return "", fault.New(fault.KindDecryption, "malformed ciphertext: bad auth tag")
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fault.New(fault.KindDecryption, "malformed ciphertext: bad data")
	}

	plaintext, err := c.aead.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", fault.Wrap(fault.KindDecryption, err, "failed to decrypt stored token (wrong key or tampered file)")
	}
	return string(plaintext), nil
}

// GenerateKey returns a new random key in the 64 character hex form the
// configuration expects.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
