// Package vault seals and opens secret strings with an authenticated cipher.
//
// A sealed secret is stored as an opaque text column: base64 of the JSON
// envelope {keyId, iv, ciphertext, tag}. The key id names the registry entry
// that produced the envelope, so retired keys stay readable after rotation
// while every new seal uses the active key.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/octoberhq/concierge/internal/config"
	"github.com/octoberhq/concierge/internal/errs"
)

// Algorithm selects the AEAD suite for the whole key registry.
type Algorithm string

// Supported suites. Both use 12-byte nonces and 16-byte tags, so envelopes
// are uniform across suites.
const (
	AlgAESGCM   Algorithm = config.CipherAESGCM
	AlgChaCha20 Algorithm = config.CipherChaCha20
)

const (
	keyLen   = 32
	nonceLen = 12
	tagLen   = 16
	// maxEnvelopeBytes caps the encoded envelope as stored. OAuth tokens are
	// well under this; anything larger indicates misuse of the vault.
	maxEnvelopeBytes = 16 * 1024
)

// envelope is the serialized form of one sealed secret. []byte fields
// marshal as base64 per encoding/json.
type envelope struct {
	KeyID      string `json:"keyId"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

// Cipher performs authenticated encryption with a multi-key registry.
// Safe for concurrent use; the registry is immutable after construction.
type Cipher struct {
	active string
	aeads  map[string]cipher.AEAD
}

// New builds a Cipher from the active key and a registry of retired keys
// still accepted for opening. Every key must be exactly 32 bytes.
func New(activeID string, activeKey []byte, retired map[string][]byte, alg Algorithm) (*Cipher, error) {
	if activeID == "" {
		return nil, fmt.Errorf("vault: empty active key id")
	}
	aeads := make(map[string]cipher.AEAD, len(retired)+1)

	add := func(id string, key []byte) error {
		if len(key) != keyLen {
			return fmt.Errorf("vault: key %q must be %d bytes, got %d", id, keyLen, len(key))
		}
		aead, err := newAEAD(alg, key)
		if err != nil {
			return fmt.Errorf("vault: key %q: %w", id, err)
		}
		aeads[id] = aead
		return nil
	}

	if err := add(activeID, activeKey); err != nil {
		return nil, err
	}
	for id, key := range retired {
		if id == activeID {
			continue // active entry wins
		}
		if err := add(id, key); err != nil {
			return nil, err
		}
	}
	return &Cipher{active: activeID, aeads: aeads}, nil
}

// NewFromConfig builds the Cipher from validated configuration.
func NewFromConfig(cfg *config.Config) (*Cipher, error) {
	key, err := cfg.ActiveKey()
	if err != nil {
		return nil, fmt.Errorf("vault: TOKEN_ENCRYPTION_KEY: %w", err)
	}
	retired, err := cfg.DecryptionKeys()
	if err != nil {
		return nil, fmt.Errorf("vault: TOKEN_DECRYPTION_KEYS: %w", err)
	}
	return New(cfg.TokenEncryptionKeyID, key, retired, Algorithm(cfg.TokenCipher))
}

func newAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case AlgAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case AlgChaCha20:
		return chacha20poly1305.New(key)
	}
	return nil, fmt.Errorf("unknown algorithm %q", alg)
}

// ActiveKeyID returns the key id every new Seal records in its envelope.
func (c *Cipher) ActiveKeyID() string { return c.active }

// Seal encrypts plaintext under the active key with a fresh random nonce and
// returns the encoded envelope. Fails with errs.ErrEnvelopeTooLarge if the
// encoded form would exceed the storage cap.
func (c *Cipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := c.aeads[c.active].Seal(nil, nonce, []byte(plaintext), nil)
	env := envelope{
		KeyID:      c.active,
		IV:         nonce,
		Ciphertext: sealed[:len(sealed)-tagLen],
		Tag:        sealed[len(sealed)-tagLen:],
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("vault: marshal envelope: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	if len(encoded) > maxEnvelopeBytes {
		return "", errs.ErrEnvelopeTooLarge
	}
	return encoded, nil
}

// Open decodes and decrypts an encoded envelope, verifying its tag. The key
// is resolved from the envelope's keyId. On any verification failure it
// returns errs.ErrOpenFailed without detail and releases no plaintext.
func (c *Cipher) Open(encoded string) (string, error) {
	if len(encoded) > maxEnvelopeBytes {
		return "", errs.ErrEnvelopeTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errs.ErrEnvelopeMalformed
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", errs.ErrEnvelopeMalformed
	}
	if len(env.IV) != nonceLen || len(env.Tag) != tagLen {
		return "", errs.ErrEnvelopeMalformed
	}

	aead, ok := c.aeads[env.KeyID]
	if !ok {
		return "", errs.ErrUnknownKeyID
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+tagLen)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aead.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return "", errs.ErrOpenFailed
	}
	return string(plaintext), nil
}
