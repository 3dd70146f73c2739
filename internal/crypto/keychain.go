// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// LegacySalt is the static salt older clients derived every key with. It is
// only used when no per-user salt is available.
var LegacySalt = []byte("health-keeper:envelope:v1")

const saltSize = 16

// keyChain is the private implementation of [Envelope].
type keyChain struct {
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32
}

// NewKeyChain constructs an [Envelope] with fixed Argon2id parameters:
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (AES-256)
//
// The parameters must never change for existing users: a different cost
// yields a different key and every stored blob becomes unreadable.
func NewKeyChain() Envelope {
	return &keyChain{
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  32, // 256 bits
	}
}

// DeriveKey implements [Envelope].
func (k *keyChain) DeriveKey(passphrase string, salt []byte) []byte {
	if len(salt) == 0 {
		salt = LegacySalt
	}

	return argon2.IDKey(
		[]byte(passphrase),
		salt,
		k.argonTime,
		k.argonMemory,
		k.argonThreads,
		k.argonKeyLen,
	)
}

// NewSalt implements [Envelope]. It reads 16 bytes from the OS CSPRNG.
func (k *keyChain) NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Seal implements [Envelope].
func (k *keyChain) Seal(payload any, key []byte) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	// the nonce size comes from the cipher, so a short read is the only way
	// to end up with a reused nonce
	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	blob := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open implements [Envelope].
func (k *keyChain) Open(blob string, key []byte) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, false
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, false
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize+gcm.Overhead() {
		return nil, false
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, false
	}

	if !json.Valid(plaintext) {
		return nil, false
	}

	return plaintext, true
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
