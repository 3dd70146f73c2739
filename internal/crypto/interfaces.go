// Package crypto implements the client-side envelope encryption used to seal
// record payloads before they leave the device.
//
// A single symmetric key is derived from the user's passphrase with Argon2id.
// Every payload is sealed with AES-256-GCM under a fresh random nonce; the
// sealed blob is base64(nonce || ciphertext), where ciphertext carries the
// GCM authentication tag. The server only ever stores and returns blobs.
package crypto

// Envelope seals and opens record payloads. It knows nothing about the
// network, storage or users.
type Envelope interface {
	// DeriveKey derives the 256-bit payload key from passphrase and salt.
	// The result is deterministic for equal inputs. An empty salt selects
	// [LegacySalt] so that data sealed by older clients stays readable.
	DeriveKey(passphrase string, salt []byte) []byte

	// NewSalt returns a fresh random per-user salt.
	NewSalt() ([]byte, error)

	// Seal serializes payload to JSON and encrypts it under key with a fresh
	// nonce. Two calls with the same input never produce the same blob.
	Seal(payload any, key []byte) (string, error)

	// Open reverses Seal. It returns (nil, false) on malformed input, a wrong
	// key or a failed authentication check; callers skip such entries.
	Open(blob string, key []byte) ([]byte, bool)
}
