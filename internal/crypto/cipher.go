package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize - размер соли KDF в байтах
	SaltSize = 16
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// KDFIterations - количество итераций PBKDF2-SHA256
	KDFIterations = 100_000
	// KeyLen - длина выходного ключа в байтах (AES-256)
	KeyLen = 32
)

// ErrDecryption is returned whenever an envelope cannot be recovered:
// malformed encoding, wrong passphrase, or authentication tag mismatch.
// Callers must treat it as "value absent", never as empty plaintext,
// and never retry the same envelope.
var ErrDecryption = errors.New("decryption failed")

// deriveKey растягивает passphrase в 256-битный ключ через PBKDF2-SHA256
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, KDFIterations, KeyLen, sha256.New)
}

// Encrypt encrypts plaintext under a key derived from passphrase and packs
// the result into a single text-safe envelope:
//
//	base64( salt(16) || nonce(12) || ciphertext+tag )
//
// Salt and nonce are freshly random on every call, so two encryptions of
// the same plaintext under the same passphrase never produce equal
// envelopes.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// GCM автоматически добавляет authentication tag в конец
	ciphertext := aesGCM.Seal(nil, nonce, []byte(plaintext), nil)

	envelope := make([]byte, 0, SaltSize+NonceSize+len(ciphertext))
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt unpacks an envelope produced by Encrypt, re-derives the key from
// the embedded salt and performs authenticated decryption. Every failure
// mode (bad base64, short envelope, wrong passphrase, corrupted data) is
// reported as an error wrapping ErrDecryption.
func Decrypt(envelope, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: invalid envelope encoding", ErrDecryption)
	}
	if len(raw) < SaltSize+NonceSize {
		return "", fmt.Errorf("%w: envelope too short", ErrDecryption)
	}

	salt := raw[:SaltSize]
	nonce := raw[SaltSize : SaltSize+NonceSize]
	ciphertext := raw[SaltSize+NonceSize:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Неверный пароль либо поврежденные данные - различить нельзя
		return "", fmt.Errorf("%w: authentication failed or corrupted data", ErrDecryption)
	}

	return string(plaintext), nil
}
