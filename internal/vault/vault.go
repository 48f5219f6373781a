package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// CryptoError is returned for any token that cannot be encrypted or
// decrypted: empty input, a malformed wire format, or ciphertext that does
// not authenticate under the configured key.
type CryptoError struct {
	Reason string
	Err    error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token vault: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token vault: %s", e.Reason)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// Vault encrypts and decrypts stored credentials with AES-GCM under a single
// process-wide secret. Ciphertexts are stored as "ivHex:cipherHex".
type Vault struct {
	key []byte
}

// New derives the cipher key from the configured secret. There is no key
// rotation; one secret serves the whole process.
func New(secret string) *Vault {
	key := sha256.Sum256([]byte(secret))
	return &Vault{key: key[:]}
}

// Encrypt seals the plaintext with a fresh random IV. Encrypting the same
// plaintext twice yields different ciphertext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", &CryptoError{Reason: "create cipher", Err: err}
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", &CryptoError{Reason: "create gcm", Err: err}
	}

	iv := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", &CryptoError{Reason: "generate iv", Err: err}
	}

	ciphertext := aesGCM.Seal(nil, iv, []byte(plaintext), nil)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails with a CryptoError when the input is
// empty, has no ':' separator, either half is not valid hex, or the
// ciphertext does not open under the configured key.
func (v *Vault) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", &CryptoError{Reason: "empty ciphertext"}
	}

	ivHex, cipherHex, found := strings.Cut(encrypted, ":")
	if !found {
		return "", &CryptoError{Reason: "missing ':' separator"}
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", &CryptoError{Reason: "iv is not valid hex", Err: err}
	}

	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", &CryptoError{Reason: "ciphertext is not valid hex", Err: err}
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", &CryptoError{Reason: "create cipher", Err: err}
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", &CryptoError{Reason: "create gcm", Err: err}
	}

	if len(iv) != aesGCM.NonceSize() {
		return "", &CryptoError{Reason: "iv has wrong length"}
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", &CryptoError{Reason: "decryption failed", Err: err}
	}

	return string(plaintext), nil
}
