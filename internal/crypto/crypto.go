package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize = 16
	IVSize   = 16
	KeySize  = 32 // AES-256

	// Iterations is the PBKDF2 stretch count. Part of the interop contract:
	// chunks encrypted with a different count cannot be decrypted.
	Iterations = 100000

	MinPasswordLen = 8
)

var (
	// ErrDecryptionFailed covers wrong password and corrupted ciphertext.
	// CBC has no authentication tag, so the two are not distinguishable:
	// detection is via invalid padding or invalid UTF-8 after decryption.
	ErrDecryptionFailed = errors.New("decryption failed: wrong password or corrupted data")

	ErrTransportTooShort = errors.New("encrypted payload shorter than salt and iv")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
)

// Engine performs password-based chunk encryption. Callers that hold no
// Engine simply cannot encrypt; there is no global capability flag.
type Engine struct {
	rand io.Reader
}

func NewEngine() *Engine {
	return &Engine{rand: rand.Reader}
}

// ValidatePassword enforces the policy every caller of Encrypt must satisfy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// Encrypt encrypts one chunk body with AES-256-CBC. Salt and IV are freshly
// random on every call, so identical bodies never produce identical
// ciphertext.
func (e *Engine) Encrypt(plaintext, password string) (ciphertext, salt, iv []byte, err error) {
	if err := ValidatePassword(password); err != nil {
		return nil, nil, nil, err
	}

	salt = make([]byte, SaltSize)
	if _, err := io.ReadFull(e.rand, salt); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(e.rand, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	key := deriveKey(password, salt)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	padded := pad([]byte(plaintext))
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, salt, iv, nil
}

// Decrypt reverses Encrypt. A wrong password surfaces as ErrDecryptionFailed;
// see the error's doc for why this is heuristic.
func (e *Engine) Decrypt(ciphertext, salt, iv []byte, password string) (string, error) {
	if len(salt) != SaltSize || len(iv) != IVSize {
		return "", fmt.Errorf("%w: bad salt or iv length", ErrDecryptionFailed)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecryptionFailed)
	}

	key := deriveKey(password, salt)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpad(padded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid utf-8", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// EncodeTransport packs salt || iv || ciphertext into a base64 string for
// embedding in the text grammar.
func EncodeTransport(ciphertext, salt, iv []byte) string {
	combined := make([]byte, 0, len(salt)+len(iv)+len(ciphertext))
	combined = append(combined, salt...)
	combined = append(combined, iv...)
	combined = append(combined, ciphertext...)
	return base64.StdEncoding.EncodeToString(combined)
}

// DecodeTransport is the inverse of EncodeTransport.
func DecodeTransport(s string) (ciphertext, salt, iv []byte, err error) {
	combined, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode encrypted payload: %w", err)
	}
	if len(combined) < SaltSize+IVSize {
		return nil, nil, nil, ErrTransportTooShort
	}
	salt = combined[:SaltSize]
	iv = combined[SaltSize : SaltSize+IVSize]
	ciphertext = combined[SaltSize+IVSize:]
	return ciphertext, salt, iv, nil
}

// pad applies PKCS7 padding up to the AES block size.
func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
