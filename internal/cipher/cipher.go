// Package cipher implements the AES-256-CBC content cipher used for chapter
// text and the base64 display obfuscation layered on top of it.
//
// Payloads carry no authentication tag. A payload sealed under different key
// material usually fails padding or UTF-8 validation, but can decode to
// garbage without an error.
package cipher

import (
	"bytes"
	"crypto/aes"
	gocipher "crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"
)

var (
	// ErrEncrypt is returned when plaintext cannot be sealed.
	ErrEncrypt = errors.New("cipher: encrypt failed")
	// ErrDecrypt is returned for malformed or undecryptable payloads.
	ErrDecrypt = errors.New("cipher: decrypt failed")
)

// Service encrypts and decrypts chapter payloads. It is safe for concurrent
// use; its only internal state is the once-only warning about insecure key
// material.
type Service struct {
	keys   KeyResolver
	logger *slog.Logger

	insecureOnce sync.Once
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used to report failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service resolving key material through keys.
func New(keys KeyResolver, opts ...Option) *Service {
	s := &Service{keys: keys, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromEnv creates a Service that reads ENCRYPTION_KEY and ENCRYPTION_IV on
// every operation.
func NewFromEnv(opts ...Option) *Service {
	return New(EnvKeys{}, opts...)
}

// Encrypt seals plaintext and returns the base64 encoded ciphertext.
func (s *Service) Encrypt(plaintext string) (string, error) {
	block, iv, err := s.block()
	if err != nil {
		s.logger.Error("encryption error", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	gocipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a payload produced by Encrypt under the same key material.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	plain, err := s.decrypt(ciphertext)
	if err != nil {
		s.logger.Error("decryption error", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return plain, nil
}

// DecodePayload decodes a base64 payload and checks that it holds whole
// cipher blocks. It does not need key material.
func DecodePayload(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("payload length %d is not a positive multiple of %d", len(raw), aes.BlockSize)
	}
	return raw, nil
}

func (s *Service) decrypt(ciphertext string) (string, error) {
	raw, err := DecodePayload(ciphertext)
	if err != nil {
		return "", err
	}
	block, iv, err := s.block()
	if err != nil {
		return "", err
	}
	out := make([]byte, len(raw))
	gocipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	out, err = pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", errors.New("malformed UTF-8 data")
	}
	return string(out), nil
}

func (s *Service) block() (gocipher.Block, []byte, error) {
	km, err := s.keys.Resolve()
	if err != nil {
		return nil, nil, err
	}
	if km.Insecure {
		s.insecureOnce.Do(func() {
			s.logger.Warn("cipher: using insecure default key material")
		})
	}
	if len(km.IV) != aes.BlockSize {
		return nil, nil, fmt.Errorf("%w: iv must be %d bytes", ErrKeyMaterial, aes.BlockSize)
	}
	block, err := aes.NewCipher(km.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrKeyMaterial, err)
	}
	return block, km.IV, nil
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, errors.New("invalid padding")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
