package cipher

import (
	"errors"
	"fmt"
	"os"
)

// Insecure fallback key material. These values ship with the client and are
// public; they exist only so a development build can round-trip content.
const (
	InsecureDefaultKey = "0123456789abcdef0123456789abcdef"
	InsecureDefaultIV  = "abcdef9876543210"
)

// Environment variables consulted by EnvKeys.
const (
	EnvKey = "ENCRYPTION_KEY"
	EnvIV  = "ENCRYPTION_IV"
)

const (
	keySize = 32
	ivSize  = 16
)

// ErrKeyMaterial is returned when a key or IV has the wrong size or is
// missing and the insecure fallback is not allowed.
var ErrKeyMaterial = errors.New("cipher: invalid key material")

// KeyMaterial is an AES-256 key and a CBC initialization vector.
type KeyMaterial struct {
	Key []byte
	IV  []byte
	// Insecure is set when either value came from the built-in fallback.
	Insecure bool
}

// NewKeyMaterial builds key material from the UTF-8 bytes of key and iv.
// Empty values are replaced by the insecure defaults when allowInsecure is
// true and rejected otherwise.
func NewKeyMaterial(key, iv string, allowInsecure bool) (KeyMaterial, error) {
	var km KeyMaterial
	if key == "" || iv == "" {
		if !allowInsecure {
			return KeyMaterial{}, fmt.Errorf("%w: key and iv are required", ErrKeyMaterial)
		}
		km.Insecure = true
	}
	if key == "" {
		key = InsecureDefaultKey
	}
	if iv == "" {
		iv = InsecureDefaultIV
	}
	if len(key) != keySize {
		return KeyMaterial{}, fmt.Errorf("%w: key must be %d bytes, got %d", ErrKeyMaterial, keySize, len(key))
	}
	if len(iv) != ivSize {
		return KeyMaterial{}, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrKeyMaterial, ivSize, len(iv))
	}
	km.Key = []byte(key)
	km.IV = []byte(iv)
	return km, nil
}

// KeyResolver yields the key material for one cipher operation.
type KeyResolver interface {
	Resolve() (KeyMaterial, error)
}

// StaticKeys resolves to the same key material on every call.
type StaticKeys KeyMaterial

// Resolve implements KeyResolver.
func (s StaticKeys) Resolve() (KeyMaterial, error) {
	return KeyMaterial(s), nil
}

// EnvKeys reads ENCRYPTION_KEY and ENCRYPTION_IV on every call, falling back
// to the insecure defaults for absent values.
type EnvKeys struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Resolve implements KeyResolver.
func (e EnvKeys) Resolve() (KeyMaterial, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	key, _ := lookup(EnvKey)
	iv, _ := lookup(EnvIV)
	return NewKeyMaterial(key, iv, true)
}
