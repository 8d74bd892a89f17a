// Package testutil provides shared test helpers for setting up vaults, indexes
// and sealed chapter files.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/index"
	"github.com/starford/novelcipher/internal/parser"
	"github.com/starford/novelcipher/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "novelcipher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Cipher returns a cipher service keyed with the insecure defaults.
func Cipher(t *testing.T) *cipher.Service {
	t.Helper()
	km, err := cipher.NewKeyMaterial("", "", true)
	if err != nil {
		t.Fatal(err)
	}
	return cipher.New(cipher.StaticKeys(km), cipher.WithLogger(Logger()))
}

// SealedChapter encrypts plaintext with svc and returns a complete chapter file.
func SealedChapter(t *testing.T, svc *cipher.Service, number int, title, plaintext string) []byte {
	t.Helper()
	ct, err := svc.Encrypt(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	data, err := parser.Compose(parser.Header{Chapter: number, Title: title}, ct)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
