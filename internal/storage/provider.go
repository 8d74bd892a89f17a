// Package storage defines the chapter vault file-system abstraction.
package storage

import "github.com/starford/novelcipher/internal/models"

// Provider is the interface for vault file operations. Paths are relative
// to the vault root.
type Provider interface {
	// List returns metadata for every chapter file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute vault directory.
	Root() string
}

// ChapterExt is the extension of chapter files.
const ChapterExt = ".md"
