// Package models defines the domain types for NovelCipher.
package models

import "time"

// Chapter is a parsed chapter file from the vault. Ciphertext is the
// payload exactly as delivered to readers.
type Chapter struct {
	Path        string         `json:"path"`
	Number      int            `json:"number"`
	Title       string         `json:"title"`
	Tags        []string       `json:"tags,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Ciphertext  string         `json:"ciphertext"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FileMetadata is a lightweight representation returned by vault listings.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
