// Package vault mirrors the knowledge base as a folder of Markdown files with
// YAML frontmatter, and syncs edits in both directions.
package vault

import "time"

// FileInfo describes one Markdown file in the vault.
type FileInfo struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for vault file operations. Paths are relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
