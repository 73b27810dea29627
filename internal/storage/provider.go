// Package storage defines the schema source file-system abstraction.
package storage

import "github.com/starford/schemafill/internal/models"

// Provider is the interface for schema source and output file operations.
type Provider interface {
	// List returns metadata for every schema source under dir (relative to
	// the root), sorted by path.
	List(dir string) ([]models.SourceMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
