// Package storage defines the content-directory abstraction.
package storage

import (
	"fmt"
	"regexp"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/models"
)

// Ext is the file extension every page is stored under.
const Ext = ".md"

const maxKeyLen = 64

var keyRe = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Provider is the interface for page file operations.
type Provider interface {
	// List returns metadata for every page in the content directory.
	List() ([]models.PageMetadata, error)
	// Read returns the raw Markdown stored under key.
	Read(key string) ([]byte, error)
	// Write atomically replaces (or creates) the Markdown stored under key.
	Write(key string, content []byte) error
	// Root returns the absolute content directory.
	Root() string
}

// ValidateKey reports whether key is a filesystem-safe page slug.
func ValidateKey(key string) error {
	if len(key) == 0 || len(key) > maxKeyLen || !keyRe.MatchString(key) {
		return fmt.Errorf("%w: invalid page key %q", apperr.ErrValidation, key)
	}
	return nil
}

// KeyFromFilename returns the page key for a content file name, or false
// when the name is not a page file.
func KeyFromFilename(name string) (string, bool) {
	if len(name) <= len(Ext) || name[len(name)-len(Ext):] != Ext {
		return "", false
	}
	key := name[:len(name)-len(Ext)]
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}
