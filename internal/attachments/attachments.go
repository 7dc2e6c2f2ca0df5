// Package attachments stores uploaded capture files in a flat directory.
package attachments

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/secondbrain/internal/apperr"
)

// MaxSize is the largest accepted file.
const MaxSize = 50 << 20 // 50 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".pdf": true,
	}

	mimeToExt = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Store keeps attachments under one directory.
type Store struct {
	dir string
}

// New creates a Store, creating dir if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("attachments: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("attachments: create dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute attachments directory.
func (s *Store) Dir() string { return s.dir }

// Resolve validates that name is a plain file name (no separators, no
// traversal) and returns its absolute path.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: filename is required", apperr.ErrInvalid)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: invalid filename: %s", apperr.ErrInvalid, name)
	}
	abs := filepath.Join(s.dir, cleaned)
	if !strings.HasPrefix(abs, s.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: path escapes attachments directory", apperr.ErrInvalid)
	}
	return abs, nil
}

// Save validates and writes data, returning the stored file name. The name is
// sanitized and prefixed to stay unique; its extension must match the content.
func (s *Store) Save(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", apperr.ErrInvalid)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%w: file too large: %d bytes (max %d)", apperr.ErrInvalid, len(data), MaxSize)
	}
	name = SanitizeFilename(name)
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = DetectExt(data)
		name += ext
	}
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, pdf)", apperr.ErrInvalid, ext)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return "", err
	}

	stored := uuid.NewString()[:8] + "-" + name
	abs, err := s.Resolve(stored)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("attachments: create %s: %w", stored, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(abs)
		return "", fmt.Errorf("attachments: write %s: %w", stored, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("attachments: close %s: %w", stored, err)
	}
	return stored, nil
}

// ExtForMIME maps a content type to a file extension, or "".
func ExtForMIME(contentType string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(contentType, ";")[0])]
}

// DetectExt sniffs the content type of data and returns the matching extension, or "".
func DetectExt(data []byte) string {
	return ExtForMIME(http.DetectContentType(data))
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = uuid.NewString()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	detected := http.DetectContentType(data)
	got := ExtForMIME(detected)
	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrInvalid, ext, detected)
		}
	default:
		if got != ext {
			return fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrInvalid, ext, detected)
		}
	}
	return nil
}
