// Package images validates product image uploads and stores them on disk.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"invoicing/internal/apperr"
)

// DefaultMaxBytes is the upload limit used when Store.MaxBytes is zero.
const DefaultMaxBytes int64 = 5 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Store writes validated images under Dir.
type Store struct {
	Dir      string
	MaxBytes int64
}

// New returns a Store rooted at dir.
func New(dir string, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{Dir: dir, MaxBytes: maxBytes}
}

// Check validates data without writing it and returns its MIME type.
func (s *Store) Check(data []byte) (string, error) {
	size := int64(len(data))
	mt := mimetype.Detect(data)
	format := mt.String()

	if size == 0 {
		return "", apperr.NewImageProcessing(format, size,
			apperr.WithUserMessage("El archivo de imagen está vacío"))
	}
	if size > s.maxBytes() {
		return "", apperr.NewImageProcessing(format, size,
			apperr.WithInternalMessage(fmt.Sprintf("image of %d bytes exceeds limit of %d", size, s.maxBytes())),
			apperr.WithUserMessage(fmt.Sprintf("La imagen supera el tamaño máximo de %d MB", s.maxBytes()>>20)))
	}

	canonical := ""
	for m := range extensions {
		if mt.Is(m) {
			canonical = m
		}
	}
	if canonical == "" {
		return "", apperr.NewImageProcessing(format, size,
			apperr.WithInternalMessage("unsupported image format "+format),
			apperr.WithUserMessage("Formato de imagen no soportado. Use JPEG, PNG o WebP"))
	}

	// WebP has no decoder in the standard library; its signature check is
	// what mimetype already did.
	if canonical != "image/webp" {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", apperr.NewImageProcessing(format, size, apperr.WithCause(err),
				apperr.WithInternalMessage("corrupt image header: "+err.Error()),
				apperr.WithUserMessage("La imagen está dañada o no se puede leer"))
		}
	}
	return canonical, nil
}

// Save validates data and writes it as <Dir>/products/<id><ext>, replacing
// any previous image. It returns the path relative to Dir.
func (s *Store) Save(productID int64, data []byte) (string, error) {
	format, err := s.Check(data)
	if err != nil {
		return "", err
	}

	rel := filepath.Join("products", strconv.FormatInt(productID, 10)+extensions[format])
	full := filepath.Join(s.Dir, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", s.fileError(filepath.Dir(rel), "mkdir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", s.fileError(rel, "create", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", s.fileError(rel, "write", err)
	}
	if err := tmp.Close(); err != nil {
		return "", s.fileError(rel, "write", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", s.fileError(rel, "rename", err)
	}
	return rel, nil
}

// fileError reports rel, a path under Dir, to clients. The absolute path
// only reaches the internal message.
func (s *Store) fileError(rel, op string, err error) error {
	return apperr.NewFileOperation(rel, op, apperr.WithCause(err),
		apperr.WithInternalMessage(fmt.Sprintf("file operation %s failed on %s: %v", op, filepath.Join(s.Dir, rel), err)))
}

func (s *Store) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}
