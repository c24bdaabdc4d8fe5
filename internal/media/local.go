// Package media stores visitor photos on local disk.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
)

// ErrInvalidImage is returned when the payload cannot be decoded as an image.
var ErrInvalidImage = errors.New("payload is not a decodable image")

const visitorsDir = "visitors"

// Local writes re-encoded JPEGs under a base directory served at urlPrefix.
type Local struct {
	baseDir   string
	urlPrefix string
	maxWidth  int
	quality   int
}

// NewLocal creates a Local store, creating baseDir if needed.
func NewLocal(baseDir, urlPrefix string, maxWidth, quality int) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, visitorsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Local{
		baseDir:   baseDir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxWidth:  maxWidth,
		quality:   quality,
	}, nil
}

// SaveVisitPhoto decodes data, shrinks it to the configured width and writes it
// as visitors/visit_<id>_<ulid>.jpg. It returns the path relative to the base dir.
// A fresh name per upload keeps the previous file readable until the database
// points at the new one.
func (l *Local) SaveVisitPhoto(visitID int64, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if l.maxWidth > 0 && img.Bounds().Dx() > l.maxWidth {
		img = imaging.Resize(img, l.maxWidth, 0, imaging.Lanczos)
	}

	rel := path.Join(visitorsDir, fmt.Sprintf("visit_%d_%s.jpg", visitID, ulid.Make().String()))
	full := filepath.Join(l.baseDir, filepath.FromSlash(rel))

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(l.quality)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to flush photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return rel, nil
}

// URL maps a stored relative path to its public URL. Empty paths map to "".
func (l *Local) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return l.urlPrefix + "/" + strings.TrimPrefix(rel, "/")
}

// Remove deletes a stored file. Missing files are not an error.
func (l *Local) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	clean := path.Clean("/" + rel)
	err := os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Dir is the directory served at the URL prefix.
func (l *Local) Dir() string { return l.baseDir }

// URLPrefix is the public prefix stored files are served under.
func (l *Local) URLPrefix() string { return l.urlPrefix }
