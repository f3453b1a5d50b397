// Package storage keeps uploaded post images on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"feedql/internal/middleware"
	"feedql/internal/models"
	"feedql/internal/observability"
)

// URLPrefix is the public path prefix of every stored image.
const URLPrefix = "images/"

// ErrInvalidPath is returned for paths that do not name a stored image.
var ErrInvalidPath = errors.New("invalid image path")

var allowedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpg":  {},
	"image/jpeg": {},
}

// ImageStore saves uploads under dir and serves them as images/<name>.
type ImageStore struct {
	dir string
	now func() time.Time
	wg  sync.WaitGroup
}

// NewImageStore creates dir if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &ImageStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory images are written to.
func (s *ImageStore) Dir() string { return s.dir }

// Save stores fh and returns its public path. Files that are not PNG or JPEG
// are skipped and yield an empty path with no error.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", nil
	}
	mime := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if _, ok := allowedTypes[mime]; !ok {
		observability.ImagesStored.WithLabelValues("rejected").Inc()
		return "", nil
	}

	name := s.fileName(fh.Filename)
	src, err := fh.Open()
	if err != nil {
		observability.ImagesStored.WithLabelValues("error").Inc()
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		observability.ImagesStored.WithLabelValues("error").Inc()
		return "", fmt.Errorf("create image: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		observability.ImagesStored.WithLabelValues("error").Inc()
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := dst.Close(); err != nil {
		observability.ImagesStored.WithLabelValues("error").Inc()
		return "", fmt.Errorf("close image: %w", err)
	}

	observability.ImagesStored.WithLabelValues("stored").Inc()
	return URLPrefix + name, nil
}

func (s *ImageStore) fileName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	stamp := s.now().UTC().Format("2006-01-02T15-04-05.000Z")
	return stamp + "-" + base
}

func (s *ImageStore) resolve(path string) (string, error) {
	name := strings.TrimPrefix(filepath.ToSlash(path), "/")
	name = strings.TrimPrefix(name, URLPrefix)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a stored image.
func (s *ImageStore) Remove(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Discard removes path in the background. Failures are logged, never returned.
// The empty path and the unchanged-image sentinel are ignored.
func (s *ImageStore) Discard(path string) {
	if path == "" || path == models.ImageUnchanged {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Remove(path); err != nil {
			observability.ImageCleanupFailures.Inc()
			middleware.Logger.Warn("Failed to remove image",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until pending Discard calls finish.
func (s *ImageStore) Wait() {
	s.wg.Wait()
}
