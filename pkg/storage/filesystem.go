package storage

import (
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadStorage persists uploaded files on disk under a base directory.
// Files are grouped by kind ("avatar", "thumbnail") in subdirectories.
type UploadStorage struct {
	baseDir     string
	allowedExts map[string]struct{}
	maxSize     int64
}

// NewUploadStorage ensures the base directory exists and returns a handle.
func NewUploadStorage(baseDir string, allowedExts []string, maxSize int64) (*UploadStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	extSet := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	return &UploadStorage{baseDir: baseDir, allowedExts: extSet, maxSize: maxSize}, nil
}

// Validate checks the upload's extension and declared size against the
// configured limits before any bytes are written.
func (s *UploadStorage) Validate(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if len(s.allowedExts) > 0 {
		if _, ok := s.allowedExts[ext]; !ok {
			return fmt.Errorf("wrong extension type")
		}
	}
	if s.maxSize > 0 && header.Size > s.maxSize {
		return fmt.Errorf("file size is too large")
	}
	return nil
}

// Save stores the uploaded file under the given kind and returns its
// relative path (e.g. "avatar/1706753270-123456789.png").
func (s *UploadStorage) Save(kind string, header *multipart.FileHeader) (string, error) {
	if err := s.Validate(header); err != nil {
		return "", err
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close() //nolint:errcheck

	name := uniqueName(header.Filename)
	rel := filepath.Join(kind, name)
	path := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close() //nolint:errcheck

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Open returns a read-only handle for the stored file.
func (s *UploadStorage) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *UploadStorage) Delete(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

func (s *UploadStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}

func uniqueName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d-%d%s", time.Now().Unix(), rand.Int63n(1e9), ext)
}
