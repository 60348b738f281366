package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalUploadStorage implements port.UploadStorage on the local filesystem
type LocalUploadStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalUploadStorage creates the upload directory if needed
func NewLocalUploadStorage(baseDir string, logger *zap.Logger) (*LocalUploadStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalUploadStorage{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Save streams content into a uniquely named file that keeps the extension of originalName
func (s *LocalUploadStorage) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	fullPath := filepath.Join(s.baseDir, uuid.NewString()+ext)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Error("Failed to create upload file", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	size, copyErr := io.Copy(f, content)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(fullPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		s.logger.Error("Failed to write upload file", zap.String("path", fullPath), zap.Error(copyErr))
		return "", fmt.Errorf("failed to write upload file: %w", copyErr)
	}

	s.logger.Debug("Upload saved",
		zap.String("original_name", originalName),
		zap.String("path", fullPath),
		zap.Int64("size", size))

	return fullPath, nil
}

// Remove deletes a stored upload. Missing files are ignored.
func (s *LocalUploadStorage) Remove(ctx context.Context, fullPath string) error {
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete upload", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	s.logger.Debug("Upload removed", zap.String("path", fullPath))
	return nil
}

// RemoveOlderThan deletes regular files in the upload directory last modified before cutoff.
// It returns how many files were removed; failures on single files are logged and skipped.
func (s *LocalUploadStorage) RemoveOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		fullPath := filepath.Join(s.baseDir, entry.Name())
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			s.logger.Error("Failed to delete stale upload", zap.String("path", fullPath), zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}

// BaseDir returns the directory uploads are written to
func (s *LocalUploadStorage) BaseDir() string {
	return s.baseDir
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalUploadStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes upload directory: %s", fullPath)
	}

	return nil
}

// Verify interface compliance
var _ port.UploadStorage = (*LocalUploadStorage)(nil)
