// Package storage provides local filesystem persistence for downloaded
// message attachments.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttachmentStore writes downloaded attachments under a base directory,
// one subdirectory per scope (typically the message or requester id).
type AttachmentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewAttachmentStore creates a new AttachmentStore
func NewAttachmentStore(baseDir string, logger *zap.Logger) *AttachmentStore {
	return &AttachmentStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes attachment content to disk and returns the absolute path.
// File names are prefixed with a random identifier so repeated uploads of
// the same file never collide.
func (s *AttachmentStore) Save(scope, fileName string, content []byte) (string, error) {
	name := sanitizeFileName(fileName)
	relPath := filepath.Join(scope, fmt.Sprintf("%s_%s", uuid.NewString(), name))

	fullPath := filepath.Join(s.baseDir, relPath)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create attachment directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write attachment",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Attachment saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Remove deletes a previously saved attachment. Missing files are not an error.
func (s *AttachmentStore) Remove(path string) error {
	if err := s.validatePath(path); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// sanitizeFileName strips path components and unsafe characters from a
// client-supplied file name.
func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "\x00", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "attachment"
	}
	return name
}

// validatePath checks that the path is safe and within baseDir
func (s *AttachmentStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
