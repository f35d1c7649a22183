package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SheetArchive implements port.SheetStore on the local filesystem.
// Files are grouped into one folder per year: {baseDir}/{yyyy}/{name}.
type SheetArchive struct {
	baseDir string
	logger  *zap.Logger
	now     func() time.Time
}

// NewSheetArchive creates a new SheetArchive
func NewSheetArchive(baseDir string, logger *zap.Logger) *SheetArchive {
	return &SheetArchive{
		baseDir: baseDir,
		logger:  logger,
		now:     time.Now,
	}
}

// Save writes content under the year folder and returns the full path.
// An existing file with the same name is replaced.
func (s *SheetArchive) Save(ctx context.Context, name string, content []byte) (string, error) {
	safeName := SanitizeName(name)
	if safeName == "" {
		return "", fmt.Errorf("cannot save sheet: empty name")
	}

	fullPath := s.GetFullPath(filepath.Join(fmt.Sprintf("%d", s.now().Year()), safeName))
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create archive folder",
			zap.String("path", parentDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// write then rename so readers never see a partial workbook
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		s.logger.Error("Failed to write sheet",
			zap.String("path", tmp),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Info("Approval sheet archived",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Read returns the content of an archived sheet by its path relative to baseDir
func (s *SheetArchive) Read(ctx context.Context, relativePath string) ([]byte, error) {
	fullPath := s.GetFullPath(relativePath)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// GetFullPath converts a relative path to full path
func (s *SheetArchive) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

// validatePath checks that the path stays within baseDir
func (s *SheetArchive) validatePath(fullPath string) error {
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

// SanitizeName returns a filesystem-safe file name.
// Path separators and parent references are removed; only alphanumerics, '-', '_' and '.' remain.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeNameChars.ReplaceAllString(name, "")
}

var _ port.SheetStore = (*SheetArchive)(nil)
