package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidPath = errors.New("blob path escapes storage root")
)

// Storage holds uploaded source material until it is indexed.
type Storage interface {
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
}

type fileStorage struct {
	root   string
	logger *logger_i.Logger
}

// NewFileStorage keeps blobs as files under root, creating it if needed.
func NewFileStorage(root string) (Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &fileStorage{root: abs, logger: logger_i.NewLogger("Blob Storage")}, nil
}

func (s *fileStorage) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(path))
	full := filepath.Join(s.root, clean)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

func (s *fileStorage) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

func (s *fileStorage) Upload(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
		return err
	}
	s.logger.FromContext(ctx, config.TRACE_ID_KEY).Debug("storing blob", "path", path, "bytes", len(data))
	return os.WriteFile(full, data, 0640)
}

func (s *fileStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
