package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yigit/substitutions/internal/pkg/apperrors"
)

// FileSource reads the rules document from the local filesystem.
type FileSource struct {
	path     string
	maxBytes int64
}

// NewFileSource creates a FileSource for path
func NewFileSource(path string, maxBytes int64) *FileSource {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return &FileSource{path: path, maxBytes: maxBytes}
}

// Path returns the watched file path
func (s *FileSource) Path() string {
	return s.path
}

// Describe implements Source
func (s *FileSource) Describe() string {
	return "file://" + s.path
}

// Fetch implements Source
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", apperrors.ErrSourceUnavailable, s.path, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", apperrors.ErrInvalidPayload, s.path, s.maxBytes)
	}
	return body, nil
}
