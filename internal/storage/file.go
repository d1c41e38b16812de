package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/upstream"
	"go.uber.org/zap"
)

const extension = ".json"

// FileStore keeps one pretty-printed JSON file per artifact under
// <base>/<category>/<key>.json.
type FileStore struct {
	base   string
	codec  *extract.Codec
	logger *zap.Logger
}

// NewFileStore creates the category directories under base.
func NewFileStore(base string, codec *extract.Codec, log *zap.Logger) (*FileStore, error) {
	if base == "" {
		return nil, errors.New("storage base path is required")
	}
	if codec == nil {
		codec = extract.NewCodec()
	}

	for _, category := range Categories {
		dir := filepath.Join(base, category)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, upstream.Wrap("create directory", dir, err)
		}
	}

	return &FileStore{
		base:   base,
		codec:  codec,
		logger: logger.WithFields(log, zap.String("storage", "file")),
	}, nil
}

// Codec returns the codec artifacts are encoded with.
func (s *FileStore) Codec() *extract.Codec {
	return s.codec
}

// Path returns the file an artifact is stored in.
func (s *FileStore) Path(category, key string) string {
	return filepath.Join(s.base, category, key+extension)
}

func (s *FileStore) Save(ctx context.Context, category, key string, v any) error {
	path := s.Path(category, key)
	if err := validate(category, key); err != nil {
		return upstream.Wrap("save", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.Encode(v)
	if err != nil {
		return upstream.Wrap("save", path, err)
	}

	if err := writeAtomic(path, data); err != nil {
		return upstream.Wrap("save", path, err)
	}

	s.logger.Debug("artifact saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) Load(ctx context.Context, category, key string, out any) error {
	path := s.Path(category, key)
	if err := validate(category, key); err != nil {
		return upstream.Wrap("load", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return upstream.Wrap("load", path, fmt.Errorf("%w: %w", ErrNotFound, err))
	}
	if err != nil {
		return upstream.Wrap("load", path, err)
	}

	if err := s.codec.Unmarshal(data, out); err != nil {
		return upstream.Wrap("load", path, err)
	}
	return nil
}

// writeAtomic writes through a temporary file in the target directory so a
// concurrent reader never sees a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
