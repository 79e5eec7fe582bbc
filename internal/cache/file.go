package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const fileExt = ".json"

// FileBackend keeps one JSON file per entry in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the backing directory.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(hash string) string {
	return filepath.Join(b.dir, hash+fileExt)
}

func (b *FileBackend) Read(_ context.Context, hash string) ([]byte, error) {
	data, err := os.ReadFile(b.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: read file")
	}
	return data, nil
}

// Write stages the entry in a temp file and renames it into place.
func (b *FileBackend) Write(_ context.Context, hash string, entry []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return eris.Wrap(err, "cache: create dir")
	}
	tmp, err := os.CreateTemp(b.dir, hash+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(entry); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "cache: close temp file")
	}
	if err := os.Rename(tmpName, b.path(hash)); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "cache: rename temp file")
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, hash string) error {
	err := os.Remove(b.path(hash))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrap(err, "cache: remove file")
	}
	return nil
}

func (b *FileBackend) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: read dir")
	}
	var hashes []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		hashes = append(hashes, strings.TrimSuffix(e.Name(), fileExt))
	}
	return hashes, nil
}

func (b *FileBackend) DeleteAll(ctx context.Context) (int, error) {
	hashes, err := b.Keys(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, h := range hashes {
		if err := b.Delete(ctx, h); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (b *FileBackend) Close() error { return nil }
