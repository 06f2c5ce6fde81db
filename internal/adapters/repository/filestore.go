package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/animpath/internal/domain/path"
)

const assetExt = ".yaml"

// FileStore keeps each asset as <dir>/<name>.yaml.
type FileStore struct {
	dir  string
	mode os.FileMode
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir, creating it when missing.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{dir: dir, mode: 0o644}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return s, nil
}

// Dir returns the asset directory.
func (s *FileStore) Dir() string { return s.dir }

// File returns the file an asset is stored in.
func (s *FileStore) File(name string) string {
	return filepath.Join(s.dir, name+assetExt)
}

// Save writes the asset through a temporary file so readers never see a
// partial document.
func (s *FileStore) Save(ctx context.Context, name string, st path.State) (err error) {
	start := time.Now()
	defer func() { observe("file", "save", start, err) }()
	if err = ValidateName(name); err != nil {
		return err
	}
	b, err := Encode(st)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err = tmp.Chmod(s.mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err = os.Rename(tmp.Name(), s.File(name)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Load reads and decodes an asset.
func (s *FileStore) Load(ctx context.Context, name string) (st path.State, err error) {
	start := time.Now()
	defer func() { observe("file", "load", start, err) }()
	if err = ValidateName(name); err != nil {
		return path.State{}, err
	}
	b, err := os.ReadFile(s.File(name))
	if errors.Is(err, fs.ErrNotExist) {
		return path.State{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return path.State{}, fmt.Errorf("load %s: %w", name, err)
	}
	return Decode(b)
}

// Exists reports whether the asset file exists.
func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.File(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// List returns the names of all assets in the directory.
func (s *FileStore) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() { observe("file", "list", start, err) }()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || filepath.Ext(n) != assetExt {
			continue
		}
		names = append(names, strings.TrimSuffix(n, assetExt))
	}
	sort.Strings(names)
	return names, nil
}
