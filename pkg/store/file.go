package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

const (
	dataExt  = ".graph"
	entryExt = ".entry.json"
)

// FileStore keeps each graph as a data file next to a JSON entry file.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based store.
// If baseDir is empty, defaults to ~/.local/share/spacegraph/graphs/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// DefaultDir returns the default store directory, honouring XDG_DATA_HOME.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "spacegraph", "graphs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "spacegraph", "graphs"), nil
}

func (s *FileStore) dataPath(name string) string  { return filepath.Join(s.baseDir, name+dataExt) }
func (s *FileStore) entryPath(name string) string { return filepath.Join(s.baseDir, name+entryExt) }

func (s *FileStore) Put(ctx context.Context, name string, data []byte) (Entry, error) {
	e, err := newEntry(name, data)
	if err != nil {
		return Entry{}, err
	}
	meta, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.dataPath(name), data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("write graph file: %w", err)
	}
	if err := os.WriteFile(s.entryPath(name), meta, 0o644); err != nil {
		return Entry{}, fmt.Errorf("write entry file: %w", err)
	}
	return e, nil
}

func (s *FileStore) Get(ctx context.Context, name string) ([]byte, Entry, error) {
	if err := sgerrors.ValidateMapName(name); err != nil {
		return nil, Entry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.readEntry(name)
	if err != nil {
		return nil, Entry{}, err
	}
	data, err := os.ReadFile(s.dataPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Entry{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, Entry{}, fmt.Errorf("read graph file: %w", err)
	}
	return data, e, nil
}

func (s *FileStore) readEntry(name string) (Entry, error) {
	raw, err := os.ReadFile(s.entryPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("read entry file: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("parse entry %s: %w", name, err)
	}
	return e, nil
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	var out []Entry
	for _, f := range files {
		name, ok := strings.CutSuffix(f.Name(), entryExt)
		if f.IsDir() || !ok {
			continue
		}
		e, err := s.readEntry(name)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := sgerrors.ValidateMapName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.entryPath(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove entry file: %w", err)
	}
	if err := os.Remove(s.dataPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove graph file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
