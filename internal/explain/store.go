package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

// Store persists explanations by key. Entries are written once: Put on an
// existing key keeps the existing value and returns it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) (string, error)
	Close() error
}

// FileStore keeps all entries in one JSON object. Writes take an exclusive
// lock on a sibling .lock file and re-read the file under it, so concurrent
// sessions never drop each other's entries.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]string
}

var _ Store = (*FileStore)(nil)

// OpenFileStore loads the cache file. A missing file is an empty cache; an
// unreadable or corrupt one is logged and treated as empty.
func OpenFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger.With(zap.String("cache", path)),
	}
	s.entries = s.read()
	return s
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *FileStore) Put(_ context.Context, key, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("lock cache: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlock explanation cache", zap.Error(err))
		}
	}()

	entries := s.read()
	if existing, ok := entries[key]; ok {
		s.entries = entries
		return existing, nil
	}
	entries[key] = value

	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode cache: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return "", fmt.Errorf("write cache: %w", err)
	}

	s.entries = entries
	return value, nil
}

// Len reports the number of entries known to this session.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() map[string]string {
	entries := map[string]string{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries
	}
	if err != nil {
		s.logger.Warn("explanation cache unreadable, starting empty", zap.Error(err))
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("explanation cache corrupt, starting empty", zap.Error(err))
		return map[string]string{}
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries
}
