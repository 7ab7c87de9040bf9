package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/bzik/backend/internal/model/chat"
)

// FileStore keeps every conversation in memory and mirrors the whole map to one JSON
// file. Each write goes to a temp file in the same directory, is fsynced and then
// renamed over the durable file, so a crash leaves either the old or the new content.
type FileStore struct {
	path   string
	limit  int
	logger zerolog.Logger

	mu      sync.RWMutex
	data    map[string][]chat.Turn
	version uint64

	writeMu sync.Mutex
	written uint64

	// rename is os.Rename; tests replace it to simulate a crash before the swap.
	rename func(oldpath, newpath string) error
}

// FileOption customizes a FileStore.
type FileOption func(*FileStore)

// WithFileCap overrides the per-user turn cap.
func WithFileCap(limit int) FileOption {
	return func(s *FileStore) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(logger zerolog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// OpenFile loads path if it exists. A missing file means an empty store; an
// unparseable one is logged and ignored. Only an unreadable directory is an error.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		limit:  DefaultCap,
		logger: zerolog.Nop(),
		data:   make(map[string][]chat.Turn),
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "conversation.file").Logger()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create conversation directory: %w", err)
		}
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		s.logger.Warn().Err(err).Str("path", path).Msg("读取对话文件失败，使用空存储")
		return s, nil
	}
	if len(raw) == 0 {
		return s, nil
	}

	var stored map[string][]chat.Turn
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("对话文件损坏，使用空存储")
		return s, nil
	}
	for userID, turns := range stored {
		s.data[userID] = chat.Tail(chat.Clean(turns), s.limit)
	}
	s.logger.Info().Int("users", len(s.data)).Str("path", path).Msg("对话记录已加载")
	return s, nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, userID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.Clean(s.data[userID]), nil
}

// Append implements Store. On a failed write the in-memory view keeps the new turns
// and the error wraps ErrPersist.
func (s *FileStore) Append(_ context.Context, userID string, turns ...chat.Turn) ([]chat.Turn, error) {
	s.mu.Lock()
	updated := bound(s.data[userID], s.limit, turns...)
	s.data[userID] = updated
	s.version++
	version := s.version
	snapshot, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()

	stored := make([]chat.Turn, len(updated))
	copy(stored, updated)

	if err != nil {
		return stored, fmt.Errorf("%w: encode: %v", ErrPersist, err)
	}
	if err := s.persist(version, snapshot); err != nil {
		return stored, err
	}
	return stored, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) persist(version uint64, snapshot []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// a newer snapshot already reached disk
	if version <= s.written {
		return nil
	}
	if err := s.writeAtomic(snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	s.written = version
	return nil
}

func (s *FileStore) writeAtomic(snapshot []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(snapshot); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
