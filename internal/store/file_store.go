package store

import (
	"context"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// fileStore keeps every key in one JSON document, rewritten atomically
// (temp file + rename) on each Set.
type fileStore struct {
	filePath string
	mu       sync.RWMutex
	state    map[string]json.RawMessage
}

func NewFileStore(filePath string) (GlobalStateStore, error) {
	s := &fileStore{
		filePath: filePath,
		state:    make(map[string]json.RawMessage),
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", filePath).Msg("Global state file not found, starting fresh.")
			return s, nil
		}
		log.Error().Err(err).Str("file", filePath).Msg("Failed to read global state file")
		return nil, err
	}
	if len(data) == 0 {
		log.Warn().Str("file", filePath).Msg("Global state file is empty, starting fresh.")
		return s, nil
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		log.Error().Err(err).Str("file", filePath).Msg("Failed to unmarshal global state file")
		return nil, err
	}
	log.Debug().Str("file", filePath).Int("keys", len(s.state)).Msg("Loaded global state")
	return s, nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *fileStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.state[key]
	s.state[key] = json.RawMessage(append([]byte(nil), value...))
	if err := s.flush(); err != nil {
		if existed {
			s.state[key] = previous
		} else {
			delete(s.state, key)
		}
		return err
	}
	return nil
}

func (s *fileStore) flush() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal global state")
		return err
	}

	tempFilePath := s.filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0644); err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary global state file")
		return err
	}
	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", s.filePath).Msg("Failed to rename global state file")
		_ = os.Remove(tempFilePath)
		return err
	}
	return nil
}

func (s *fileStore) Close() error {
	return nil
}
