package filestate

import (
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// FileOffsets maps an access-log path to the byte offset already shipped.
type FileOffsets map[string]int64

type Manager interface {
	LoadState() (FileOffsets, error)
	SaveState(state FileOffsets) error
	GetStateFilePath() string
}

type fileStateManager struct {
	filePath string
	mu       sync.RWMutex
}

func NewManager(filePath string) Manager {
	return &fileStateManager{
		filePath: filePath,
	}
}

// LoadState returns the saved offsets; a missing or empty file means
// nothing has been shipped yet.
func (m *fileStateManager) LoadState() (FileOffsets, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", m.filePath).Msg("Offset file not found, starting fresh.")
			return make(FileOffsets), nil
		}
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to read offset file")
		return nil, err
	}

	if len(data) == 0 {
		log.Warn().Str("file", m.filePath).Msg("Offset file is empty, starting fresh.")
		return make(FileOffsets), nil
	}
	state := make(FileOffsets)
	if err := json.Unmarshal(data, &state); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal offset file")
		return nil, err
	}

	log.Debug().Str("file", m.filePath).Int("files_tracked", len(state)).Msg("Loaded file offsets")
	return state, nil
}

// SaveState replaces the offset file through a temporary file and rename.
func (m *fileStateManager) SaveState(state FileOffsets) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal file offsets")
		return err
	}

	tempFilePath := m.filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0o644); err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary offset file")
		return err
	}

	if err := os.Rename(tempFilePath, m.filePath); err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", m.filePath).Msg("Failed to rename offset file")
		_ = os.Remove(tempFilePath)
		return err
	}
	log.Debug().Str("file", m.filePath).Int("files_tracked", len(state)).Msg("Saved file offsets")
	return nil
}

func (m *fileStateManager) GetStateFilePath() string {
	return m.filePath
}
