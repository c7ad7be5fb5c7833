package store

import (
	"apim-analytics-backend/config"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

var (
	ErrStateNotFound = errors.New("global state not found")
)

// GlobalStateStore is the process-wide keyed store shared by every widget
// instance. Values are opaque JSON documents. Each call is atomic on its own,
// but callers doing read-modify-write get last-writer-wins semantics.
type GlobalStateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

func NewGlobalStateStore(lc fx.Lifecycle, cfg *config.Config) (GlobalStateStore, error) {
	var (
		s   GlobalStateStore
		err error
	)
	switch cfg.GlobalState.Backend {
	case "", "memory":
		s = NewInMemoryStore()
	case "file":
		s, err = NewFileStore(cfg.GlobalState.Path)
	case "badger":
		s, err = NewBadgerStore(cfg.GlobalState.Path)
	default:
		return nil, fmt.Errorf("unsupported global state backend: %s", cfg.GlobalState.Backend)
	}
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.GlobalState.Backend).Msg("Failed to open global state store")
		return nil, err
	}
	log.Info().Str("backend", cfg.GlobalState.Backend).Str("path", cfg.GlobalState.Path).Msg("Global state store initialized")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing global state store")
			return s.Close()
		},
	})
	return s, nil
}
