package timescaledb

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

type timescaleEventStore struct {
	pool      *pgxpool.Pool
	tableName string
}

const (
	requestEventsTableName = "api_request_events"
	colTime                = "time"
	colAPIName             = "api_name"
	colAPIVersion          = "api_version"
	colAPICreator          = "api_creator"
	colPlatform            = "platform"
	colUserAgent           = "user_agent"
)

var eventColumns = []string{colTime, colAPIName, colAPIVersion, colAPICreator, colPlatform, colUserAgent}

// ProvideTimescaleDBPool connects to TimescaleDB and makes sure the request
// event hypertable exists. It returns nil values when TimescaleDB is disabled.
func ProvideTimescaleDBPool(lc fx.Lifecycle, cfg *config.Config) (repository.EventRepository, *pgxpool.Pool, error) {
	if !cfg.TimescaleDB.Enabled {
		log.Info().Msg("TimescaleDB disabled, skipping connection")
		return nil, nil, nil
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.TimescaleDB.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse TimescaleDB DSN")
		return nil, nil, fmt.Errorf("invalid TimescaleDB DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to TimescaleDB")
		return nil, nil, fmt.Errorf("failed to connect to TimescaleDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping TimescaleDB")
		return nil, nil, fmt.Errorf("failed to ping TimescaleDB: %w", err)
	}
	log.Info().Msg("TimescaleDB connection pool created and verified.")

	store := &timescaleEventStore{
		pool:      pool,
		tableName: requestEventsTableName,
	}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := store.ensureHypertable(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure TimescaleDB hypertable exists")
		return nil, nil, fmt.Errorf("failed ensuring hypertable: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing TimescaleDB connection pool...")
			pool.Close()
			return nil
		},
	})

	return store, pool, nil
}

func (s *timescaleEventStore) ensureHypertable(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s TIMESTAMPTZ NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT
		);`,
		s.tableName, colTime, colAPIName, colAPIVersion, colAPICreator, colPlatform, colUserAgent)

	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create base table %s: %w", s.tableName, err)
	}
	log.Info().Str("table", s.tableName).Msg("Ensured base table exists.")

	checkHyperSQL := `SELECT EXISTS (
        SELECT 1 FROM timescaledb_information.hypertables WHERE hypertable_name = $1
    );`
	var isHypertable bool
	_ = s.pool.QueryRow(ctx, checkHyperSQL, s.tableName).Scan(&isHypertable)

	if !isHypertable {
		log.Info().Str("table", s.tableName).Msg("Table is not a hypertable, attempting to create...")
		if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb;"); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure timescaledb extension exists (permission issue?). Trying to proceed...")
		}

		createHyperSQL := fmt.Sprintf(
			"SELECT create_hypertable('%s', '%s', if_not_exists => TRUE, chunk_time_interval => INTERVAL '1 day');",
			s.tableName,
			colTime,
		)
		_, err := s.pool.Exec(ctx, createHyperSQL)
		if err != nil && !strings.Contains(err.Error(), "already a hypertable") {
			return fmt.Errorf("failed to create hypertable %s: %w", s.tableName, err)
		}
		log.Info().Str("table", s.tableName).Msg("Successfully ensured hypertable.")
	} else {
		log.Info().Str("table", s.tableName).Msg("Table is already a hypertable.")
	}

	indexSQL := fmt.Sprintf(`
        CREATE INDEX IF NOT EXISTS idx_%s_api_time ON %s (%s, %s, time DESC);
        CREATE INDEX IF NOT EXISTS idx_%s_creator ON %s (%s);
    `, s.tableName, s.tableName, colAPIName, colAPIVersion, s.tableName, s.tableName, colAPICreator)
	if _, err := s.pool.Exec(ctx, indexSQL); err != nil {
		log.Warn().Err(err).Msg("Failed to create indexes on request events table (continuing)")
	} else {
		log.Info().Str("table", s.tableName).Msg("Ensured indexes exist on request events table.")
	}

	return nil
}

// StoreEvents bulk inserts request events with COPY.
func (s *timescaleEventStore) StoreEvents(ctx context.Context, events []model.RequestEvent) error {
	if len(events) == 0 {
		return nil
	}

	source := pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
		return eventRow(events[i]), nil
	})

	copyCount, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.tableName}, eventColumns, source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bulk insert request events into TimescaleDB")
		return fmt.Errorf("timescaledb copyfrom failed: %w", err)
	}

	if int(copyCount) != len(events) {
		log.Warn().Int64("inserted", copyCount).Int("expected", len(events)).Msg("TimescaleDB CopyFrom event count mismatch")
	} else {
		log.Debug().Int64("count", copyCount).Msg("Successfully inserted request events into TimescaleDB")
	}
	return nil
}

func eventRow(e model.RequestEvent) []any {
	var userAgent any
	if e.UserAgent != "" {
		userAgent = e.UserAgent
	}
	return []any{e.Timestamp, e.APIName, e.APIVersion, e.APICreator, e.Platform, userAgent}
}
