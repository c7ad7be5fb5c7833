package timescaledb

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/query"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// sqlRenderer maps condition identifiers onto request event columns.
var sqlRenderer = query.SQLRenderer{
	Columns: map[string]string{
		query.FieldAPIName:    colAPIName,
		query.FieldAPIVersion: colAPIVersion,
		"apiCreator":          colAPICreator,
		"platform":            colPlatform,
	},
	ConditionKey: query.KeyQueryString,
}

type timescaleDataProvider struct {
	pool *pgxpool.Pool
}

func NewTimescaleDataProvider(pool *pgxpool.Pool) (repository.DataProvider, error) {
	if pool == nil {
		return nil, errors.New("TimescaleDB connection pool is required for DataProvider")
	}
	return &timescaleDataProvider{pool: pool}, nil
}

// Query renders the active SQL template with bind parameters and returns
// every row as its column values.
func (p *timescaleDataProvider) Query(ctx context.Context, cfg model.ProviderConfig) ([][]any, error) {
	sql, args, err := prepare(cfg)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		log.Error().Err(err).Str("query", sql).Msg("Failed to run provider query")
		return nil, fmt.Errorf("failed to query %s: %w", cfg.Config.QueryData.QueryName, err)
	}
	defer rows.Close()

	result := [][]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	log.Debug().Str("query_name", cfg.Config.QueryData.QueryName).Int("rows", len(result)).Msg("Provider query completed")
	return result, nil
}

func prepare(cfg model.ProviderConfig) (string, []any, error) {
	name := cfg.Config.QueryData.QueryName
	template, ok := cfg.Template()
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", repository.ErrUnknownQuery, name)
	}
	sql, args, err := sqlRenderer.Render(template, cfg.Config.QueryData.QueryValues)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return sql, args, nil
}
