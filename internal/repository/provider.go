package repository

import (
	"apim-analytics-backend/internal/model"
	"context"
	"errors"
)

var ErrUnknownQuery = errors.New("no template for query")

// DataProvider runs the active query of a provider configuration and returns
// its rows in column order. A successful query with no rows returns an empty,
// non-nil slice.
type DataProvider interface {
	Query(ctx context.Context, cfg model.ProviderConfig) ([][]any, error)
}
