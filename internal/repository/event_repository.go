package repository

import (
	"apim-analytics-backend/internal/model"
	"context"
)

// EventRepository persists request events for the data providers to query.
type EventRepository interface {
	StoreEvents(ctx context.Context, events []model.RequestEvent) error
}
