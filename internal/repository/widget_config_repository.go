package repository

import (
	"apim-analytics-backend/internal/model"
	"context"
	"errors"
)

var ErrWidgetConfigNotFound = errors.New("widget configuration not found")

type WidgetConfigRepository interface {
	GetWidgetConfiguration(ctx context.Context, widgetID string) (*model.WidgetConfiguration, error)
}
