package widgetconf

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// WidgetConfigRecord is one row of widget_configs; Config holds the JSON
// document.
type WidgetConfigRecord struct {
	WidgetID  string `gorm:"primaryKey;size:128"`
	Config    string `gorm:"type:json;not null"`
	UpdatedAt time.Time
}

func (WidgetConfigRecord) TableName() string {
	return "widget_configs"
}

type mysqlWidgetConfigRepository struct {
	db *gorm.DB
}

func NewMySQLWidgetConfigRepository(db *gorm.DB) (repository.WidgetConfigRepository, error) {
	if db == nil {
		return nil, errors.New("database connection is required for WidgetConfigRepository")
	}
	if err := db.AutoMigrate(&WidgetConfigRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate widget_configs: %w", err)
	}
	return &mysqlWidgetConfigRepository{db: db}, nil
}

func (r *mysqlWidgetConfigRepository) GetWidgetConfiguration(ctx context.Context, widgetID string) (*model.WidgetConfiguration, error) {
	var record WidgetConfigRecord
	err := r.db.WithContext(ctx).Where("widget_id = ?", widgetID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("widget %q: %w", widgetID, repository.ErrWidgetConfigNotFound)
		}
		log.Error().Err(err).Str("widget_id", widgetID).Msg("Failed to load widget configuration")
		return nil, fmt.Errorf("failed to load widget configuration %s: %w", widgetID, err)
	}
	return Decode([]byte(record.Config))
}
