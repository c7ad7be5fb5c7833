// Package widgetconf loads widget configurations from a directory of JSON
// files or from the widget_configs table.
package widgetconf

import (
	"apim-analytics-backend/internal/model"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses and validates one widget configuration document.
func Decode(data []byte) (*model.WidgetConfiguration, error) {
	var cfg model.WidgetConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid widget configuration: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid widget configuration %q: %w", cfg.ID, err)
	}
	return &cfg, nil
}
