package dto

import (
	"apim-analytics-backend/internal/model"

	"github.com/goccy/go-json"
)

// WidgetState is everything the presentation component needs to draw the
// Top Platforms chart and its filter controls.
type WidgetState struct {
	InstanceID   string                 `json:"instanceId"`
	WidgetID     string                 `json:"widgetId"`
	Faulty       bool                   `json:"faultyProviderConfig"`
	Messages     map[string]string      `json:"localeMessages,omitempty"`
	Limit        int                    `json:"limit"`
	APICreatedBy string                 `json:"apiCreatedBy"`
	APISelected  string                 `json:"apiSelected"`
	APIVersion   string                 `json:"apiVersion"`
	APIList      []string               `json:"apilist"`
	VersionList  []string               `json:"versionlist"`
	LegendData   []model.LegendEntry    `json:"legendData"`
	PlatformData []model.PlatformMetric `json:"platformData"`
	InProgress   bool                   `json:"inProgress"`
	Phase        string                 `json:"phase"`
}

type GlobalStateResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}
