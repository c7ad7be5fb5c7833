package dto

type MountWidgetRequest struct {
	WidgetID string `json:"widgetId" binding:"required"`
	Language string `json:"language,omitempty"`
}

// FilterChangeRequest carries the raw value selected in a filter control.
// Limit changes send the text typed into the limit field.
type FilterChangeRequest struct {
	Value string `json:"value"`
}

type TimeRangeRequest struct {
	From        string `json:"from" binding:"required"`        // ISO 8601 or epoch ms
	To          string `json:"to" binding:"required"`          // ISO 8601 or epoch ms
	Granularity string `json:"granularity" binding:"required,oneof=second minute hour day month year"`
}
