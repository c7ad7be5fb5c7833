package model

// Filter scope and sentinel values shared by the widget and its query templates.
const (
	CreatedByAll = "All"
	CreatedByMe  = "Me"
	AllSentinel  = "All"
)

// FilterState is the controller-owned filter selection. Limit 0 means the
// user is still typing (pending/invalid input).
type FilterState struct {
	CreatedBy       string `json:"apiCreatedBy"`
	SelectedAPI     string `json:"apiSelected"`
	SelectedVersion string `json:"apiVersion"`
	Limit           int    `json:"limit"`
}

// QueryParamSnapshot is the persisted form of FilterState kept in the global
// state. Missing fields decode to their zero value.
type QueryParamSnapshot struct {
	APICreatedBy string `json:"apiCreatedBy,omitempty"`
	APISelected  string `json:"apiSelected,omitempty"`
	APIVersion   string `json:"apiVersion,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// TimeWindow is the analysis window published by the date-time range picker.
type TimeWindow struct {
	From        int64  `json:"from"`
	To          int64  `json:"to"`
	Granularity string `json:"granularity"`
}

type ApiCatalogEntry struct {
	APIName       string
	APIVersion    string
	OwnerUsername string
}

type PlatformMetric struct {
	ID           int    `json:"id"`
	Platform     string `json:"platform"`
	RequestCount int64  `json:"reqCount"`
}

type LegendEntry struct {
	Name string `json:"name"`
}
