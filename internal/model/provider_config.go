package model

import "maps"

// Well-known query identifiers understood by every data provider.
const (
	APIListQueryName = "apilistquery"
	MainQueryName    = "mainquery"
)

// WidgetConfiguration is what the host returns for a widget identifier.
type WidgetConfiguration struct {
	ID      string        `json:"id" validate:"required"`
	Name    string        `json:"name"`
	Configs WidgetConfigs `json:"configs"`
}

type WidgetConfigs struct {
	ProviderConfig ProviderConfig `json:"providerConfig" validate:"required"`
}

// ProviderConfig selects a data provider and carries its query templates.
type ProviderConfig struct {
	Type   string             `json:"type" validate:"required,oneof=timescaledb elasticsearch"`
	Config ProviderConfigBody `json:"config"`
}

type ProviderConfigBody struct {
	QueryData QueryData `json:"queryData"`
	// PublishingInterval in seconds; 0 publishes once per subscription.
	PublishingInterval int `json:"publishingInterval" validate:"gte=0"`
}

// QueryData holds the templates by query name plus the active query and its
// placeholder substitutions ("{{name}}" -> literal).
type QueryData struct {
	QueryName   string            `json:"queryName"`
	Queries     map[string]string `json:"queries"`
	QueryValues map[string]string `json:"queryValues"`
}

// Clone returns a deep copy safe to mutate per query.
func (c ProviderConfig) Clone() ProviderConfig {
	out := c
	out.Config.QueryData.Queries = maps.Clone(c.Config.QueryData.Queries)
	out.Config.QueryData.QueryValues = maps.Clone(c.Config.QueryData.QueryValues)
	return out
}

// Template returns the template registered for the active query name.
func (c ProviderConfig) Template() (string, bool) {
	t, ok := c.Config.QueryData.Queries[c.Config.QueryData.QueryName]
	return t, ok
}

// DataMessage is one delivery from the data channel. Rows keep the column
// order of the query that produced them.
type DataMessage struct {
	Data [][]any `json:"data"`
	Err  error   `json:"-"`
}

type DataCallback func(DataMessage)
