// Package widget implements the Top Platforms widget: a filter-state
// controller that keeps its filters in the shared global state, runs the API
// enumeration query followed by the platform aggregation query over the
// host's data channel, and normalizes the results for the presentation layer.
package widget

import (
	"apim-analytics-backend/internal/model"
	"context"
)

// QueryParamKey namespaces this widget's filters in the global state.
const QueryParamKey = "platforms"

// DefaultLimit applies whenever the stored limit is missing or zero.
const DefaultLimit = 5

// ChannelManager runs provider queries on behalf of widgets. A widget id has
// at most one subscription; UnsubscribeWidget stops all further deliveries.
type ChannelManager interface {
	SubscribeWidget(widgetID, widgetName string, callback model.DataCallback, cfg model.ProviderConfig) error
	UnsubscribeWidget(widgetID string)
}

// Host is the dashboard capability the controller is built on. It replaces
// inheritance from a framework widget base with an injected collaborator.
//
// The global state behind GetGlobalState/SetGlobalState is shared by every
// widget in the process and is not transactional; controllers rely on their
// own single event loop for ordering.
type Host interface {
	GetWidgetConfiguration(ctx context.Context, widgetName string) (*model.WidgetConfiguration, error)
	GetWidgetChannelManager() ChannelManager
	GetGlobalState(key string) (model.QueryParamSnapshot, error)
	SetGlobalState(key string, snapshot model.QueryParamSnapshot) error
	GetCurrentUser() string
	// Subscribe registers for date-time range notifications.
	Subscribe(widgetID string, handler func(model.TimeWindow))
	Unsubscribe(widgetID string)
	LoadLocale(language string) (map[string]string, error)
}
