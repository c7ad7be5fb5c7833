package widget

import (
	"apim-analytics-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"sync"
)

type subscription struct {
	widgetID string
	callback model.DataCallback
	cfg      model.ProviderConfig
}

// fakeChannel records subscribe/unsubscribe calls in order and lets tests
// deliver rows to any subscription ever made, including superseded ones.
type fakeChannel struct {
	mu      sync.Mutex
	calls   []string
	subs    []subscription
	failErr error
}

func (f *fakeChannel) SubscribeWidget(widgetID, widgetName string, callback model.DataCallback, cfg model.ProviderConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "subscribe:"+cfg.Config.QueryData.QueryName)
	if f.failErr != nil {
		return f.failErr
	}
	f.subs = append(f.subs, subscription{widgetID: widgetID, callback: callback, cfg: cfg})
	return nil
}

func (f *fakeChannel) UnsubscribeWidget(widgetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "unsubscribe")
}

func (f *fakeChannel) last() subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeChannel) deliverLast(rows [][]any) {
	f.last().callback(model.DataMessage{Data: rows})
}

func (f *fakeChannel) subscribeCount(queryName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == "subscribe:"+queryName {
			n++
		}
	}
	return n
}

func (f *fakeChannel) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakeHost struct {
	mu         sync.Mutex
	channel    *fakeChannel
	config     *model.WidgetConfiguration
	configErr  error
	state      map[string]model.QueryParamSnapshot
	stateErr   error
	user       string
	publishers map[string]func(model.TimeWindow)
	locales    map[string]map[string]string
	localeReqs []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		channel: &fakeChannel{},
		config: &model.WidgetConfiguration{
			ID:   "APIMTopPlatforms",
			Name: "APIM Top Platforms",
			Configs: model.WidgetConfigs{ProviderConfig: model.ProviderConfig{
				Type: "timescaledb",
				Config: model.ProviderConfigBody{QueryData: model.QueryData{
					Queries: map[string]string{
						model.APIListQueryName: "SELECT api_name, api_version, api_creator FROM apis",
						model.MainQueryName:    "SELECT platform, count(*) FROM events WHERE time >= {{timeFrom}} {{querystring}} LIMIT {{limit}}",
					},
				}},
			}},
		},
		state:      make(map[string]model.QueryParamSnapshot),
		user:       "admin",
		publishers: make(map[string]func(model.TimeWindow)),
		locales:    map[string]map[string]string{"en": {"title": "Top Platforms"}},
	}
}

func (h *fakeHost) GetWidgetConfiguration(ctx context.Context, widgetName string) (*model.WidgetConfiguration, error) {
	if h.configErr != nil {
		return nil, h.configErr
	}
	return h.config, nil
}

func (h *fakeHost) GetWidgetChannelManager() ChannelManager {
	return h.channel
}

func (h *fakeHost) GetGlobalState(key string) (model.QueryParamSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stateErr != nil {
		return model.QueryParamSnapshot{}, h.stateErr
	}
	return h.state[key], nil
}

func (h *fakeHost) SetGlobalState(key string, snapshot model.QueryParamSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stateErr != nil {
		return h.stateErr
	}
	h.state[key] = snapshot
	return nil
}

func (h *fakeHost) snapshot() model.QueryParamSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state[QueryParamKey]
}

func (h *fakeHost) GetCurrentUser() string {
	return h.user
}

func (h *fakeHost) Subscribe(widgetID string, handler func(model.TimeWindow)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishers[widgetID] = handler
}

func (h *fakeHost) Unsubscribe(widgetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.publishers, widgetID)
}

func (h *fakeHost) publish(widgetID string, tw model.TimeWindow) {
	h.mu.Lock()
	handler := h.publishers[widgetID]
	h.mu.Unlock()
	if handler != nil {
		handler(tw)
	}
}

func (h *fakeHost) LoadLocale(language string) (map[string]string, error) {
	h.localeReqs = append(h.localeReqs, language)
	if m, ok := h.locales[language]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("locale %s: %w", language, errNoLocale)
}

var errNoLocale = errors.New("no locale")

func immediate(fn func()) { fn() }

var catalogRows = [][]any{
	{"PizzaAPI", "1.0", "admin"},
	{"PizzaAPI", "2.0", "admin"},
	{"BookAPI", "1.0", "alice"},
}

var platformRows = [][]any{
	{"Android", int64(120)},
	{"iOS", int64(80)},
	{"Windows", int64(15)},
}
