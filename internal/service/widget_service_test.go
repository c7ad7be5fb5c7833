package service

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/channel"
	"apim-analytics-backend/internal/dto"
	"apim-analytics-backend/internal/locale"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"apim-analytics-backend/internal/store"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

type fakeConfigRepository struct{}

func (fakeConfigRepository) GetWidgetConfiguration(ctx context.Context, widgetID string) (*model.WidgetConfiguration, error) {
	if widgetID != "APIMTopPlatforms" {
		return nil, fmt.Errorf("widget %q: %w", widgetID, repository.ErrWidgetConfigNotFound)
	}
	return &model.WidgetConfiguration{
		ID: widgetID,
		Configs: model.WidgetConfigs{ProviderConfig: model.ProviderConfig{
			Type: "timescaledb",
			Config: model.ProviderConfigBody{QueryData: model.QueryData{Queries: map[string]string{
				model.APIListQueryName: "apis",
				model.MainQueryName:    "platforms {{querystring}}",
			}}},
		}},
	}, nil
}

// fakeProvider answers both widget queries and remembers what it was asked.
type fakeProvider struct {
	mu   sync.Mutex
	cfgs []model.ProviderConfig
}

func (p *fakeProvider) Query(ctx context.Context, cfg model.ProviderConfig) ([][]any, error) {
	p.mu.Lock()
	p.cfgs = append(p.cfgs, cfg)
	p.mu.Unlock()
	switch cfg.Config.QueryData.QueryName {
	case model.APIListQueryName:
		return [][]any{
			{"PizzaAPI", "1.0", "admin"},
			{"BookAPI", "1.0", "alice"},
		}, nil
	case model.MainQueryName:
		return [][]any{{"Android", int64(10)}, {"iOS", int64(4)}}, nil
	}
	return nil, repository.ErrUnknownQuery
}

func (p *fakeProvider) queries() []model.ProviderConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ProviderConfig(nil), p.cfgs...)
}

func newTestWidgetService(t *testing.T, providerType string) (*widgetService, *fakeProvider, store.GlobalStateStore) {
	t.Helper()
	lc := fxtest.NewLifecycle(t)
	provider := &fakeProvider{}
	cfg := &config.Config{DataChannel: config.DataChannelConfig{QueryTimeout: time.Second}}
	providers := channel.Providers{"timescaledb": provider, "elasticsearch": provider}
	channels := channel.NewManager(lc, cfg, providers)
	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	state := store.NewInMemoryStore()
	s := newWidgetService(fakeConfigRepository{}, channels, state, locale.NewDirLoader(t.TempDir()), NewTimeRangeHub(), providerType)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, provider, state
}

var testWindow = model.TimeWindow{From: 1700000000000, To: 1700003600000, Granularity: "minute"}

func waitView(t *testing.T, s WidgetService, id string, cond func(v dto.WidgetState) bool) dto.WidgetState {
	t.Helper()
	var view dto.WidgetState
	require.Eventually(t, func() bool {
		v, err := s.View(id)
		if err != nil {
			return false
		}
		view = v
		return cond(v)
	}, 2*time.Second, 5*time.Millisecond)
	return view
}

func TestWidgetServiceQueryCycle(t *testing.T) {
	s, provider, state := newTestWidgetService(t, "")

	view, err := s.Mount(context.Background(), "admin", dto.MountWidgetRequest{WidgetID: "APIMTopPlatforms", Language: "en-US"})
	require.NoError(t, err)
	require.NotEmpty(t, view.InstanceID)
	assert.True(t, view.InProgress)

	// Give the mount time to register for time ranges, then publish.
	require.Eventually(t, func() bool {
		return s.SetTimeRange(view.InstanceID, testWindow) == nil
	}, 2*time.Second, 5*time.Millisecond)

	final := waitView(t, s, view.InstanceID, func(v dto.WidgetState) bool {
		return !v.InProgress && len(v.PlatformData) > 0
	})
	assert.Equal(t, []string{"All", "PizzaAPI", "BookAPI"}, final.APIList)
	assert.Equal(t, []model.PlatformMetric{
		{ID: 1, Platform: "Android", RequestCount: 10},
		{ID: 2, Platform: "iOS", RequestCount: 4},
	}, final.PlatformData)
	assert.Equal(t, []model.LegendEntry{{Name: "Android"}, {Name: "iOS"}}, final.LegendData)

	queries := provider.queries()
	require.GreaterOrEqual(t, len(queries), 2)
	main := queries[len(queries)-1]
	assert.Equal(t, model.MainQueryName, main.Config.QueryData.QueryName)
	assert.Equal(t, "timescaledb", main.Type)

	raw, err := state.Get(context.Background(), "platforms")
	require.NoError(t, err)
	var snapshot model.QueryParamSnapshot
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, model.QueryParamSnapshot{APICreatedBy: "All", APISelected: "All", APIVersion: "All", Limit: 5}, snapshot)
}

func TestWidgetServiceProviderOverride(t *testing.T) {
	s, provider, _ := newTestWidgetService(t, "elasticsearch")

	view, err := s.Mount(context.Background(), "admin", dto.MountWidgetRequest{WidgetID: "APIMTopPlatforms"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return s.SetTimeRange(view.InstanceID, testWindow) == nil
	}, 2*time.Second, 5*time.Millisecond)
	waitView(t, s, view.InstanceID, func(v dto.WidgetState) bool { return !v.InProgress })

	for _, cfg := range provider.queries() {
		assert.Equal(t, "elasticsearch", cfg.Type)
	}
}

func TestWidgetServiceFaultyConfiguration(t *testing.T) {
	s, _, _ := newTestWidgetService(t, "")

	view, err := s.Mount(context.Background(), "admin", dto.MountWidgetRequest{WidgetID: "Unknown"})
	require.NoError(t, err)
	final := waitView(t, s, view.InstanceID, func(v dto.WidgetState) bool { return v.Faulty })
	assert.False(t, final.InProgress)
}

func TestWidgetServiceFilterValidation(t *testing.T) {
	s, _, _ := newTestWidgetService(t, "")
	view, err := s.Mount(context.Background(), "admin", dto.MountWidgetRequest{WidgetID: "APIMTopPlatforms"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangeCreatedBy(view.InstanceID, "Someone"), ErrInvalidFilter)
	assert.ErrorIs(t, s.ChangeAPI(view.InstanceID, ""), ErrInvalidFilter)
	assert.ErrorIs(t, s.ChangeVersion(view.InstanceID, ""), ErrInvalidFilter)
	assert.NoError(t, s.ChangeCreatedBy(view.InstanceID, model.CreatedByMe))
	assert.NoError(t, s.ChangeLimit(view.InstanceID, "10"))

	waitView(t, s, view.InstanceID, func(v dto.WidgetState) bool {
		return v.APICreatedBy == model.CreatedByMe && v.Limit == 10
	})
}

func TestWidgetServiceUnknownInstance(t *testing.T) {
	s, _, _ := newTestWidgetService(t, "")

	_, err := s.View("missing")
	assert.ErrorIs(t, err, ErrWidgetNotFound)
	assert.ErrorIs(t, s.ChangeLimit("missing", "3"), ErrWidgetNotFound)
	assert.ErrorIs(t, s.SetTimeRange("missing", testWindow), ErrWidgetNotFound)
	_, _, err = s.Listen("missing")
	assert.ErrorIs(t, err, ErrWidgetNotFound)
	assert.ErrorIs(t, s.Unmount(context.Background(), "missing"), ErrWidgetNotFound)
}

func TestWidgetServiceUnmount(t *testing.T) {
	s, _, _ := newTestWidgetService(t, "")
	view, err := s.Mount(context.Background(), "admin", dto.MountWidgetRequest{WidgetID: "APIMTopPlatforms"})
	require.NoError(t, err)

	views, _, err := s.Listen(view.InstanceID)
	require.NoError(t, err)

	require.NoError(t, s.Unmount(context.Background(), view.InstanceID))
	_, err = s.View(view.InstanceID)
	assert.ErrorIs(t, err, ErrWidgetNotFound)

	require.Eventually(t, func() bool {
		select {
		case _, open := <-views:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWidgetHostGlobalState(t *testing.T) {
	s, _, state := newTestWidgetService(t, "")
	host := &widgetHost{service: s, username: "alice"}

	snapshot, err := host.GetGlobalState("platforms")
	require.NoError(t, err)
	assert.Zero(t, snapshot)

	want := model.QueryParamSnapshot{APICreatedBy: "Me", APISelected: "PizzaAPI", APIVersion: "All", Limit: 3}
	require.NoError(t, host.SetGlobalState("platforms", want))
	got, err := host.GetGlobalState("platforms")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, state.Set(context.Background(), "broken", []byte("{")))
	_, err = host.GetGlobalState("broken")
	assert.Error(t, err)

	assert.Equal(t, "alice", host.GetCurrentUser())
}
