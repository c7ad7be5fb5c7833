package service

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/channel"
	"apim-analytics-backend/internal/dto"
	"apim-analytics-backend/internal/locale"
	"apim-analytics-backend/internal/metrics"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"apim-analytics-backend/internal/store"
	"apim-analytics-backend/internal/widget"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

var (
	ErrWidgetNotFound = errors.New("widget instance not found")
	ErrInvalidFilter  = errors.New("invalid filter value")
)

// WidgetService owns every mounted widget instance and routes user input to
// the instance's event loop.
type WidgetService interface {
	Mount(ctx context.Context, username string, req dto.MountWidgetRequest) (dto.WidgetState, error)
	View(instanceID string) (dto.WidgetState, error)
	Unmount(ctx context.Context, instanceID string) error
	ChangeCreatedBy(instanceID, value string) error
	ChangeAPI(instanceID, value string) error
	ChangeVersion(instanceID, value string) error
	ChangeLimit(instanceID, raw string) error
	SetTimeRange(instanceID string, tw model.TimeWindow) error
	PublishTimeRange(tw model.TimeWindow)
	Listen(instanceID string) (<-chan dto.WidgetState, func(), error)
	GlobalState(ctx context.Context, key string) ([]byte, error)
	Close(ctx context.Context) error
}

type widgetService struct {
	configs      repository.WidgetConfigRepository
	channels     channel.Manager
	state        store.GlobalStateStore
	locales      locale.Loader
	hub          TimeRangeHub
	providerType string

	mu        sync.RWMutex
	instances map[string]*widget.Instance
}

func NewWidgetService(
	lc fx.Lifecycle,
	cfg *config.Config,
	configs repository.WidgetConfigRepository,
	channels channel.Manager,
	state store.GlobalStateStore,
	locales locale.Loader,
	hub TimeRangeHub,
) WidgetService {
	s := newWidgetService(configs, channels, state, locales, hub, cfg.Widget.DataProvider)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Unmounting widget instances")
			return s.Close(ctx)
		},
	})
	return s
}

func newWidgetService(
	configs repository.WidgetConfigRepository,
	channels channel.Manager,
	state store.GlobalStateStore,
	locales locale.Loader,
	hub TimeRangeHub,
	providerType string,
) *widgetService {
	return &widgetService{
		configs:      configs,
		channels:     channels,
		state:        state,
		locales:      locales,
		hub:          hub,
		providerType: providerType,
		instances:    make(map[string]*widget.Instance),
	}
}

func (s *widgetService) Mount(ctx context.Context, username string, req dto.MountWidgetRequest) (dto.WidgetState, error) {
	id := uuid.NewString()
	host := &widgetHost{service: s, username: username}
	inst := widget.NewInstance(id, req.WidgetID, req.Language, host)

	s.mu.Lock()
	s.instances[id] = inst
	s.mu.Unlock()
	metrics.WidgetInstances.Inc()

	// Mount runs on the instance loop after the request returns.
	inst.Start(context.WithoutCancel(ctx))
	log.Info().Str("instance", id).Str("widget", req.WidgetID).Str("user", username).Msg("Widget mounted")
	return inst.View(), nil
}

func (s *widgetService) instance(id string) (*widget.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, ErrWidgetNotFound)
	}
	return inst, nil
}

func (s *widgetService) View(instanceID string) (dto.WidgetState, error) {
	inst, err := s.instance(instanceID)
	if err != nil {
		return dto.WidgetState{}, err
	}
	return inst.View(), nil
}

func (s *widgetService) Unmount(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	inst, ok := s.instances[instanceID]
	delete(s.instances, instanceID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("instance %s: %w", instanceID, ErrWidgetNotFound)
	}
	metrics.WidgetInstances.Dec()
	if err := inst.Close(ctx); err != nil {
		return fmt.Errorf("failed to unmount instance %s: %w", instanceID, err)
	}
	log.Info().Str("instance", instanceID).Msg("Widget unmounted")
	return nil
}

func (s *widgetService) do(instanceID string, fn func(c *widget.Controller)) error {
	inst, err := s.instance(instanceID)
	if err != nil {
		return err
	}
	if !inst.Do(fn) {
		return fmt.Errorf("instance %s is closing: %w", instanceID, ErrWidgetNotFound)
	}
	return nil
}

func (s *widgetService) ChangeCreatedBy(instanceID, value string) error {
	if value != model.CreatedByAll && value != model.CreatedByMe {
		return fmt.Errorf("created by %q: %w", value, ErrInvalidFilter)
	}
	return s.do(instanceID, func(c *widget.Controller) { c.HandleCreatedByChange(value) })
}

func (s *widgetService) ChangeAPI(instanceID, value string) error {
	if value == "" {
		return fmt.Errorf("empty api: %w", ErrInvalidFilter)
	}
	return s.do(instanceID, func(c *widget.Controller) { c.HandleAPIChange(value) })
}

func (s *widgetService) ChangeVersion(instanceID, value string) error {
	if value == "" {
		return fmt.Errorf("empty version: %w", ErrInvalidFilter)
	}
	return s.do(instanceID, func(c *widget.Controller) { c.HandleVersionChange(value) })
}

func (s *widgetService) ChangeLimit(instanceID, raw string) error {
	return s.do(instanceID, func(c *widget.Controller) { c.HandleLimitChange(raw) })
}

func (s *widgetService) SetTimeRange(instanceID string, tw model.TimeWindow) error {
	if _, err := s.instance(instanceID); err != nil {
		return err
	}
	if !s.hub.PublishTo(instanceID, tw) {
		return fmt.Errorf("instance %s is not listening for time ranges: %w", instanceID, ErrWidgetNotFound)
	}
	return nil
}

func (s *widgetService) PublishTimeRange(tw model.TimeWindow) {
	s.hub.Publish(tw)
}

func (s *widgetService) Listen(instanceID string) (<-chan dto.WidgetState, func(), error) {
	inst, err := s.instance(instanceID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := inst.Listen()
	return ch, cancel, nil
}

func (s *widgetService) GlobalState(ctx context.Context, key string) ([]byte, error) {
	return s.state.Get(ctx, key)
}

func (s *widgetService) Close(ctx context.Context) error {
	s.mu.Lock()
	instances := s.instances
	s.instances = make(map[string]*widget.Instance)
	s.mu.Unlock()

	var errs []error
	for id, inst := range instances {
		metrics.WidgetInstances.Dec()
		if err := inst.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("instance %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// widgetHost is the capability handed to a single instance. The current
// user is fixed at mount time.
type widgetHost struct {
	service  *widgetService
	username string
}

func (h *widgetHost) GetWidgetConfiguration(ctx context.Context, widgetName string) (*model.WidgetConfiguration, error) {
	cfg, err := h.service.configs.GetWidgetConfiguration(ctx, widgetName)
	if err != nil {
		return nil, err
	}
	if h.service.providerType != "" {
		cfg.Configs.ProviderConfig.Type = h.service.providerType
	}
	return cfg, nil
}

func (h *widgetHost) GetWidgetChannelManager() widget.ChannelManager {
	return h.service.channels
}

func (h *widgetHost) GetGlobalState(key string) (model.QueryParamSnapshot, error) {
	var snapshot model.QueryParamSnapshot
	data, err := h.service.state.Get(context.Background(), key)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return snapshot, nil
		}
		return snapshot, fmt.Errorf("failed to read global state %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.QueryParamSnapshot{}, fmt.Errorf("failed to decode global state %s: %w", key, err)
	}
	return snapshot, nil
}

func (h *widgetHost) SetGlobalState(key string, snapshot model.QueryParamSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode global state %s: %w", key, err)
	}
	if err := h.service.state.Set(context.Background(), key, data); err != nil {
		return fmt.Errorf("failed to write global state %s: %w", key, err)
	}
	return nil
}

func (h *widgetHost) GetCurrentUser() string {
	return h.username
}

func (h *widgetHost) Subscribe(widgetID string, handler func(model.TimeWindow)) {
	h.service.hub.Subscribe(widgetID, handler)
}

func (h *widgetHost) Unsubscribe(widgetID string) {
	h.service.hub.Unsubscribe(widgetID)
}

func (h *widgetHost) LoadLocale(language string) (map[string]string, error) {
	return h.service.locales.Load(language)
}
