// Package channel is the widget data channel: it runs provider queries for
// subscribed widgets and re-publishes them on their publishing interval.
package channel

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/metrics"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/fx"
)

var ErrProviderNotFound = errors.New("data provider not found")

// Providers maps a provider type ("timescaledb", "elasticsearch") to its implementation.
type Providers map[string]repository.DataProvider

// Manager delivers query results to widget callbacks. Callbacks run on the
// query goroutine and must hand the message off without blocking or calling
// back into the Manager.
type Manager interface {
	SubscribeWidget(widgetID, widgetName string, callback model.DataCallback, cfg model.ProviderConfig) error
	UnsubscribeWidget(widgetID string)
	Close()
}

type Settings struct {
	QueryTimeout     time.Duration
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

type subscription struct {
	widgetID   string
	widgetName string
	cfg        model.ProviderConfig
	callback   model.DataCallback
	provider   repository.DataProvider
	breaker    *gobreaker.CircuitBreaker[[][]any]
	ctx        context.Context
	cancel     context.CancelFunc
	entryID    cron.EntryID

	// mu orders deliveries against close: once closed is set no callback runs.
	mu      sync.Mutex
	closed  bool
	running atomic.Bool
}

type manager struct {
	providers Providers
	breakers  map[string]*gobreaker.CircuitBreaker[[][]any]
	settings  Settings
	cron      *cron.Cron

	mu   sync.Mutex
	subs map[string]*subscription
	wg   sync.WaitGroup
}

func NewManager(lc fx.Lifecycle, cfg *config.Config, providers Providers) Manager {
	m := newManager(providers, Settings{
		QueryTimeout:     cfg.DataChannel.QueryTimeout,
		FailureThreshold: cfg.DataChannel.FailureThreshold,
		BreakerTimeout:   cfg.DataChannel.BreakerTimeout,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Int("providers", len(providers)).Msg("Starting data channel")
			m.cron.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping data channel...")
			m.Close()
			return nil
		},
	})
	return m
}

func newManager(providers Providers, settings Settings) *manager {
	if settings.QueryTimeout <= 0 {
		settings.QueryTimeout = 15 * time.Second
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	m := &manager{
		providers: providers,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[[][]any], len(providers)),
		settings:  settings,
		cron:      cron.New(),
		subs:      make(map[string]*subscription),
	}
	for name := range providers {
		m.breakers[name] = newBreaker(name, settings)
	}
	return m
}

func newBreaker(provider string, settings Settings) *gobreaker.CircuitBreaker[[][]any] {
	return gobreaker.NewCircuitBreaker[[][]any](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     settings.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("Data provider circuit breaker changed state")
			metrics.DataChannelBreakerState.WithLabelValues(name).Set(float64(to))
		},
		// Queries cut short by an unsubscribe say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// SubscribeWidget replaces any subscription of widgetID, runs the query once
// in the background and then again every publishing interval.
func (m *manager) SubscribeWidget(widgetID, widgetName string, callback model.DataCallback, cfg model.ProviderConfig) error {
	provider, ok := m.providers[cfg.Type]
	if !ok {
		return fmt.Errorf("provider %q: %w", cfg.Type, ErrProviderNotFound)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		widgetID:   widgetID,
		widgetName: widgetName,
		cfg:        cfg.Clone(),
		callback:   callback,
		provider:   provider,
		breaker:    m.breakers[cfg.Type],
		ctx:        ctx,
		cancel:     cancel,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.subs[widgetID]; ok {
		m.stop(prev)
	}
	if interval := cfg.Config.PublishingInterval; interval > 0 {
		id, err := m.cron.AddFunc(fmt.Sprintf("@every %ds", interval), func() { m.publish(sub) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule widget %s: %w", widgetID, err)
		}
		sub.entryID = id
	}
	m.subs[widgetID] = sub
	metrics.DataChannelSubscriptions.Inc()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.publish(sub)
	}()

	log.Debug().
		Str("widget_id", widgetID).
		Str("provider", cfg.Type).
		Str("query", cfg.Config.QueryData.QueryName).
		Int("publishing_interval", cfg.Config.PublishingInterval).
		Msg("Widget subscribed to data channel")
	return nil
}

// UnsubscribeWidget stops the subscription of widgetID. No callback of it
// runs after this returns.
func (m *manager) UnsubscribeWidget(widgetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[widgetID]; ok {
		m.stop(sub)
	}
}

// stop must be called with m.mu held.
func (m *manager) stop(sub *subscription) {
	delete(m.subs, sub.widgetID)
	if sub.entryID != 0 {
		m.cron.Remove(sub.entryID)
	}
	sub.cancel()
	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
	metrics.DataChannelSubscriptions.Dec()
}

func (m *manager) publish(sub *subscription) {
	if !sub.running.CompareAndSwap(false, true) {
		log.Debug().Str("widget_id", sub.widgetID).Msg("Previous query still running, skipping tick")
		return
	}
	defer sub.running.Store(false)

	ctx, cancel := context.WithTimeout(sub.ctx, m.settings.QueryTimeout)
	defer cancel()

	query := sub.cfg.Config.QueryData.QueryName
	start := time.Now()
	rows, err := sub.breaker.Execute(func() ([][]any, error) {
		return sub.provider.Query(ctx, sub.cfg)
	})
	elapsed := time.Since(start)
	metrics.RecordQuery(sub.cfg.Type, query, err, elapsed)

	msg := model.DataMessage{Data: rows}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).
			Str("widget_id", sub.widgetID).
			Str("provider", sub.cfg.Type).
			Str("query", query).
			Msg("Data provider query failed")
		msg = model.DataMessage{Err: err}
	} else if rows == nil {
		msg.Data = [][]any{}
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	log.Trace().Str("widget_id", sub.widgetID).Str("query", query).Int("rows", len(msg.Data)).Dur("elapsed", elapsed).Msg("Publishing data to widget")
	sub.callback(msg)
}

// Close stops every subscription and waits for in-flight initial queries.
func (m *manager) Close() {
	m.mu.Lock()
	for _, sub := range m.subs {
		m.stop(sub)
	}
	m.mu.Unlock()
	<-m.cron.Stop().Done()
	m.wg.Wait()
}
