package channel

import (
	"apim-analytics-backend/internal/model"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	rows    [][]any
	err     error
	block   chan struct{}
	calls   atomic.Int32
	queries []string
}

func (p *fakeProvider) Query(ctx context.Context, cfg model.ProviderConfig) ([][]any, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.queries = append(p.queries, cfg.Config.QueryData.QueryName)
	rows, err, block := p.rows, p.err, p.block
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rows, err
}

type recorder struct {
	mu   sync.Mutex
	msgs []model.DataMessage
}

func (r *recorder) callback(msg model.DataMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) at(i int) model.DataMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[i]
}

func providerConfig(queryName string, interval int) model.ProviderConfig {
	return model.ProviderConfig{
		Type: "fake",
		Config: model.ProviderConfigBody{
			QueryData:          model.QueryData{QueryName: queryName},
			PublishingInterval: interval,
		},
	}
}

func newTestManager(p *fakeProvider, settings Settings) *manager {
	m := newManager(Providers{"fake": p}, settings)
	m.cron.Start()
	return m
}

func TestSubscribeDeliversRows(t *testing.T) {
	p := &fakeProvider{rows: [][]any{{"Android", int64(3)}}}
	m := newTestManager(p, Settings{})
	defer m.Close()
	rec := &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.MainQueryName, 0)))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]any{{"Android", int64(3)}}, rec.at(0).Data)
	assert.NoError(t, rec.at(0).Err)
}

func TestEmptyResultIsNotNil(t *testing.T) {
	m := newTestManager(&fakeProvider{}, Settings{})
	defer m.Close()
	rec := &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.APIListQueryName, 0)))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.NotNil(t, rec.at(0).Data)
	assert.Empty(t, rec.at(0).Data)
}

func TestUnknownProvider(t *testing.T) {
	m := newTestManager(&fakeProvider{}, Settings{})
	defer m.Close()

	cfg := providerConfig(model.MainQueryName, 0)
	cfg.Type = "siddhi"
	err := m.SubscribeWidget("w1", "APIMTopPlatforms", func(model.DataMessage) {}, cfg)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderErrorIsDelivered(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	m := newTestManager(p, Settings{})
	defer m.Close()
	rec := &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.MainQueryName, 0)))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, rec.at(0).Data)
	assert.EqualError(t, rec.at(0).Err, "connection refused")
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestNoDeliveryAfterUnsubscribe(t *testing.T) {
	p := &fakeProvider{rows: [][]any{{"iOS", int64(1)}}, block: make(chan struct{})}
	m := newTestManager(p, Settings{})
	defer m.Close()
	rec := &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.MainQueryName, 0)))
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	m.UnsubscribeWidget("w1")
	close(p.block)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.len())
}

func TestResubscribeReplacesSubscription(t *testing.T) {
	block := make(chan struct{})
	p := &fakeProvider{rows: [][]any{{"Linux", int64(1)}}, block: block}
	m := newTestManager(p, Settings{})
	defer m.Close()
	first, second := &recorder{}, &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", first.callback, providerConfig(model.APIListQueryName, 0)))
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", second.callback, providerConfig(model.MainQueryName, 0)))
	close(block)

	require.Eventually(t, func() bool { return second.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, first.len())
}

func TestPeriodicRepublish(t *testing.T) {
	p := &fakeProvider{rows: [][]any{{"Windows", int64(7)}}}
	m := newTestManager(p, Settings{})
	defer m.Close()
	rec := &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.MainQueryName, 1)))

	require.Eventually(t, func() bool { return rec.len() >= 2 }, 3*time.Second, 20*time.Millisecond)
	m.UnsubscribeWidget("w1")
	delivered := rec.len()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, delivered, rec.len())
}

func TestQueryTimeout(t *testing.T) {
	p := &fakeProvider{block: make(chan struct{})}
	m := newTestManager(p, Settings{QueryTimeout: 20 * time.Millisecond})
	defer m.Close()
	rec := &recorder{}

	require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.MainQueryName, 0)))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, rec.at(0).Err, context.DeadlineExceeded)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	m := newTestManager(p, Settings{FailureThreshold: 2, BreakerTimeout: time.Minute})
	defer m.Close()

	for i := 0; i < 3; i++ {
		rec := &recorder{}
		require.NoError(t, m.SubscribeWidget("w1", "APIMTopPlatforms", rec.callback, providerConfig(model.MainQueryName, 0)))
		require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
		if i == 2 {
			assert.ErrorIs(t, rec.at(0).Err, gobreaker.ErrOpenState)
		}
	}
	assert.EqualValues(t, 2, p.calls.Load())
}
