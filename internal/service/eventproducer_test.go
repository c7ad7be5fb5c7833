package service

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/filestate"
	"apim-analytics-backend/internal/metrics"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/parser"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventProducer struct {
	mu      sync.Mutex
	batches [][]model.RequestEvent
	err     error
}

func (p *fakeEventProducer) Produce(ctx context.Context, events []model.RequestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]model.RequestEvent(nil), events...))
	return nil
}

func (p *fakeEventProducer) Close() error { return nil }

func (p *fakeEventProducer) events() []model.RequestEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.RequestEvent
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

const (
	androidLine = `2024-05-01T10:00:00Z PizzaAPI 1.0 admin "Mozilla/5.0 (Linux; Android 13; Pixel 7)"` + "\n"
	iosLine     = `2024-05-01T10:00:01Z PizzaAPI 2.0 admin "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X)"` + "\n"
	brokenLine  = "not an access log line\n"
	partialLine = `2024-05-01T10:00:02Z BookAPI 1.0 alice "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`
)

func newTestProducerService(t *testing.T, producer *fakeEventProducer) (EventProducerService, string, filestate.Manager) {
	t.Helper()
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(filepath.Join(logDir, "gw1"), 0o755))
	stateMgr := filestate.NewManager(filepath.Join(dir, "state.json"))
	cfg := &config.Config{Ingest: config.IngestConfig{LogDirectory: logDir, BatchSize: 1}}
	svc := NewEventProducerService(cfg, stateMgr, parser.NewGatewayAccessLogParser(), metrics.NewUserAgentExtractor(), producer)
	return svc, logDir, stateMgr
}

func TestEventProducerServiceShipsCompleteLines(t *testing.T) {
	producer := &fakeEventProducer{}
	svc, logDir, stateMgr := newTestProducerService(t, producer)
	path := filepath.Join(logDir, "gw1", "access.log")
	require.NoError(t, os.WriteFile(path, []byte(androidLine+brokenLine+iosLine+partialLine), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "notes.txt"), []byte(androidLine), 0o644))

	require.NoError(t, svc.ProcessLogs(context.Background()))

	events := producer.events()
	require.Len(t, events, 2)
	assert.Equal(t, "PizzaAPI", events[0].APIName)
	assert.Equal(t, "Android", events[0].Platform)
	assert.Equal(t, "iOS", events[1].Platform)
	assert.Equal(t, path, events[1].SourceFile)
	assert.Len(t, producer.batches, 2, "batch size 1")

	state, err := stateMgr.LoadState()
	require.NoError(t, err)
	assert.Equal(t, int64(len(androidLine+brokenLine+iosLine)), state[path])

	// Nothing new: nothing sent.
	require.NoError(t, svc.ProcessLogs(context.Background()))
	assert.Len(t, producer.events(), 2)

	// Completing the trailing line ships it.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, svc.ProcessLogs(context.Background()))
	events = producer.events()
	require.Len(t, events, 3)
	assert.Equal(t, "BookAPI", events[2].APIName)
	assert.Equal(t, "Windows", events[2].Platform)
}

func TestEventProducerServiceKeepsOffsetOnSendFailure(t *testing.T) {
	producer := &fakeEventProducer{err: errors.New("broker down")}
	svc, logDir, stateMgr := newTestProducerService(t, producer)
	path := filepath.Join(logDir, "access.log")
	require.NoError(t, os.WriteFile(path, []byte(androidLine), 0o644))

	require.NoError(t, svc.ProcessLogs(context.Background()))
	state, err := stateMgr.LoadState()
	require.NoError(t, err)
	assert.Zero(t, state[path])

	producer.err = nil
	require.NoError(t, svc.ProcessLogs(context.Background()))
	assert.Len(t, producer.events(), 1)
}

func TestEventProducerServiceResetsTruncatedFile(t *testing.T) {
	producer := &fakeEventProducer{}
	svc, logDir, stateMgr := newTestProducerService(t, producer)
	path := filepath.Join(logDir, "access.log")
	require.NoError(t, os.WriteFile(path, []byte(androidLine), 0o644))
	require.NoError(t, stateMgr.SaveState(filestate.FileOffsets{path: 10_000}))

	require.NoError(t, svc.ProcessLogs(context.Background()))
	assert.Len(t, producer.events(), 1)
}

func TestEventProducerServiceMissingDirectory(t *testing.T) {
	stateMgr := filestate.NewManager(filepath.Join(t.TempDir(), "state.json"))
	cfg := &config.Config{Ingest: config.IngestConfig{LogDirectory: filepath.Join(t.TempDir(), "missing")}}
	svc := NewEventProducerService(cfg, stateMgr, parser.NewGatewayAccessLogParser(), metrics.NewUserAgentExtractor(), &fakeEventProducer{})

	assert.Error(t, svc.ProcessLogs(context.Background()))
}
