package service

import (
	"apim-analytics-backend/internal/kafka"
	"apim-analytics-backend/internal/model"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TimeRangeHub fans date-time range notifications out to widget instances.
// A new subscriber immediately receives the last published window.
type TimeRangeHub interface {
	Subscribe(instanceID string, handler func(model.TimeWindow))
	Unsubscribe(instanceID string)
	Publish(tw model.TimeWindow)
	PublishTo(instanceID string, tw model.TimeWindow) bool
}

type timeRangeHub struct {
	mu       sync.RWMutex
	handlers map[string]func(model.TimeWindow)
	last     *model.TimeWindow
}

func NewTimeRangeHub() TimeRangeHub {
	return &timeRangeHub{handlers: make(map[string]func(model.TimeWindow))}
}

func (h *timeRangeHub) Subscribe(instanceID string, handler func(model.TimeWindow)) {
	h.mu.Lock()
	h.handlers[instanceID] = handler
	last := h.last
	h.mu.Unlock()

	if last != nil {
		handler(*last)
	}
}

func (h *timeRangeHub) Unsubscribe(instanceID string) {
	h.mu.Lock()
	delete(h.handlers, instanceID)
	h.mu.Unlock()
}

func (h *timeRangeHub) Publish(tw model.TimeWindow) {
	h.mu.Lock()
	h.last = &tw
	handlers := make([]func(model.TimeWindow), 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	log.Debug().Int64("from", tw.From).Int64("to", tw.To).Int("subscribers", len(handlers)).Msg("Publishing time range")
	for _, fn := range handlers {
		fn(tw)
	}
}

// PublishTo notifies a single instance without touching the replayed window.
func (h *timeRangeHub) PublishTo(instanceID string, tw model.TimeWindow) bool {
	h.mu.RLock()
	fn, ok := h.handlers[instanceID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	fn(tw)
	return true
}

// TimeRangeListener forwards windows read from the time-range topic to the hub.
type TimeRangeListener interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type timeRangeListener struct {
	consumer kafka.TimeRangeConsumer
	hub      TimeRangeHub
}

func NewTimeRangeListener(consumer kafka.TimeRangeConsumer, hub TimeRangeHub) TimeRangeListener {
	return &timeRangeListener{consumer: consumer, hub: hub}
}

func (l *timeRangeListener) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting time range listener...")
	for {
		tw, err := l.consumer.ReadTimeWindow(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.Info().Msg("Time range listener stopping.")
				return
			}
			log.Error().Err(err).Msg("Error reading time range")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		l.hub.Publish(tw)
	}
}
