package service

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/kafka"
	"apim-analytics-backend/internal/metrics"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

type EventConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type eventConsumerService struct {
	consumer    kafka.EventConsumer
	eventStore  repository.EventRepository
	batchSize   int           // How many Kafka messages to process at once
	maxWaitTime time.Duration // Max time to wait for batchSize messages
}

func NewEventConsumerService(
	consumer kafka.EventConsumer,
	eventStore repository.EventRepository,
	cfg *config.Config,
) EventConsumerService {
	batchSize := cfg.Ingest.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxWaitTime := cfg.Ingest.MaxBatchWait
	if maxWaitTime <= 0 {
		maxWaitTime = 5 * time.Second
	}
	return &eventConsumerService{
		consumer:    consumer,
		eventStore:  eventStore,
		batchSize:   batchSize,
		maxWaitTime: maxWaitTime,
	}
}

func (s *eventConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting Event Consumer Service loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event Consumer Service loop stopping due to context cancellation.")
			return
		default:
		}

		if err := s.processBatch(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Context cancelled during batch processing.")
				return
			}
			log.Error().Err(err).Msg("Error processing consumer batch")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// processBatch collects up to batchSize messages or waits maxWaitTime,
// stores the decodable events and commits every fetched message only after
// the store succeeded.
func (s *eventConsumerService) processBatch(ctx context.Context) error {
	events := make([]model.RequestEvent, 0, s.batchSize)
	messages := make([]kafkaGo.Message, 0, s.batchSize)
	batchStartTime := time.Now()

	for len(messages) < s.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, s.maxWaitTime-time.Since(batchStartTime))
		event, msg, err := s.consumer.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				log.Trace().Int("batch_size", len(messages)).Msg("Max wait time reached for batch, processing partial batch.")
				break
			}
			if msg.Topic != "" {
				log.Warn().Int64("offset", msg.Offset).Msg("Skipping undecodable message, tracking it for commit.")
				messages = append(messages, msg)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		events = append(events, *event)
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil
	}

	if err := s.eventStore.StoreEvents(ctx, events); err != nil {
		log.Error().Err(err).Int("batch_size", len(events)).Msg("Failed to store request events, skipping commit")
		metrics.IngestEventsTotal.WithLabelValues("failed").Add(float64(len(events)))
		return fmt.Errorf("failed storing events: %w", err)
	}
	metrics.IngestEventsTotal.WithLabelValues("stored").Add(float64(len(events)))

	if err := s.consumer.CommitMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Msg("Failed to commit Kafka messages after successful storage")
		return fmt.Errorf("failed committing kafka messages: %w", err)
	}
	log.Info().Int("events", len(events)).Int("messages", len(messages)).Msg("Successfully processed and committed batch.")
	return nil
}
