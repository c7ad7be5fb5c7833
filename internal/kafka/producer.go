package kafka

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/model"
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

type EventProducer interface {
	Produce(ctx context.Context, events []model.RequestEvent) error
	Close() error
}

type kafkaEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaEventProducer(lc fx.Lifecycle, cfg *config.Config) (EventProducer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventTopic == "" {
		log.Error().Msg("Kafka brokers or event topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.EventTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.Ingest.BatchSize,
		BatchTimeout: cfg.Ingest.MaxBatchWait,
		RequiredAcks: kafka.RequireOne,
	}
	p := &kafkaEventProducer{
		writer: writer,
		topic:  cfg.Kafka.EventTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.EventTopic).Msg("Kafka producer initialized")
	return p, nil
}

// Produce writes events keyed by API name, so one API's events stay ordered
// within a partition.
func (p *kafkaEventProducer) Produce(ctx context.Context, events []model.RequestEvent) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("api", event.APIName).Msg("Failed to marshal request event for Kafka")
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.APIName),
			Value: value,
		})
	}
	if len(messages) == 0 {
		log.Warn().Msg("No valid messages to produce.")
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")
	return nil
}

func (p *kafkaEventProducer) Close() error {
	return p.writer.Close()
}
