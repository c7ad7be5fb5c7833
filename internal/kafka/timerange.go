package kafka

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/model"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

// TimeRangeConsumer reads date-time range selections published by other
// dashboard components.
type TimeRangeConsumer interface {
	ReadTimeWindow(ctx context.Context) (model.TimeWindow, error)
	Close() error
}

type kafkaTimeRangeConsumer struct {
	reader *kafka.Reader
}

func NewKafkaTimeRangeConsumer(lc fx.Lifecycle, cfg *config.Config) (TimeRangeConsumer, error) {
	if cfg.Kafka.TimeRangeTopic == "" {
		return nil, errors.New("kafka time range topic is not configured")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     cfg.Kafka.ConsumerGroup + "_time_range",
		Topic:       cfg.Kafka.TimeRangeTopic,
		MaxBytes:    1e6,
		StartOffset: kafka.LastOffset,
	})
	c := &kafkaTimeRangeConsumer{reader: reader}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("topic", cfg.Kafka.TimeRangeTopic).Msg("Closing Kafka time range consumer")
			return c.Close()
		},
	})
	log.Info().Str("topic", cfg.Kafka.TimeRangeTopic).Msg("Kafka time range consumer initialized")
	return c, nil
}

// ReadTimeWindow blocks for the next window. Undecodable messages are
// skipped; io.EOF is returned once the reader is closed.
func (c *kafkaTimeRangeConsumer) ReadTimeWindow(ctx context.Context) (model.TimeWindow, error) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return model.TimeWindow{}, err
			}
			return model.TimeWindow{}, fmt.Errorf("failed to read time range: %w", err)
		}
		tw, err := DecodeTimeWindow(msg.Value)
		if err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping invalid time range message")
			continue
		}
		return tw, nil
	}
}

func (c *kafkaTimeRangeConsumer) Close() error {
	return c.reader.Close()
}

// DecodeTimeWindow parses {"from":..,"to":..,"granularity":".."} and rejects
// empty or inverted windows.
func DecodeTimeWindow(data []byte) (model.TimeWindow, error) {
	var tw model.TimeWindow
	if err := json.Unmarshal(data, &tw); err != nil {
		return model.TimeWindow{}, fmt.Errorf("invalid time range payload: %w", err)
	}
	if tw.To <= tw.From {
		return model.TimeWindow{}, fmt.Errorf("invalid time range: from %d is not before to %d", tw.From, tw.To)
	}
	return tw, nil
}
