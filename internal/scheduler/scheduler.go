package scheduler

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/service"
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

// NewIngestScheduler runs the access-log producer on cfg.Ingest.Schedule
// (six fields, seconds first, or a descriptor such as "@every 30s"). A run
// that is still going when the next one is due makes that one skip.
func NewIngestScheduler(lc fx.Lifecycle, cfg *config.Config, producerSvc service.EventProducerService) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	ctx, cancel := context.WithCancel(context.Background())

	schedule := cfg.Ingest.Schedule
	_, err := c.AddFunc(schedule, func() {
		if err := producerSvc.ProcessLogs(ctx); err != nil {
			log.Error().Err(err).Msg("Error during scheduled access log processing")
		}
	})
	if err != nil {
		cancel()
		log.Error().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil, fmt.Errorf("invalid ingest schedule %q: %w", schedule, err)
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled access log processing job")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			cancel()
			select {
			case <-c.Stop().Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-stopCtx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return stopCtx.Err()
			}
		},
	})

	return c, nil
}
