package service

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/filestate"
	"apim-analytics-backend/internal/kafka"
	"apim-analytics-backend/internal/metrics"
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/parser"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type EventProducerService interface {
	ProcessLogs(ctx context.Context) error
}

type eventProducerService struct {
	parser      parser.AccessLogParser
	extractor   metrics.Extractor
	producer    kafka.EventProducer
	cfg         *config.IngestConfig
	stateMgr    filestate.Manager
	processLock sync.Mutex
}

func NewEventProducerService(
	cfg *config.Config,
	stateMgr filestate.Manager,
	parser parser.AccessLogParser,
	extractor metrics.Extractor,
	producer kafka.EventProducer,
) EventProducerService {
	return &eventProducerService{
		cfg:       &cfg.Ingest,
		stateMgr:  stateMgr,
		parser:    parser,
		extractor: extractor,
		producer:  producer,
	}
}

// ProcessLogs ships every access-log line appended since the previous run.
// A file's offset only moves forward once all of its new events reached
// Kafka, so a failed run is retried from the same position.
func (s *eventProducerService) ProcessLogs(ctx context.Context) error {
	if !s.processLock.TryLock() {
		log.Warn().Msg("Access log processing already in progress, skipping run.")
		return nil
	}
	defer s.processLock.Unlock()

	log.Info().Msg("Starting access log processing cycle...")
	startTime := time.Now()

	currentState, err := s.stateMgr.LoadState()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load file offsets")
		return fmt.Errorf("failed to load file state: %w", err)
	}
	newState := maps.Clone(currentState)

	logFiles, err := s.findLogFiles()
	if err != nil {
		log.Error().Err(err).Msg("Failed to find access log files")
		return fmt.Errorf("failed to find log files: %w", err)
	}
	log.Debug().Int("file_count", len(logFiles)).Msg("Found access log files to process")

	var totalLinesRead, totalEventsSent int64
	for _, filePath := range logFiles {
		linesRead, newOffset, events, err := s.processSingleFile(ctx, filePath, currentState[filePath])
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error().Err(err).Str("file", filePath).Msg("Failed to process file")
			continue
		}
		totalLinesRead += linesRead

		if err := s.sendInBatches(ctx, events); err != nil {
			log.Error().Err(err).Str("file", filePath).Msg("Failed to send events to Kafka, offset kept")
			continue
		}
		totalEventsSent += int64(len(events))
		newState[filePath] = newOffset
	}

	if err := s.stateMgr.SaveState(newState); err != nil {
		log.Error().Err(err).Msg("Failed to save file offsets")
		return fmt.Errorf("failed to save final file state: %w", err)
	}

	log.Info().
		Int64("lines_read", totalLinesRead).
		Int64("events_sent", totalEventsSent).
		Int("files_processed", len(logFiles)).
		Dur("duration", time.Since(startTime)).
		Msg("Finished access log processing cycle.")
	return ctx.Err()
}

func (s *eventProducerService) findLogFiles() ([]string, error) {
	var logFiles []string
	err := filepath.WalkDir(s.cfg.LogDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.cfg.LogDirectory {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("Failed to read log path")
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".log") {
			logFiles = append(logFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load log directory: %w", err)
	}
	return logFiles, nil
}

// processSingleFile reads complete lines after lastOffset. A trailing line
// without a newline is left for the next run.
func (s *eventProducerService) processSingleFile(ctx context.Context, filePath string, lastOffset int64) (linesRead int64, newOffset int64, events []model.RequestEvent, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, lastOffset, nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, lastOffset, nil, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if info.Size() < lastOffset {
		log.Warn().Str("file", filePath).Int64("last_offset", lastOffset).Int64("current_size", info.Size()).Msg("File truncated or rotated? Resetting offset.")
		lastOffset = 0
	}

	if _, err = file.Seek(lastOffset, io.SeekStart); err != nil {
		return 0, lastOffset, nil, fmt.Errorf("failed to seek file %s to offset %d: %w", filePath, lastOffset, err)
	}

	reader := bufio.NewReader(file)
	currentOffset := lastOffset
	for {
		if ctx.Err() != nil {
			return linesRead, currentOffset, events, ctx.Err()
		}
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return linesRead, currentOffset, events, fmt.Errorf("error reading file %s: %w", filePath, readErr)
		}
		linesRead++
		currentOffset += int64(len(line))

		text := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		event, err := s.parser.Parse(text, filePath)
		if err != nil {
			metrics.IngestEventsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		s.extractor.ExtractPlatform(event)
		metrics.IngestEventsTotal.WithLabelValues("parsed").Inc()
		events = append(events, *event)
	}

	log.Debug().Str("file", filePath).Int64("lines_read", linesRead).Int("events", len(events)).Msg("Finished processing file")
	return linesRead, currentOffset, events, nil
}

func (s *eventProducerService) sendInBatches(ctx context.Context, events []model.RequestEvent) error {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(events)
	}
	for start := 0; start < len(events); start += batchSize {
		end := min(start+batchSize, len(events))
		batch := events[start:end]
		log.Debug().Int("batch_size", len(batch)).Msg("Sending batch to Kafka...")
		if err := s.producer.Produce(ctx, batch); err != nil {
			return fmt.Errorf("kafka produce error: %w", err)
		}
		metrics.IngestEventsTotal.WithLabelValues("produced").Add(float64(len(batch)))
	}
	return nil
}
