// Command seed writes synthetic gateway access-log lines into the ingest
// directory from a CSV of request templates:
//
//	api_name,api_version,api_creator,user_agent,count
package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"apim-analytics-backend/config"
)

func main() {
	templates := flag.String("templates", "request_templates.csv", "CSV file of request templates")
	window := flag.Duration("window", 24*time.Hour, "spread requests over this period ending now")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	file, err := os.Open(*templates)
	if err != nil {
		log.Fatal().Err(err).Str("file", *templates).Msg("Error opening CSV file")
	}
	defer file.Close()

	if err := os.MkdirAll(cfg.Ingest.LogDirectory, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Ingest.LogDirectory).Msg("Error creating ingest directory")
	}
	outPath := filepath.Join(cfg.Ingest.LogDirectory, "seed-"+time.Now().UTC().Format("20060102T150405")+".log")
	out, err := os.Create(outPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", outPath).Msg("Error creating access log")
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 5
	reader.Comment = '#'

	end := time.Now().UTC()
	total := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("Error reading CSV row")
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(record[4]))
		if err != nil || count < 0 {
			log.Warn().Str("count", record[4]).Msg("Skipping row with invalid count")
			continue
		}
		userAgent := strings.ReplaceAll(record[3], `"`, `\"`)
		for i := 0; i < count; i++ {
			ts := end.Add(-time.Duration(rand.Int63n(int64(*window))))
			_, err := fmt.Fprintf(w, "%s %s %s %s \"%s\"\n",
				ts.Format(time.RFC3339Nano), record[0], record[1], record[2], userAgent)
			if err != nil {
				log.Fatal().Err(err).Msg("Error writing access log")
			}
		}
		total += count
	}
	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Msg("Error flushing access log")
	}
	log.Info().Int("requests", total).Str("file", outPath).Msg("Seeded access log")
}
