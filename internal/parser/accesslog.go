package parser

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/util"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

type AccessLogParser interface {
	Parse(line string, filePath string) (*model.RequestEvent, error)
}

type gatewayAccessLogParser struct {
	lineRegex *regexp.Regexp
}

func NewGatewayAccessLogParser() AccessLogParser {
	// Groups: 1:Timestamp, 2:API name, 3:API version, 4:API creator, 5:User agent
	regex := regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+"(.*)"\s*$`)
	return &gatewayAccessLogParser{lineRegex: regex}
}

// Parse reads one access-log line:
//
//	<RFC3339 or epoch-ms timestamp> <apiName> <apiVersion> <apiCreator> "<user agent>"
//
// The platform is left empty for the extractor to fill in.
func (p *gatewayAccessLogParser) Parse(line string, sourceFilePath string) (*model.RequestEvent, error) {
	matches := p.lineRegex.FindStringSubmatch(strings.TrimSpace(line))
	if len(matches) != 6 {
		log.Debug().Str("line", line).Msg("Access log line did not match expected format")
		return nil, fmt.Errorf("line does not match expected format: %s", line)
	}

	timestamp, err := util.ParseTimeFlexible(matches[1])
	if err != nil {
		log.Debug().Err(err).Str("timestamp", matches[1]).Msg("Failed to parse access log timestamp")
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return &model.RequestEvent{
		Timestamp:  timestamp,
		APIName:    matches[2],
		APIVersion: matches[3],
		APICreator: matches[4],
		UserAgent:  strings.ReplaceAll(matches[5], `\"`, `"`),
		SourceFile: sourceFilePath,
	}, nil
}
