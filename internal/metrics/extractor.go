package metrics

import (
	"apim-analytics-backend/internal/model"
	"regexp"

	"github.com/rs/zerolog/log"
)

// Platform names produced by the extractor.
const (
	PlatformAndroid  = "Android"
	PlatformIOS      = "iOS"
	PlatformWindows  = "Windows"
	PlatformMacOSX   = "Mac OS X"
	PlatformLinux    = "Linux"
	PlatformChromeOS = "Chrome OS"
	PlatformOther    = "Other"
)

type Extractor interface {
	ExtractPlatform(event *model.RequestEvent) string
}

type platformRule struct {
	platform string
	regex    *regexp.Regexp
}

type userAgentExtractor struct {
	rules []platformRule
}

// NewUserAgentExtractor classifies user agents by operating system. Rules
// are checked in order, so Android wins over Linux and iOS over Mac OS X.
func NewUserAgentExtractor() Extractor {
	return &userAgentExtractor{
		rules: []platformRule{
			{PlatformAndroid, regexp.MustCompile(`(?i)android`)},
			{PlatformIOS, regexp.MustCompile(`(?i)iphone|ipad|ipod|\bios\b|cfnetwork`)},
			{PlatformChromeOS, regexp.MustCompile(`(?i)\bcros\b`)},
			{PlatformWindows, regexp.MustCompile(`(?i)windows`)},
			{PlatformMacOSX, regexp.MustCompile(`(?i)mac os x|macintosh|darwin`)},
			{PlatformLinux, regexp.MustCompile(`(?i)linux|x11|ubuntu|fedora`)},
		},
	}
}

// ExtractPlatform sets and returns the platform of event.
func (e *userAgentExtractor) ExtractPlatform(event *model.RequestEvent) string {
	if event == nil {
		return ""
	}
	platform := PlatformOther
	for _, rule := range e.rules {
		if rule.regex.MatchString(event.UserAgent) {
			platform = rule.platform
			break
		}
	}
	event.Platform = platform
	IngestPlatformEventsTotal.WithLabelValues(platform).Inc()
	log.Trace().Str("user_agent", event.UserAgent).Str("platform", platform).Msg("Extracted platform")
	return platform
}
