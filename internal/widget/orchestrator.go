package widget

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/normalizer"
	"apim-analytics-backend/internal/query"
	"maps"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// assembleApiListQuery subscribes to the API enumeration query.
func (c *Controller) assembleApiListQuery() {
	c.resetState()
	if c.providerConfig == nil {
		return
	}
	cfg := c.providerConfig.Clone()
	cfg.Config.QueryData.QueryName = model.APIListQueryName
	c.phase = PhaseEnumerating
	c.subscribe(cfg, c.handleApiListReceived)
}

// handleApiListReceived rebuilds the option lists and moves on to the
// aggregation query. A delivery without data keeps the previous lists.
func (c *Controller) handleApiListReceived(msg model.DataMessage) {
	if msg.Err != nil {
		log.Warn().Err(msg.Err).Str("instance", c.id).Msg("API enumeration failed")
	}
	if msg.Data != nil {
		username := normalizer.NormalizeUsername(c.host.GetCurrentUser())
		entries := normalizer.CatalogEntries(msg.Data)
		c.apiList, c.versionList = normalizer.OptionLists(entries, c.state.CreatedBy, c.state.SelectedAPI, username)
		c.setQueryParam(c.state.CreatedBy, c.state.SelectedAPI, c.state.SelectedVersion, c.state.Limit)
	}
	c.unsubscribe()
	c.assembleMainQuery()
}

// assembleMainQuery subscribes to the platform aggregation query, or
// publishes an empty result when there is no API to aggregate over.
func (c *Controller) assembleMainQuery() {
	c.resetState()
	if c.providerConfig == nil {
		return
	}
	if len(c.apiList) <= 1 {
		c.platformData = []model.PlatformMetric{}
		c.legendData = []model.LegendEntry{}
		c.inProgress = false
		c.phase = PhaseIdle
		c.changed()
		return
	}

	clause := query.BuildFilterClause(c.apiList[1:], c.state.SelectedAPI, c.state.SelectedVersion)
	values := map[string]string{
		query.KeyTimeFrom:    strconv.FormatInt(c.timeWindow.From, 10),
		query.KeyTimeTo:      strconv.FormatInt(c.timeWindow.To, 10),
		query.KeyPer:         c.timeWindow.Granularity,
		query.KeyLimit:       strconv.Itoa(c.state.Limit),
		query.KeyQueryString: clause.QueryString,
	}
	maps.Copy(values, clause.Values)

	cfg := c.providerConfig.Clone()
	cfg.Config.QueryData.QueryName = model.MainQueryName
	cfg.Config.QueryData.QueryValues = values
	c.phase = PhaseAggregating
	c.subscribe(cfg, c.handleDataReceived)
}

func (c *Controller) handleDataReceived(msg model.DataMessage) {
	if msg.Err != nil {
		log.Warn().Err(msg.Err).Str("instance", c.id).Msg("Platform aggregation failed")
	}
	if msg.Data != nil {
		c.platformData, c.legendData = normalizer.PlatformMetrics(msg.Data)
		c.setQueryParam(c.state.CreatedBy, c.state.SelectedAPI, c.state.SelectedVersion, c.state.Limit)
	} else {
		c.platformData = []model.PlatformMetric{}
	}
	c.inProgress = false
	c.phase = PhaseIdle
	c.changed()
}

// ParseLimit normalizes raw limit input: the first "-" is removed and
// anything from the first "." on is dropped. It returns the remaining text
// and its leading integer, 0 when there is none.
func ParseLimit(raw string) (string, int) {
	text, _, _ := strings.Cut(strings.Replace(raw, "-", "", 1), ".")
	return text, leadingInt(text)
}

func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
