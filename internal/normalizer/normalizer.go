// Package normalizer maps raw data-channel rows onto UI-ready entities.
// Everything here is pure and order-preserving: de-duplication keeps the
// first appearance, nothing is sorted.
package normalizer

import (
	"apim-analytics-backend/internal/model"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const superTenantSuffix = "@carbon.super"

// NormalizeUsername drops the super-tenant suffix. With email usernames
// enabled super-tenant users are stored with the suffix, otherwise without,
// so the suffix is only stripped when the name holds exactly one "@".
func NormalizeUsername(username string) string {
	if strings.Count(username, "@") == 1 {
		return strings.Replace(username, superTenantSuffix, "", 1)
	}
	return username
}

// CatalogEntries reads enumeration rows (apiName, apiVersion, ownerUsername).
// Missing columns read as empty strings.
func CatalogEntries(rows [][]any) []model.ApiCatalogEntry {
	entries := make([]model.ApiCatalogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.ApiCatalogEntry{
			APIName:       column(row, 0),
			APIVersion:    column(row, 1),
			OwnerUsername: column(row, 2),
		})
	}
	return entries
}

// OptionLists builds the API and version selector options. Both lists start
// with the "All" sentinel. With scope Me only entries owned by username count.
func OptionLists(entries []model.ApiCatalogEntry, scope, selectedAPI, username string) (apiList, versionList []string) {
	apiList = []string{model.AllSentinel}
	versionList = []string{model.AllSentinel}
	if scope != model.CreatedByAll && scope != model.CreatedByMe {
		return apiList, versionList
	}
	seenAPI := map[string]bool{}
	seenVersion := map[string]bool{}
	for _, e := range entries {
		if scope == model.CreatedByMe && e.OwnerUsername != username {
			continue
		}
		if !seenAPI[e.APIName] {
			seenAPI[e.APIName] = true
			apiList = append(apiList, e.APIName)
		}
		if e.APIName == selectedAPI && !seenVersion[e.APIVersion] {
			seenVersion[e.APIVersion] = true
			versionList = append(versionList, e.APIVersion)
		}
	}
	return apiList, versionList
}

// PlatformMetrics reads aggregation rows (platformName, requestCount). Ids
// run from 1 in row order; the legend holds each platform name once.
func PlatformMetrics(rows [][]any) ([]model.PlatformMetric, []model.LegendEntry) {
	metrics := make([]model.PlatformMetric, 0, len(rows))
	legend := make([]model.LegendEntry, 0, len(rows))
	seen := map[string]bool{}
	for i, row := range rows {
		platform := column(row, 0)
		var count int64
		if len(row) > 1 {
			count = ToInt64(row[1])
		}
		if !seen[platform] {
			seen[platform] = true
			legend = append(legend, model.LegendEntry{Name: platform})
		}
		metrics = append(metrics, model.PlatformMetric{
			ID:           i + 1,
			Platform:     platform,
			RequestCount: count,
		})
	}
	return metrics, legend
}

func column(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return ToString(row[i])
}

func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ToInt64 accepts the numeric shapes produced by pgx, Elasticsearch and JSON
// decoding. Anything unparsable counts as 0.
func ToInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return int64(f)
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(x, 64)
		return int64(f)
	default:
		return 0
	}
}
