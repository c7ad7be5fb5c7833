package elasticsearch

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/normalizer"
	"apim-analytics-backend/internal/query"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/rs/zerolog/log"
)

const (
	aggAPIs      = "apis"
	aggVersions  = "versions"
	aggCreators  = "creators"
	aggPlatforms = "platforms"

	// enumerationSize bounds the distinct values read per level of the API
	// enumeration.
	enumerationSize = 10000
	defaultLimit    = 5
	timestampField  = "@timestamp"
	platformField   = "platform.keyword"
)

type elasticsearchDataProvider struct {
	esTypedClient *elasticsearch.TypedClient
	indexPrefix   string
}

func NewElasticsearchDataProvider(client *elasticsearch.TypedClient, indexPrefix string) (repository.DataProvider, error) {
	if client == nil {
		return nil, errors.New("Elasticsearch typed client is required for DataProvider")
	}
	return &elasticsearchDataProvider{
		esTypedClient: client,
		indexPrefix:   indexPrefix,
	}, nil
}

// Query runs the enumeration or aggregation search selected by the query
// name and flattens its buckets into rows.
func (p *elasticsearchDataProvider) Query(ctx context.Context, cfg model.ProviderConfig) ([][]any, error) {
	name := cfg.Config.QueryData.QueryName
	req, err := buildSearch(cfg)
	if err != nil {
		return nil, err
	}

	res, err := p.esTypedClient.Search().
		Index(fmt.Sprintf("%s-*", p.indexPrefix)).
		Request(req).
		Do(ctx)
	if err != nil {
		log.Error().Err(err).Str("query_name", name).Msg("Error executing Elasticsearch search via TypedClient")
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}

	rows := rowsFromAggregations(name, res.Aggregations)
	log.Debug().Str("query_name", name).Int("rows", len(rows)).Msg("Elasticsearch provider query completed")
	return rows, nil
}

func buildSearch(cfg model.ProviderConfig) (*search.Request, error) {
	size := 0
	switch name := cfg.Config.QueryData.QueryName; name {
	case model.APIListQueryName:
		return &search.Request{
			Size: &size,
			Aggregations: map[string]types.Aggregations{
				aggAPIs: termsAgg("api_name.keyword", enumerationSize, map[string]types.Aggregations{
					aggVersions: termsAgg("api_version.keyword", enumerationSize, map[string]types.Aggregations{
						aggCreators: termsAgg("api_creator.keyword", enumerationSize, nil),
					}),
				}),
			},
		}, nil
	case model.MainQueryName:
		values := cfg.Config.QueryData.QueryValues
		filters := []types.Query{}

		from, to := values[query.KeyTimeFrom], values[query.KeyTimeTo]
		if from != "" || to != "" {
			format := "epoch_millis"
			rng := types.DateRangeQuery{Format: &format}
			if from != "" {
				rng.Gte = &from
			}
			if to != "" {
				rng.Lt = &to
			}
			filters = append(filters, types.Query{Range: map[string]types.RangeQuery{timestampField: rng}})
		}

		expr, err := query.ParseQueryString(query.Substitute(values[query.KeyQueryString], values))
		if err != nil {
			return nil, fmt.Errorf("failed to parse condition of %s: %w", name, err)
		}
		if expr != nil {
			condition, err := toQuery(expr)
			if err != nil {
				return nil, err
			}
			filters = append(filters, condition)
		}

		limit := defaultLimit
		if raw, ok := values[query.KeyLimit]; ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid limit %q for %s", raw, name)
			}
			limit = n
		}

		return &search.Request{
			Size:  &size,
			Query: &types.Query{Bool: &types.BoolQuery{Filter: filters}},
			Aggregations: map[string]types.Aggregations{
				aggPlatforms: termsAgg(platformField, limit, nil),
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrUnknownQuery, name)
	}
}

func termsAgg(field string, size int, sub map[string]types.Aggregations) types.Aggregations {
	return types.Aggregations{
		Terms:        &types.TermsAggregation{Field: &field, Size: &size},
		Aggregations: sub,
	}
}

// rowsFromAggregations flattens terms buckets: (api, version, creator) rows
// for the enumeration, (platform, count) rows for the aggregation.
func rowsFromAggregations(name string, aggs map[string]types.Aggregate) [][]any {
	rows := [][]any{}
	switch name {
	case model.APIListQueryName:
		for _, api := range stringBuckets(aggs[aggAPIs]) {
			for _, version := range stringBuckets(api.Aggregations[aggVersions]) {
				for _, creator := range stringBuckets(version.Aggregations[aggCreators]) {
					rows = append(rows, []any{
						normalizer.ToString(api.Key),
						normalizer.ToString(version.Key),
						normalizer.ToString(creator.Key),
					})
				}
			}
		}
	case model.MainQueryName:
		for _, platform := range stringBuckets(aggs[aggPlatforms]) {
			rows = append(rows, []any{normalizer.ToString(platform.Key), platform.DocCount})
		}
	}
	return rows
}

func stringBuckets(agg types.Aggregate) []types.StringTermsBucket {
	terms, ok := agg.(*types.StringTermsAggregate)
	if !ok || terms == nil {
		return nil
	}
	switch buckets := terms.Buckets.(type) {
	case []types.StringTermsBucket:
		return buckets
	case map[string]types.StringTermsBucket:
		out := make([]types.StringTermsBucket, 0, len(buckets))
		for key, b := range buckets {
			if b.Key == nil {
				b.Key = key
			}
			out = append(out, b)
		}
		return out
	default:
		return nil
	}
}
