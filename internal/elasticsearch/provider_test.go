package elasticsearch

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/query"
	"apim-analytics-backend/internal/repository"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(name string, values map[string]string) model.ProviderConfig {
	return model.ProviderConfig{
		Type: "elasticsearch",
		Config: model.ProviderConfigBody{QueryData: model.QueryData{
			QueryName:   name,
			QueryValues: values,
		}},
	}
}

func TestBuildSearchEnumeration(t *testing.T) {
	req, err := buildSearch(configFor(model.APIListQueryName, nil))
	require.NoError(t, err)

	require.NotNil(t, req.Size)
	assert.Zero(t, *req.Size)
	apis := req.Aggregations[aggAPIs]
	require.NotNil(t, apis.Terms)
	assert.Equal(t, "api_name.keyword", *apis.Terms.Field)
	versions := apis.Aggregations[aggVersions]
	assert.Equal(t, "api_version.keyword", *versions.Terms.Field)
	assert.Equal(t, "api_creator.keyword", *versions.Aggregations[aggCreators].Terms.Field)
}

func TestBuildSearchAggregation(t *testing.T) {
	clause := query.BuildFilterClause([]string{"PizzaAPI", "BookAPI"}, model.AllSentinel, model.AllSentinel)
	req, err := buildSearch(configFor(model.MainQueryName, map[string]string{
		query.KeyTimeFrom:    "1000",
		query.KeyTimeTo:      "2000",
		query.KeyLimit:       "3",
		query.KeyQueryString: clause.QueryString,
	}))
	require.NoError(t, err)

	platforms := req.Aggregations[aggPlatforms]
	assert.Equal(t, platformField, *platforms.Terms.Field)
	assert.Equal(t, 3, *platforms.Terms.Size)

	filters := req.Query.Bool.Filter
	require.Len(t, filters, 2)
	rng, ok := filters[0].Range[timestampField].(types.DateRangeQuery)
	require.True(t, ok)
	assert.Equal(t, "1000", *rng.Gte)
	assert.Equal(t, "2000", *rng.Lt)
	assert.Equal(t, "epoch_millis", *rng.Format)

	should := filters[1].Bool.Should
	require.Len(t, should, 2)
	assert.Equal(t, "PizzaAPI", should[0].Term["api_name.keyword"].Value)
	assert.Equal(t, "BookAPI", should[1].Term["api_name.keyword"].Value)
	assert.Equal(t, 1, filters[1].Bool.MinimumShouldMatch)
}

func TestBuildSearchErrors(t *testing.T) {
	t.Run("unknown query", func(t *testing.T) {
		_, err := buildSearch(configFor("other", nil))
		assert.ErrorIs(t, err, repository.ErrUnknownQuery)
	})

	t.Run("bad limit", func(t *testing.T) {
		_, err := buildSearch(configFor(model.MainQueryName, map[string]string{query.KeyLimit: "zero"}))
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := buildSearch(configFor(model.MainQueryName, map[string]string{query.KeyQueryString: "AND tenant=='x'"}))
		assert.ErrorIs(t, err, query.ErrUnknownField)
	})
}

func TestToQuery(t *testing.T) {
	expr, err := query.ParseCondition("apiName=='PizzaAPI' and apiVersion!='1.0'")
	require.NoError(t, err)

	q, err := toQuery(expr)
	require.NoError(t, err)
	require.NotNil(t, q.Bool)
	require.Len(t, q.Bool.Filter, 2)
	assert.Equal(t, "PizzaAPI", q.Bool.Filter[0].Term["api_name.keyword"].Value)
	notVersion := q.Bool.Filter[1].Bool.MustNot
	require.Len(t, notVersion, 1)
	assert.Equal(t, "1.0", notVersion[0].Term["api_version.keyword"].Value)
}

func TestRowsFromAggregations(t *testing.T) {
	t.Run("enumeration", func(t *testing.T) {
		aggs := map[string]types.Aggregate{
			aggAPIs: &types.StringTermsAggregate{Buckets: []types.StringTermsBucket{
				{Key: "PizzaAPI", Aggregations: map[string]types.Aggregate{
					aggVersions: &types.StringTermsAggregate{Buckets: []types.StringTermsBucket{
						{Key: "1.0", Aggregations: map[string]types.Aggregate{
							aggCreators: &types.StringTermsAggregate{Buckets: []types.StringTermsBucket{{Key: "admin"}}},
						}},
						{Key: "2.0", Aggregations: map[string]types.Aggregate{
							aggCreators: &types.StringTermsAggregate{Buckets: []types.StringTermsBucket{{Key: "admin"}}},
						}},
					}},
				}},
			}},
		}
		assert.Equal(t, [][]any{
			{"PizzaAPI", "1.0", "admin"},
			{"PizzaAPI", "2.0", "admin"},
		}, rowsFromAggregations(model.APIListQueryName, aggs))
	})

	t.Run("aggregation", func(t *testing.T) {
		aggs := map[string]types.Aggregate{
			aggPlatforms: &types.StringTermsAggregate{Buckets: []types.StringTermsBucket{
				{Key: "Android", DocCount: 42},
				{Key: "iOS", DocCount: 7},
			}},
		}
		assert.Equal(t, [][]any{{"Android", int64(42)}, {"iOS", int64(7)}}, rowsFromAggregations(model.MainQueryName, aggs))
	})

	t.Run("no aggregations", func(t *testing.T) {
		rows := rowsFromAggregations(model.MainQueryName, nil)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})
}

func TestIndexName(t *testing.T) {
	ts := time.Date(2024, 5, 1, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "api-requests-2024-05-02", indexName("api-requests", ts))
}
