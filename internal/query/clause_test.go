package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apim-analytics-backend/internal/query"
)

func TestBuildFilterClause(t *testing.T) {
	apis := []string{"A", "B"}

	t.Run("All APIs and all versions", func(t *testing.T) {
		c := query.BuildFilterClause(apis, "All", "All")
		assert.Equal(t, "AND (apiName=='A' or apiName=='B')", c.QueryString)
		assert.Empty(t, c.Values)
		assert.Equal(t, "apiName=='A' or apiName=='B'", query.AnyOf(query.FieldAPIName, apis))
	})

	t.Run("One API and one version", func(t *testing.T) {
		c := query.BuildFilterClause(apis, "A", "2")
		resolved := query.Substitute(c.QueryString, c.Values)
		assert.Equal(t, "AND apiName=='A' AND apiVersion=='2'", resolved)
		assert.Equal(t, "A", c.Values[query.KeyAPI])
		assert.Equal(t, "2", c.Values[query.KeyVersion])
	})

	t.Run("One API and all versions", func(t *testing.T) {
		c := query.BuildFilterClause(apis, "A", "All")
		resolved := query.Substitute(c.QueryString, c.Values)
		assert.Equal(t, "AND apiName=='A'", resolved)
		_, hasVersion := c.Values[query.KeyVersion]
		assert.False(t, hasVersion)
	})

	t.Run("All APIs with a stale version falls back to the name rule", func(t *testing.T) {
		c := query.BuildFilterClause(apis, "All", "2")
		assert.Equal(t, "AND apiName=='{{api}}'", c.QueryString)
		assert.Equal(t, "All", c.Values[query.KeyAPI])
	})
}

func TestBuildFilterClause_QuotedNameRoundTrips(t *testing.T) {
	c := query.BuildFilterClause(nil, "Bob's API", "All")
	expr, err := query.ParseQueryString(query.Substitute(c.QueryString, c.Values))
	require.NoError(t, err)
	assert.Equal(t, query.Comparison{Field: "apiName", Op: "==", Value: "Bob's API"}, expr)
}
