package query

import (
	"apim-analytics-backend/internal/model"
	"strings"
)

// Condition identifiers understood by every provider.
const (
	FieldAPIName    = "apiName"
	FieldAPIVersion = "apiVersion"
)

// FilterClause is the restriction appended to the aggregation query: the
// value of {{querystring}} plus the extra substitutions it references.
type FilterClause struct {
	QueryString string
	Values      map[string]string
}

// BuildFilterClause picks exactly one rule, in this order:
//  1. all APIs and all versions: disjunction over every known API name
//  2. one API and one version: exact match on both
//  3. one API, all versions: exact match on the name
func BuildFilterClause(apis []string, selectedAPI, selectedVersion string) FilterClause {
	switch {
	case selectedAPI == model.AllSentinel && selectedVersion == model.AllSentinel:
		return FilterClause{QueryString: "AND (" + AnyOf(FieldAPIName, apis) + ")"}
	case selectedAPI != model.AllSentinel && selectedVersion != model.AllSentinel:
		return FilterClause{
			QueryString: "AND " + FieldAPIName + "=='" + KeyAPI + "' AND " + FieldAPIVersion + "=='" + KeyVersion + "'",
			Values: map[string]string{
				KeyAPI:     EscapeLiteral(selectedAPI),
				KeyVersion: EscapeLiteral(selectedVersion),
			},
		}
	default:
		return FilterClause{
			QueryString: "AND " + FieldAPIName + "=='" + KeyAPI + "'",
			Values:      map[string]string{KeyAPI: EscapeLiteral(selectedAPI)},
		}
	}
}

// AnyOf renders field=='v1' or field=='v2' ...
func AnyOf(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, field+"=='"+EscapeLiteral(v)+"'")
	}
	return strings.Join(parts, " or ")
}
