package elasticsearch

import (
	"apim-analytics-backend/internal/query"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// keywordFields maps condition identifiers onto keyword sub-fields of the
// dynamically mapped request event documents.
var keywordFields = map[string]string{
	query.FieldAPIName:    "api_name.keyword",
	query.FieldAPIVersion: "api_version.keyword",
	"apiCreator":          "api_creator.keyword",
	"platform":            "platform.keyword",
}

// toQuery translates a parsed condition into term queries combined with bool
// clauses.
func toQuery(e query.Expr) (types.Query, error) {
	switch e := e.(type) {
	case query.Comparison:
		field, ok := keywordFields[e.Field]
		if !ok {
			return types.Query{}, fmt.Errorf("%w: %s", query.ErrUnknownField, e.Field)
		}
		term := types.Query{Term: map[string]types.TermQuery{field: {Value: e.Value}}}
		if e.Op == query.OpNotEqual {
			return types.Query{Bool: &types.BoolQuery{MustNot: []types.Query{term}}}, nil
		}
		return term, nil
	case query.Logical:
		operands := make([]types.Query, 0, len(e.Operands))
		for _, operand := range e.Operands {
			q, err := toQuery(operand)
			if err != nil {
				return types.Query{}, err
			}
			operands = append(operands, q)
		}
		if e.Op == query.OpOr {
			return types.Query{Bool: &types.BoolQuery{Should: operands, MinimumShouldMatch: 1}}, nil
		}
		return types.Query{Bool: &types.BoolQuery{Filter: operands}}, nil
	default:
		return types.Query{}, fmt.Errorf("%w: unsupported expression %T", query.ErrSyntax, e)
	}
}
