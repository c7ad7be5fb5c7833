package query

import (
	"fmt"
	"strings"
)

// SQLRenderer turns a provider template into a parameterized statement.
// Every placeholder becomes a positional bind parameter; the condition
// placeholder is parsed and rendered over whitelisted columns so literals are
// never spliced into the SQL text.
type SQLRenderer struct {
	Columns      map[string]string // condition identifier -> SQL column
	ConditionKey string
}

func (r SQLRenderer) Render(template string, values map[string]string) (string, []any, error) {
	var b strings.Builder
	var args []any
	last := 0
	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		last = loc[1]
		key := Placeholder(template[loc[2]:loc[3]])
		val, ok := values[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrMissingValue, key)
		}
		if key != r.ConditionKey {
			args = append(args, val)
			fmt.Fprintf(&b, "$%d", len(args))
			continue
		}
		expr, err := ParseQueryString(Substitute(val, values))
		if err != nil {
			return "", nil, err
		}
		if expr == nil {
			continue
		}
		b.WriteString("AND ")
		if err := r.writeExpr(&b, expr, &args); err != nil {
			return "", nil, err
		}
	}
	b.WriteString(template[last:])
	return b.String(), args, nil
}

func (r SQLRenderer) writeExpr(b *strings.Builder, e Expr, args *[]any) error {
	switch e := e.(type) {
	case Comparison:
		col, ok := r.Columns[e.Field]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, e.Field)
		}
		op := "="
		if e.Op == OpNotEqual {
			op = "<>"
		}
		*args = append(*args, e.Value)
		fmt.Fprintf(b, "%s %s $%d", col, op, len(*args))
	case Logical:
		b.WriteString("(")
		for i, operand := range e.Operands {
			if i > 0 {
				b.WriteString(" " + strings.ToUpper(e.Op) + " ")
			}
			if err := r.writeExpr(b, operand, args); err != nil {
				return err
			}
		}
		b.WriteString(")")
	default:
		return fmt.Errorf("%w: unsupported expression %T", ErrSyntax, e)
	}
	return nil
}
