package query

import (
	"fmt"
	"sort"
	"strings"
)

// ToSQL renders the descriptor as a best-effort SQL string for human
// debugging. The string is never sent to the server and makes no promise
// of being executable for every operator. Insert and update columns are
// rendered in sorted order so the output is deterministic.
func (b *Builder) ToSQL() (string, error) {
	desc, err := b.ToQuery()
	if err != nil {
		return "", err
	}
	return renderSQL(desc), nil
}

func renderSQL(d *Descriptor) string {
	var sb strings.Builder
	switch d.Type {
	case StatementInsert:
		renderInsert(&sb, d)
	case StatementUpdate:
		renderUpdate(&sb, d)
	case StatementDelete:
		renderDelete(&sb, d)
	default:
		renderSelect(&sb, d)
	}
	return sb.String()
}

func renderSelect(sb *strings.Builder, d *Descriptor) {
	sb.WriteString("SELECT ")
	if d.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(d.Columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(d.Columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(d.Table)

	for _, j := range d.Joins {
		sb.WriteString(" ")
		sb.WriteString(joinKeyword(j.Kind))
		sb.WriteString(" ")
		sb.WriteString(j.Table)
		sb.WriteString(" ON ")
		sb.WriteString(j.FirstColumn)
		sb.WriteString(" ")
		sb.WriteString(string(j.Operator))
		sb.WriteString(" ")
		sb.WriteString(j.SecondColumn)
	}

	if len(d.Where) > 0 {
		sb.WriteString(" WHERE ")
		renderConditions(sb, d.Where)
	}
	if len(d.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(d.GroupBy, ", "))
	}
	if len(d.Having) > 0 {
		sb.WriteString(" HAVING ")
		renderConditions(sb, d.Having)
	}
	if len(d.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range d.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.Column)
			sb.WriteString(" ")
			sb.WriteString(strings.ToUpper(string(o.Direction)))
		}
	}
	if d.Limit != nil {
		fmt.Fprintf(sb, " LIMIT %d", *d.Limit)
	}
	if d.Offset != nil {
		fmt.Fprintf(sb, " OFFSET %d", *d.Offset)
	}
}

func renderInsert(sb *strings.Builder, d *Descriptor) {
	var records []map[string]any
	switch data := d.InsertData.(type) {
	case map[string]any:
		records = []map[string]any{data}
	case []map[string]any:
		records = data
	}
	if len(records) == 0 {
		sb.WriteString("INSERT INTO ")
		sb.WriteString(d.Table)
		return
	}

	cols := sortedKeys(records[0])
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.Table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(renderValue(rec[col]))
		}
		sb.WriteString(")")
	}
	renderReturning(sb, d.Returning)
}

func renderUpdate(sb *strings.Builder, d *Descriptor) {
	sb.WriteString("UPDATE ")
	sb.WriteString(d.Table)
	sb.WriteString(" SET ")
	for i, col := range sortedKeys(d.UpdateData) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ")
		sb.WriteString(renderValue(d.UpdateData[col]))
	}
	if len(d.Where) > 0 {
		sb.WriteString(" WHERE ")
		renderConditions(sb, d.Where)
	}
	renderReturning(sb, d.Returning)
}

func renderDelete(sb *strings.Builder, d *Descriptor) {
	sb.WriteString("DELETE FROM ")
	sb.WriteString(d.Table)
	if len(d.Where) > 0 {
		sb.WriteString(" WHERE ")
		renderConditions(sb, d.Where)
	}
	renderReturning(sb, d.Returning)
}

func renderReturning(sb *strings.Builder, cols []string) {
	if len(cols) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(cols, ", "))
	}
}

// renderConditions walks the tree depth-first. The first node's combinator
// is not rendered; groups get parentheses so precedence reads the way the
// backend will reconstruct it.
func renderConditions(sb *strings.Builder, conds []Condition) {
	for i, c := range conds {
		if i > 0 {
			if c.Bool == BoolOr {
				sb.WriteString(" OR ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		renderCondition(sb, c)
	}
}

func renderCondition(sb *strings.Builder, c Condition) {
	switch {
	case len(c.Group) > 0:
		sb.WriteString("(")
		renderConditions(sb, c.Group)
		sb.WriteString(")")
	case c.Raw != "":
		sb.WriteString(renderRaw(c.Raw, c.RawParams))
	default:
		sb.WriteString(c.Column)
		switch c.Operator {
		case OpIsNull:
			sb.WriteString(" IS NULL")
		case OpIsNotNull:
			sb.WriteString(" IS NOT NULL")
		case OpIn, OpNotIn:
			if c.Operator == OpIn {
				sb.WriteString(" IN (")
			} else {
				sb.WriteString(" NOT IN (")
			}
			if vals, ok := c.Value.([]any); ok {
				for i, v := range vals {
					if i > 0 {
						sb.WriteString(", ")
					}
					sb.WriteString(renderValue(v))
				}
			}
			sb.WriteString(")")
		case OpBetween:
			sb.WriteString(" BETWEEN ")
			if pair, ok := c.Value.([]any); ok && len(pair) == 2 {
				sb.WriteString(renderValue(pair[0]))
				sb.WriteString(" AND ")
				sb.WriteString(renderValue(pair[1]))
			}
		case OpLike:
			sb.WriteString(" LIKE ")
			sb.WriteString(renderValue(c.Value))
		case OpILike:
			sb.WriteString(" ILIKE ")
			sb.WriteString(renderValue(c.Value))
		default:
			sb.WriteString(" ")
			sb.WriteString(string(c.Operator))
			sb.WriteString(" ")
			sb.WriteString(renderValue(c.Value))
		}
	}
}

// renderRaw substitutes each ? placeholder with the next rendered param.
// Unmatched placeholders are left alone; the rendering is diagnostic only.
func renderRaw(raw string, params []any) string {
	var sb strings.Builder
	next := 0
	for _, r := range raw {
		if r == '?' && next < len(params) {
			sb.WriteString(renderValue(params[next]))
			next++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = renderValue(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func joinKeyword(kind JoinKind) string {
	switch kind {
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFull:
		return "FULL JOIN"
	default:
		return "INNER JOIN"
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
