package query

import (
	"fmt"
	"strings"
)

// Builder accumulates a fluent chain of clause-building calls into a
// Descriptor. Calls are strictly additive; start a fresh builder for a new
// logical query. A single builder is not safe for concurrent mutation.
//
// The first malformed call (unknown operator, bad argument count, a second
// statement type, page < 1) is recorded and every later call becomes a
// no-op; ToQuery and all terminal operations return that error.
type Builder struct {
	exec Executor
	err  error

	typ       StatementType
	table     string
	columns   []string
	distinct  bool
	aggregate string
	where     []Condition
	joins     []Join
	groupBy   []string
	having    []Condition
	orderBy   []Order
	limit     *int
	offset    *int
	returning []string

	insertData []map[string]any
	insertMany bool
	updateData map[string]any
}

// New returns a detached builder, usable for ToQuery and ToSQL. Terminal
// operations require a builder obtained from a Service.
func New() *Builder {
	return &Builder{}
}

// NewWithExecutor returns a builder whose terminal operations run against
// exec.
func NewWithExecutor(exec Executor) *Builder {
	return &Builder{exec: exec}
}

// fail records the first usage error; later errors are dropped so the
// reported failure names the call that actually broke the chain.
func (b *Builder) fail(err *UsageError) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the pending usage error, if any.
func (b *Builder) Err() error {
	return b.err
}

// setType performs the one-way statement type transition. Setting a second,
// different type on the same builder is a usage error rather than a silent
// overwrite.
func (b *Builder) setType(method string, t StatementType) bool {
	if b.typ == "" || b.typ == t {
		b.typ = t
		return true
	}
	b.fail(usageErrf(method, "statement type already set to %q, cannot change to %q", b.typ, t))
	return false
}

// From sets the table. It does not commit a statement type: a builder that
// only named its table can still become an insert, update or delete, and
// ToQuery defaults an uncommitted builder to select.
func (b *Builder) From(table string) *Builder {
	if b.err != nil {
		return b
	}
	if table == "" {
		return b.fail(usageErrf("From", "table name is required"))
	}
	b.table = table
	return b
}

// Select appends to the projection. Calling with no arguments leaves the
// projection empty, meaning all columns.
func (b *Builder) Select(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.setType("Select", StatementSelect) {
		return b
	}
	b.columns = append(b.columns, columns...)
	return b
}

// Distinct marks the select as distinct.
func (b *Builder) Distinct() *Builder {
	if b.err != nil {
		return b
	}
	b.distinct = true
	return b
}

// parseWhereArgs resolves the two-form where signature: (column, value)
// defaults the operator to "=", (column, operator, value) names it.
func parseWhereArgs(method string, args []any) (Operator, any, *UsageError) {
	switch len(args) {
	case 1:
		return OpEq, args[0], nil
	case 2:
		opStr, ok := args[0].(string)
		if !ok {
			return "", nil, usageErrf(method, "operator must be a string, got %T", args[0])
		}
		op := Operator(strings.ToLower(strings.TrimSpace(opStr)))
		if !validOperators[op] {
			return "", nil, usageErrf(method, "unsupported operator %q", opStr)
		}
		return op, args[1], nil
	default:
		return "", nil, usageErrf(method, "expected (column, value) or (column, operator, value), got %d extra arguments", len(args))
	}
}

func (b *Builder) addCondition(target *[]Condition, method string, comb Combinator, column string, args []any) *Builder {
	if b.err != nil {
		return b
	}
	op, value, uerr := parseWhereArgs(method, args)
	if uerr != nil {
		return b.fail(uerr)
	}
	return b.addOpCondition(target, method, comb, column, op, value)
}

func (b *Builder) addOpCondition(target *[]Condition, method string, comb Combinator, column string, op Operator, value any) *Builder {
	if b.err != nil {
		return b
	}
	if column == "" {
		return b.fail(usageErrf(method, "column is required"))
	}

	var norm any
	if op != OpIsNull && op != OpIsNotNull {
		var err error
		norm, err = normalizeValue(value)
		if err != nil {
			return b.fail(usageErrf(method, "%v", err))
		}
		switch op {
		case OpIn, OpNotIn:
			if _, ok := norm.([]any); !ok {
				return b.fail(usageErrf(method, "operator %q requires a sequence value, got %T", op, value))
			}
		case OpBetween:
			pair, ok := norm.([]any)
			if !ok || len(pair) != 2 {
				return b.fail(usageErrf(method, "operator %q requires exactly two bounds", op))
			}
		}
	}

	*target = append(*target, Condition{Column: column, Operator: op, Value: norm, Bool: comb})
	return b
}

// Where appends an AND condition. With one argument the operator defaults
// to "="; with two, the first names the operator.
func (b *Builder) Where(column string, args ...any) *Builder {
	return b.addCondition(&b.where, "Where", BoolAnd, column, args)
}

// OrWhere appends an OR condition with the same forms as Where.
func (b *Builder) OrWhere(column string, args ...any) *Builder {
	return b.addCondition(&b.where, "OrWhere", BoolOr, column, args)
}

// Shorthand condition methods. Each is sugar for Where with a fixed
// operator; Or variants tag the node with OR instead.

func (b *Builder) Eq(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "Eq", BoolAnd, column, OpEq, value)
}

func (b *Builder) Ne(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "Ne", BoolAnd, column, OpNe, value)
}

func (b *Builder) Gt(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "Gt", BoolAnd, column, OpGt, value)
}

func (b *Builder) Gte(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "Gte", BoolAnd, column, OpGte, value)
}

func (b *Builder) Lt(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "Lt", BoolAnd, column, OpLt, value)
}

func (b *Builder) Lte(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "Lte", BoolAnd, column, OpLte, value)
}

func (b *Builder) Like(column, pattern string) *Builder {
	return b.addOpCondition(&b.where, "Like", BoolAnd, column, OpLike, pattern)
}

func (b *Builder) ILike(column, pattern string) *Builder {
	return b.addOpCondition(&b.where, "ILike", BoolAnd, column, OpILike, pattern)
}

func (b *Builder) In(column string, values ...any) *Builder {
	return b.addOpCondition(&b.where, "In", BoolAnd, column, OpIn, values)
}

func (b *Builder) NotIn(column string, values ...any) *Builder {
	return b.addOpCondition(&b.where, "NotIn", BoolAnd, column, OpNotIn, values)
}

func (b *Builder) Between(column string, low, high any) *Builder {
	return b.addOpCondition(&b.where, "Between", BoolAnd, column, OpBetween, []any{low, high})
}

func (b *Builder) IsNull(column string) *Builder {
	return b.addOpCondition(&b.where, "IsNull", BoolAnd, column, OpIsNull, nil)
}

func (b *Builder) IsNotNull(column string) *Builder {
	return b.addOpCondition(&b.where, "IsNotNull", BoolAnd, column, OpIsNotNull, nil)
}

func (b *Builder) OrEq(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "OrEq", BoolOr, column, OpEq, value)
}

func (b *Builder) OrNe(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "OrNe", BoolOr, column, OpNe, value)
}

func (b *Builder) OrGt(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "OrGt", BoolOr, column, OpGt, value)
}

func (b *Builder) OrGte(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "OrGte", BoolOr, column, OpGte, value)
}

func (b *Builder) OrLt(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "OrLt", BoolOr, column, OpLt, value)
}

func (b *Builder) OrLte(column string, value any) *Builder {
	return b.addOpCondition(&b.where, "OrLte", BoolOr, column, OpLte, value)
}

func (b *Builder) OrLike(column, pattern string) *Builder {
	return b.addOpCondition(&b.where, "OrLike", BoolOr, column, OpLike, pattern)
}

func (b *Builder) OrILike(column, pattern string) *Builder {
	return b.addOpCondition(&b.where, "OrILike", BoolOr, column, OpILike, pattern)
}

func (b *Builder) OrIn(column string, values ...any) *Builder {
	return b.addOpCondition(&b.where, "OrIn", BoolOr, column, OpIn, values)
}

func (b *Builder) OrNotIn(column string, values ...any) *Builder {
	return b.addOpCondition(&b.where, "OrNotIn", BoolOr, column, OpNotIn, values)
}

func (b *Builder) OrBetween(column string, low, high any) *Builder {
	return b.addOpCondition(&b.where, "OrBetween", BoolOr, column, OpBetween, []any{low, high})
}

func (b *Builder) OrIsNull(column string) *Builder {
	return b.addOpCondition(&b.where, "OrIsNull", BoolOr, column, OpIsNull, nil)
}

func (b *Builder) OrIsNotNull(column string) *Builder {
	return b.addOpCondition(&b.where, "OrIsNotNull", BoolOr, column, OpIsNotNull, nil)
}

// Or groups conditions built by the callbacks into a single OR-tagged node.
// Each callback receives a fresh sub-builder; a callback that adds several
// conditions keeps them as its own nested group, so operator precedence
// survives serialization instead of being flattened away.
func (b *Builder) Or(fns ...func(*Builder)) *Builder {
	if b.err != nil || len(fns) == 0 {
		return b
	}

	group := make([]Condition, 0, len(fns))
	for _, fn := range fns {
		sub := &Builder{typ: StatementSelect}
		fn(sub)
		if sub.err != nil {
			return b.fail(usageErrf("Or", "sub-builder: %v", sub.err))
		}
		switch len(sub.where) {
		case 0:
			// Empty callback contributes nothing.
		case 1:
			node := sub.where[0]
			node.Bool = BoolOr
			group = append(group, node)
		default:
			group = append(group, Condition{Group: sub.where, Bool: BoolOr})
		}
	}
	if len(group) == 0 {
		return b
	}

	b.where = append(b.where, Condition{Group: group, Bool: BoolOr})
	return b
}

// WhereRaw inserts an opaque pass-through condition interpreted by the
// backend. Raw and structured conditions may be mixed; call order is
// preserved in the serialized tree.
func (b *Builder) WhereRaw(raw string, params ...any) *Builder {
	return b.addRaw("WhereRaw", BoolAnd, raw, params)
}

// OrWhereRaw is WhereRaw with an OR combinator.
func (b *Builder) OrWhereRaw(raw string, params ...any) *Builder {
	return b.addRaw("OrWhereRaw", BoolOr, raw, params)
}

func (b *Builder) addRaw(method string, comb Combinator, raw string, params []any) *Builder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(raw) == "" {
		return b.fail(usageErrf(method, "raw fragment is required"))
	}
	norm := make([]any, len(params))
	for i, p := range params {
		nv, err := normalizeValue(p)
		if err != nil {
			return b.fail(usageErrf(method, "param %d: %v", i, err))
		}
		norm[i] = nv
	}
	b.where = append(b.where, Condition{Raw: raw, RawParams: norm, Bool: comb})
	return b
}

func (b *Builder) addJoin(method string, kind JoinKind, table, firstColumn, operator, secondColumn string) *Builder {
	if b.err != nil {
		return b
	}
	if table == "" || firstColumn == "" || secondColumn == "" {
		return b.fail(usageErrf(method, "table and both columns are required"))
	}
	op := Operator(strings.TrimSpace(operator))
	if !validOperators[op] {
		return b.fail(usageErrf(method, "unsupported join operator %q", operator))
	}
	b.joins = append(b.joins, Join{
		Table:        table,
		FirstColumn:  firstColumn,
		Operator:     op,
		SecondColumn: secondColumn,
		Kind:         kind,
	})
	return b
}

// Join appends an inner join. Join order is preserved; later joins may
// reference columns introduced by earlier ones.
func (b *Builder) Join(table, firstColumn, operator, secondColumn string) *Builder {
	return b.addJoin("Join", JoinInner, table, firstColumn, operator, secondColumn)
}

func (b *Builder) LeftJoin(table, firstColumn, operator, secondColumn string) *Builder {
	return b.addJoin("LeftJoin", JoinLeft, table, firstColumn, operator, secondColumn)
}

func (b *Builder) RightJoin(table, firstColumn, operator, secondColumn string) *Builder {
	return b.addJoin("RightJoin", JoinRight, table, firstColumn, operator, secondColumn)
}

func (b *Builder) FullJoin(table, firstColumn, operator, secondColumn string) *Builder {
	return b.addJoin("FullJoin", JoinFull, table, firstColumn, operator, secondColumn)
}

// GroupBy appends grouping columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.groupBy = append(b.groupBy, columns...)
	return b
}

// Having appends an AND condition to the having tree, with the same forms
// as Where.
func (b *Builder) Having(column string, args ...any) *Builder {
	return b.addCondition(&b.having, "Having", BoolAnd, column, args)
}

// OrHaving appends an OR condition to the having tree.
func (b *Builder) OrHaving(column string, args ...any) *Builder {
	return b.addCondition(&b.having, "OrHaving", BoolOr, column, args)
}

// OrderBy appends one column of a multi-column sort, evaluated in call
// order. Direction is "asc" or "desc" (case-insensitive).
func (b *Builder) OrderBy(column, direction string) *Builder {
	if b.err != nil {
		return b
	}
	if column == "" {
		return b.fail(usageErrf("OrderBy", "column is required"))
	}
	dir := Direction(strings.ToLower(strings.TrimSpace(direction)))
	if dir == "" {
		dir = Asc
	}
	if dir != Asc && dir != Desc {
		return b.fail(usageErrf("OrderBy", "direction must be asc or desc, got %q", direction))
	}
	b.orderBy = append(b.orderBy, Order{Column: column, Direction: dir})
	return b
}

// Limit sets the maximum number of rows.
func (b *Builder) Limit(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 0 {
		return b.fail(usageErrf("Limit", "limit must be non-negative, got %d", n))
	}
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *Builder) Offset(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 0 {
		return b.fail(usageErrf("Offset", "offset must be non-negative, got %d", n))
	}
	b.offset = &n
	return b
}

// Paginate sets limit = perPage and offset = (page-1)*perPage. page < 1 and
// perPage < 1 are usage errors, not clamped.
func (b *Builder) Paginate(page, perPage int) *Builder {
	if b.err != nil {
		return b
	}
	if page < 1 {
		return b.fail(usageErrf("Paginate", "page must be >= 1, got %d", page))
	}
	if perPage < 1 {
		return b.fail(usageErrf("Paginate", "perPage must be >= 1, got %d", perPage))
	}
	return b.Limit(perPage).Offset((page - 1) * perPage)
}

// Returning sets the columns returned by an insert, update or delete.
func (b *Builder) Returning(columns ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.returning = append(b.returning, columns...)
	return b
}

// Insert makes the builder an insert of a single record.
func (b *Builder) Insert(record map[string]any) *Builder {
	if b.err != nil {
		return b
	}
	if !b.setType("Insert", StatementInsert) {
		return b
	}
	norm, err := normalizeRecord(record)
	if err != nil {
		return b.fail(usageErrf("Insert", "%v", err))
	}
	b.insertData = append(b.insertData, norm)
	return b
}

// InsertMany makes the builder a bulk insert. The serialized insertData is
// a sequence of mappings.
func (b *Builder) InsertMany(records []map[string]any) *Builder {
	if b.err != nil {
		return b
	}
	if len(records) == 0 {
		return b.fail(usageErrf("InsertMany", "at least one record is required"))
	}
	if !b.setType("InsertMany", StatementInsert) {
		return b
	}
	b.insertMany = true
	for _, r := range records {
		norm, err := normalizeRecord(r)
		if err != nil {
			return b.fail(usageErrf("InsertMany", "%v", err))
		}
		b.insertData = append(b.insertData, norm)
	}
	return b
}

// Update makes the builder an update.
func (b *Builder) Update(data map[string]any) *Builder {
	if b.err != nil {
		return b
	}
	if len(data) == 0 {
		return b.fail(usageErrf("Update", "update data is required"))
	}
	if !b.setType("Update", StatementUpdate) {
		return b
	}
	norm, err := normalizeRecord(data)
	if err != nil {
		return b.fail(usageErrf("Update", "%v", err))
	}
	if b.updateData == nil {
		b.updateData = make(map[string]any, len(norm))
	}
	for k, v := range norm {
		b.updateData[k] = v
	}
	return b
}

// Delete makes the builder a delete.
func (b *Builder) Delete() *Builder {
	if b.err != nil {
		return b
	}
	b.setType("Delete", StatementDelete)
	return b
}

// Aggregate projection helpers. These are non-terminal: they mutate the
// projection and return the builder for further chaining. Count is the
// terminal counterpart and lives with the other terminals.

func (b *Builder) Sum(column string) *Builder { return b.setAggregate("Sum", "sum", column) }
func (b *Builder) Avg(column string) *Builder { return b.setAggregate("Avg", "avg", column) }
func (b *Builder) Min(column string) *Builder { return b.setAggregate("Min", "min", column) }
func (b *Builder) Max(column string) *Builder { return b.setAggregate("Max", "max", column) }

func (b *Builder) setAggregate(method, fn, column string) *Builder {
	if b.err != nil {
		return b
	}
	if column == "" {
		return b.fail(usageErrf(method, "column is required"))
	}
	if !b.setType(method, StatementSelect) {
		return b
	}
	b.aggregate = fmt.Sprintf("%s(%s)", fn, column)
	return b
}

// ToQuery returns the descriptor as composed so far without executing.
// Repeated calls with no mutation in between return structurally equal
// descriptors; the returned value shares no slices with the builder. Fields
// irrelevant to the statement type are dropped here, so a select-turned-
// insert serializes without where or orderBy.
func (b *Builder) ToQuery() (*Descriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.table == "" {
		return nil, usageErrf("ToQuery", "no table set, call From first")
	}

	typ := b.typ
	if typ == "" {
		typ = StatementSelect
	}

	d := &Descriptor{Type: typ, Table: b.table}
	switch typ {
	case StatementSelect:
		d.Columns = copySlice(b.columns)
		if b.aggregate != "" {
			d.Columns = []string{b.aggregate}
		}
		d.Distinct = b.distinct
		d.Where = copyConditions(b.where)
		d.Joins = copySlice(b.joins)
		d.GroupBy = copySlice(b.groupBy)
		d.Having = copyConditions(b.having)
		d.OrderBy = copySlice(b.orderBy)
		d.Limit = copyInt(b.limit)
		d.Offset = copyInt(b.offset)
	case StatementInsert:
		if len(b.insertData) == 0 {
			return nil, usageErrf("ToQuery", "insert has no data")
		}
		if b.insertMany {
			records := make([]map[string]any, len(b.insertData))
			for i, r := range b.insertData {
				records[i] = copyRecord(r)
			}
			d.InsertData = records
		} else {
			d.InsertData = copyRecord(b.insertData[0])
		}
		d.Returning = copySlice(b.returning)
	case StatementUpdate:
		if len(b.updateData) == 0 {
			return nil, usageErrf("ToQuery", "update has no data")
		}
		d.UpdateData = copyRecord(b.updateData)
		d.Where = copyConditions(b.where)
		d.Returning = copySlice(b.returning)
		d.Limit = copyInt(b.limit)
	case StatementDelete:
		d.Where = copyConditions(b.where)
		d.Returning = copySlice(b.returning)
		d.Limit = copyInt(b.limit)
	}
	return d, nil
}

func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func copyConditions(conds []Condition) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, len(conds))
	for i, c := range conds {
		c.Group = copyConditions(c.Group)
		c.RawParams = copySlice(c.RawParams)
		out[i] = c
	}
	return out
}

func copyRecord(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
