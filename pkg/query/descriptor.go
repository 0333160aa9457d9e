package query

import "encoding/json"

// StatementType is the kind of statement a Descriptor represents. A builder
// transitions from unset to exactly one type and never changes it again.
type StatementType string

const (
	StatementSelect StatementType = "select"
	StatementInsert StatementType = "insert"
	StatementUpdate StatementType = "update"
	StatementDelete StatementType = "delete"
)

// Operator is a comparison operator in a condition node.
type Operator string

const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpLike      Operator = "like"
	OpILike     Operator = "ilike"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not in"
	OpBetween   Operator = "between"
	OpIsNull    Operator = "is null"
	OpIsNotNull Operator = "is not null"
)

var validOperators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpLike: true, OpILike: true, OpIn: true, OpNotIn: true, OpBetween: true,
	OpIsNull: true, OpIsNotNull: true,
}

// Combinator joins a condition node to the node before it. The first node's
// combinator is carried but ignored by consumers.
type Combinator string

const (
	BoolAnd Combinator = "and"
	BoolOr  Combinator = "or"
)

// Condition is one node of a condition tree. Exactly one of three shapes is
// populated: a comparison (Column/Operator/Value), a nested group (Group),
// or an opaque raw fragment (Raw/RawParams).
type Condition struct {
	Column    string
	Operator  Operator
	Value     any
	Bool      Combinator
	Group     []Condition
	Raw       string
	RawParams []any
}

// MarshalJSON emits only the keys relevant to the node's shape, so grouped
// sub-trees serialize as {group, boolean} and raw nodes as {raw, params,
// boolean}. Value is always present for comparison nodes (false and 0 are
// legitimate values) except for the null-check operators, which carry none.
func (c Condition) MarshalJSON() ([]byte, error) {
	switch {
	case len(c.Group) > 0:
		return json.Marshal(struct {
			Group []Condition `json:"group"`
			Bool  Combinator  `json:"boolean"`
		}{c.Group, c.Bool})
	case c.Raw != "":
		return json.Marshal(struct {
			Raw    string     `json:"raw"`
			Params []any      `json:"params,omitempty"`
			Bool   Combinator `json:"boolean"`
		}{c.Raw, c.RawParams, c.Bool})
	case c.Operator == OpIsNull || c.Operator == OpIsNotNull:
		return json.Marshal(struct {
			Column   string     `json:"column"`
			Operator Operator   `json:"operator"`
			Bool     Combinator `json:"boolean"`
		}{c.Column, c.Operator, c.Bool})
	default:
		return json.Marshal(struct {
			Column   string     `json:"column"`
			Operator Operator   `json:"operator"`
			Value    any        `json:"value"`
			Bool     Combinator `json:"boolean"`
		}{c.Column, c.Operator, c.Value, c.Bool})
	}
}

// JoinKind is the join variant applied to a joined table.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinFull  JoinKind = "full"
)

// Join describes one join clause. Call order is preserved; joins may
// reference columns introduced by earlier joins.
type Join struct {
	Table        string   `json:"table"`
	FirstColumn  string   `json:"firstColumn"`
	Operator     Operator `json:"operator"`
	SecondColumn string   `json:"secondColumn"`
	Kind         JoinKind `json:"kind"`
}

// Direction is a sort direction in an order clause.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is one column of a multi-column sort.
type Order struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Descriptor is the backend-agnostic representation of one query, sent as
// the JSON body of a POST to the generic query endpoint. Only the fields
// relevant to Type are populated; the builder drops the rest when it
// assembles the descriptor.
type Descriptor struct {
	Type       StatementType  `json:"type"`
	Table      string         `json:"table"`
	Columns    []string       `json:"columns,omitempty"`
	Distinct   bool           `json:"distinct,omitempty"`
	Where      []Condition    `json:"where,omitempty"`
	Joins      []Join         `json:"joins,omitempty"`
	GroupBy    []string       `json:"groupBy,omitempty"`
	Having     []Condition    `json:"having,omitempty"`
	OrderBy    []Order        `json:"orderBy,omitempty"`
	Limit      *int           `json:"limit,omitempty"`
	Offset     *int           `json:"offset,omitempty"`
	Returning  []string       `json:"returning,omitempty"`
	InsertData any            `json:"insertData,omitempty"`
	UpdateData map[string]any `json:"updateData,omitempty"`
}
