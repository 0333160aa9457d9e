package query

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Executor runs a serialized descriptor against the backend's generic query
// endpoint. Each terminal operation issues exactly one call; the builder
// performs no retries of its own.
type Executor interface {
	ExecuteQuery(ctx context.Context, desc *Descriptor) (*Response, error)
}

// Row is one result row as returned by the backend.
type Row map[string]any

// Decode maps the row onto dest (a struct pointer), matching keys against
// json tags and tolerating the usual JSON number loosening.
func (r Row) Decode(dest any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	return dec.Decode(map[string]any(r))
}

// Response is the backend's envelope for the generic query endpoint.
type Response struct {
	Rows     []Row  `json:"rows"`
	RowCount int64  `json:"rowCount"`
	Count    *int64 `json:"count,omitempty"`
}

// Result is what Execute hands back to the caller.
type Result struct {
	Rows     []Row
	RowCount int64
}

// Decode maps all rows onto dest, a pointer to a slice of structs.
func (r *Result) Decode(dest any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	return dec.Decode(r.Rows)
}

func (b *Builder) run(ctx context.Context, desc *Descriptor) (*Response, error) {
	if b.exec == nil {
		return nil, usageErrf("Execute", "builder has no executor, obtain it from a query service")
	}
	return b.exec.ExecuteQuery(ctx, desc)
}

// Execute serializes the descriptor, issues one request and returns the
// full result. Transport errors propagate verbatim.
func (b *Builder) Execute(ctx context.Context) (*Result, error) {
	desc, err := b.ToQuery()
	if err != nil {
		return nil, err
	}
	resp, err := b.run(ctx, desc)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: resp.Rows, RowCount: resp.RowCount}, nil
}

// Get executes and returns all rows. An empty result is a nil-length slice,
// not an error.
func (b *Builder) Get(ctx context.Context) ([]Row, error) {
	res, err := b.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// First executes and returns the first row, or nil when the result set is
// empty. Emptiness is a normal outcome, never an error.
func (b *Builder) First(ctx context.Context) (Row, error) {
	desc, err := b.ToQuery()
	if err != nil {
		return nil, err
	}
	if desc.Type == StatementSelect {
		one := 1
		desc.Limit = &one
	}
	resp, err := b.run(ctx, desc)
	if err != nil {
		return nil, err
	}
	if len(resp.Rows) == 0 {
		return nil, nil
	}
	return resp.Rows[0], nil
}

// Value executes and returns the named column of the first row, or nil when
// the result set is empty or the column is absent.
func (b *Builder) Value(ctx context.Context, column string) (any, error) {
	if column == "" {
		return nil, usageErrf("Value", "column is required")
	}
	row, err := b.First(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return row[column], nil
}

// Exists executes and reports whether the result set is non-empty, using
// the server-provided count when the response carries one.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	desc, err := b.ToQuery()
	if err != nil {
		return false, err
	}
	if desc.Type == StatementSelect {
		one := 1
		desc.Limit = &one
	}
	resp, err := b.run(ctx, desc)
	if err != nil {
		return false, err
	}
	if resp.Count != nil {
		return *resp.Count > 0, nil
	}
	return len(resp.Rows) > 0, nil
}

// Count is terminal: it requests a count projection, executes immediately
// and returns the numeric value from the response's count field. An empty
// table yields 0.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	desc, err := b.ToQuery()
	if err != nil {
		return 0, err
	}
	if desc.Type != StatementSelect {
		return 0, usageErrf("Count", "count requires a select, statement type is %q", desc.Type)
	}
	desc.Columns = []string{"count(*)"}
	desc.Limit = nil
	desc.Offset = nil

	resp, err := b.run(ctx, desc)
	if err != nil {
		return 0, err
	}
	if resp.Count != nil {
		return *resp.Count, nil
	}
	if len(resp.Rows) > 0 {
		if n, ok := coerceInt64(resp.Rows[0]["count"]); ok {
			return n, nil
		}
	}
	return 0, nil
}

func coerceInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case float32:
		return int64(t), true
	}
	return 0, false
}
