package query

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func assertSQL(t *testing.T, name string, b *Builder) {
	t.Helper()
	sql, err := b.ToSQL()
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, name, []byte(sql))
}

func TestToSQL(t *testing.T) {
	t.Run("select with joins grouping and ordering", func(t *testing.T) {
		assertSQL(t, "select_full", New().
			From("users").
			Select("id", "name").
			Join("teams", "users.team_id", "=", "teams.id").
			Where("active", true).
			OrWhere("role", "=", "admin").
			GroupBy("role").
			Having("cnt", ">", 5).
			OrderBy("created_at", "desc").
			OrderBy("id", "asc").
			Limit(10).
			Offset(20))
	})

	t.Run("or groups keep precedence parentheses", func(t *testing.T) {
		assertSQL(t, "select_or_groups", New().
			From("users").
			Where("active", true).
			Or(
				func(q *Builder) { q.Where("plan", "pro") },
				func(q *Builder) { q.Where("plan", "team").Gt("seats", 5) },
			).
			In("region", "eu", "us").
			IsNotNull("email"))
	})

	t.Run("between null and not-in operators", func(t *testing.T) {
		assertSQL(t, "select_between_null", New().
			From("orders").
			Between("total", 10, 100).
			OrIsNull("coupon").
			NotIn("status", "void", "failed"))
	})

	t.Run("bulk insert with returning", func(t *testing.T) {
		assertSQL(t, "insert_many", New().
			From("users").
			InsertMany([]map[string]any{
				{"name": "a", "email": "a@example.com"},
				{"name": "b", "email": "b@example.com"},
			}).
			Returning("id"))
	})

	t.Run("update with where", func(t *testing.T) {
		assertSQL(t, "update_where", New().
			From("users").
			Update(map[string]any{"active": false, "plan": "free"}).
			Where("id", 7))
	})

	t.Run("delete with raw condition", func(t *testing.T) {
		assertSQL(t, "delete_raw", New().
			From("logs").
			Delete().
			Where("level", "debug").
			WhereRaw("created_at < now() - interval ?", "7 days"))
	})
}

func TestToSQLUsageError(t *testing.T) {
	_, err := New().From("users").Where("a", "!!", 1).ToSQL()
	require.Error(t, err)
}
