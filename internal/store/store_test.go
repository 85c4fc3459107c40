package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fintrack/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTransactionFilterClause(t *testing.T) {
	const owner = "6f1c7c9e-8a4e-4d2b-9b8e-0c1d2e3f4a5b"
	from := types.NewDate(2024, 1, 1)
	to := types.NewDate(2024, 1, 31)

	tests := []struct {
		name      string
		filter    types.TransactionFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "owner only",
			filter:    types.TransactionFilter{},
			wantWhere: "user_id = $1",
			wantArgs:  []any{owner},
		},
		{
			name:      "type and category",
			filter:    types.TransactionFilter{Type: types.TransactionTypeExpense, Category: "Food"},
			wantWhere: "user_id = $1 AND type = $2 AND LOWER(category) = LOWER($3)",
			wantArgs:  []any{owner, "Expense", "Food"},
		},
		{
			name:      "inclusive date range",
			filter:    types.TransactionFilter{From: from, To: to},
			wantWhere: "user_id = $1 AND date >= $2 AND date <= $3",
			wantArgs:  []any{owner, from, to},
		},
		{
			name:      "search is trimmed and reuses one placeholder",
			filter:    types.TransactionFilter{Search: "  rent "},
			wantWhere: "user_id = $1 AND (description ILIKE $2 OR category ILIKE $2)",
			wantArgs:  []any{owner, "%rent%"},
		},
		{
			name:      "search escapes wildcards",
			filter:    types.TransactionFilter{Search: `50%_off\`},
			wantWhere: "user_id = $1 AND (description ILIKE $2 OR category ILIKE $2)",
			wantArgs:  []any{owner, `%50\%\_off\\%`},
		},
		{
			name: "every predicate",
			filter: types.TransactionFilter{
				Search:   "bill",
				Type:     types.TransactionTypeIncome,
				Category: "Work",
				From:     from,
				To:       to,
			},
			wantWhere: "user_id = $1 AND type = $2 AND LOWER(category) = LOWER($3) AND date >= $4 AND date <= $5 AND (description ILIKE $6 OR category ILIKE $6)",
			wantArgs:  []any{owner, "Income", "Work", from, to, "%bill%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := transactionFilterClause(owner, tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestPostgresErrorCodes(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	foreignKey := &pq.Error{Code: "23503"}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert user: %w", unique)))
	assert.False(t, isUniqueViolation(foreignKey))

	assert.True(t, isForeignKeyViolation(foreignKey))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert transaction: %w", foreignKey)))
	assert.False(t, isForeignKeyViolation(unique))
	assert.False(t, isForeignKeyViolation(errors.New("connection reset")))
}
