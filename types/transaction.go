package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers; the SPA does arithmetic on them.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType tags a transaction as money coming in or going out.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "Income"
	TransactionTypeExpense TransactionType = "Expense"
)

// ParseTransactionType matches a type name case-insensitively.
func ParseTransactionType(value string) (TransactionType, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(value), string(TransactionTypeIncome)):
		return TransactionTypeIncome, true
	case strings.EqualFold(strings.TrimSpace(value), string(TransactionTypeExpense)):
		return TransactionTypeExpense, true
	default:
		return "", false
	}
}

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single income or expense entry owned by one user.
type Transaction struct {
	// ID is assigned by the store on creation.
	ID int64 `json:"id" db:"id"`

	// Description is a short human label, at most 100 characters.
	Description string `json:"description" db:"description"`

	// Amount is the unsigned magnitude of the transaction; Type carries the sign.
	Amount decimal.Decimal `json:"amount" db:"amount"`

	// Type is either Income or Expense.
	Type TransactionType `json:"type" db:"type"`

	// Category is a free-form label. It may be empty.
	Category string `json:"category" db:"category"`

	// Date is the calendar date the transaction happened on.
	Date Date `json:"date" db:"date"`

	// UserID is the owner. It is set from the caller's identity and never changes.
	UserID string `json:"userId" db:"user_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SignedAmount returns the amount negated for expenses.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	// Search is a case-insensitive substring matched against description and category.
	Search string
	// Type restricts the listing to one transaction type.
	Type TransactionType
	// Category is a case-insensitive exact category match.
	Category string
	// From and To bound the date range, both inclusive.
	From Date
	To   Date
}

// Matches reports whether tx satisfies every predicate of the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(tx.Category, f.Category) {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To.Time) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(tx.Description), term) &&
			!strings.Contains(strings.ToLower(tx.Category), term) {
			return false
		}
	}
	return true
}
