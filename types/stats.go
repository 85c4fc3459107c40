package types

import "github.com/shopspring/decimal"

// Statistics summarises a set of transactions.
type Statistics struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	// Balance is TotalIncome minus TotalExpenses.
	Balance decimal.Decimal `json:"balance"`
	// NetBalance mirrors Balance for clients that read the older key.
	NetBalance       decimal.Decimal `json:"netBalance"`
	TransactionCount int             `json:"transactionCount"`
}

// CategoryBucket is the expense total of one category.
type CategoryBucket struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	// Percentage is the share of all expenses, 0-100, rounded to two places.
	Percentage decimal.Decimal `json:"percentage"`
}

// MonthBucket holds income and expense sums for one calendar month.
type MonthBucket struct {
	// Month is formatted YYYY-MM.
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}
