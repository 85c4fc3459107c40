// Package stats computes income, expense and balance figures over a set of
// transactions. Every function is pure: the result depends only on the input
// slice, which is never modified.
//
// The server statistics endpoints and the Go client's offline fallback both
// call into this package, so their numbers agree for the same transactions.
package stats

import (
	"sort"

	"github.com/fintrack/apiserver/types"
	"github.com/shopspring/decimal"
)

// UncategorizedLabel keys expenses that carry no category.
const UncategorizedLabel = "Uncategorized"

const percentPlaces = 2

var hundred = decimal.NewFromInt(100)

// Compute returns the totals of txs.
func Compute(txs []types.Transaction) types.Statistics {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case types.TransactionTypeIncome:
			income = income.Add(tx.Amount.Abs())
		case types.TransactionTypeExpense:
			expenses = expenses.Add(tx.Amount.Abs())
		}
	}

	balance := income.Sub(expenses)
	return types.Statistics{
		TotalIncome:      income,
		TotalExpenses:    expenses,
		Balance:          balance,
		NetBalance:       balance,
		TransactionCount: len(txs),
	}
}

// ByCategory groups expense transactions by category. Buckets are ordered by
// total, largest first, with ties broken by category name.
func ByCategory(txs []types.Transaction) []types.CategoryBucket {
	index := make(map[string]int)
	buckets := make([]types.CategoryBucket, 0)
	totalExpenses := decimal.Zero

	for _, tx := range txs {
		if tx.Type != types.TransactionTypeExpense {
			continue
		}
		key := tx.Category
		if key == "" {
			key = UncategorizedLabel
		}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, types.CategoryBucket{Category: key, Total: decimal.Zero})
		}
		amount := tx.Amount.Abs()
		buckets[i].Total = buckets[i].Total.Add(amount)
		buckets[i].Count++
		totalExpenses = totalExpenses.Add(amount)
	}

	for i := range buckets {
		buckets[i].Percentage = percentage(buckets[i].Total, totalExpenses)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if c := buckets[i].Total.Cmp(buckets[j].Total); c != 0 {
			return c > 0
		}
		return buckets[i].Category < buckets[j].Category
	})
	return buckets
}

// ByMonth groups transactions by calendar month, oldest month first.
func ByMonth(txs []types.Transaction) []types.MonthBucket {
	index := make(map[string]int)
	buckets := make([]types.MonthBucket, 0)

	for _, tx := range txs {
		key := tx.Date.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, types.MonthBucket{
				Month:    key,
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			})
		}
		switch tx.Type {
		case types.TransactionTypeIncome:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount.Abs())
		case types.TransactionTypeExpense:
			buckets[i].Expenses = buckets[i].Expenses.Add(tx.Amount.Abs())
		}
		buckets[i].Count++
	}

	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expenses)
	}

	// YYYY-MM keys sort lexically in calendar order.
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}

func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(percentPlaces)
}
