package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fintrack/apiserver/internal/stats"
	"github.com/fintrack/apiserver/types"
	"github.com/shopspring/decimal"
)

const (
	maxDescriptionLength = 100
	maxCategoryLength    = 50
)

var (
	minAmount = decimal.New(1, -2)
	maxAmount = decimal.RequireFromString("999999999.99")
)

// TransactionRepository defines owner-scoped persistence for transactions.
// Get, Update and Delete report store.ErrNotFound for records of other users.
type TransactionRepository interface {
	List(ctx context.Context, userID string, filter types.TransactionFilter) ([]types.Transaction, error)
	Get(ctx context.Context, userID string, id int64) (types.Transaction, error)
	Create(ctx context.Context, tx types.Transaction) (types.Transaction, error)
	Update(ctx context.Context, tx types.Transaction) (types.Transaction, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// TransactionInput holds the caller-editable fields of a transaction.
type TransactionInput struct {
	Description string
	Amount      decimal.Decimal
	Type        string
	Category    string
	Date        types.Date

	// Malformed maps fields whose raw value could not be parsed to a message.
	// They are reported alongside the other validation problems.
	Malformed map[string]string
}

// TransactionService encapsulates transaction use-cases. Every method takes
// the caller's user id first and never reaches records of other users.
type TransactionService struct {
	repo TransactionRepository
}

func NewTransactionService(repo TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

func (s *TransactionService) List(ctx context.Context, userID string, filter types.TransactionFilter) ([]types.Transaction, error) {
	return s.repo.List(ctx, userID, filter)
}

func (s *TransactionService) Get(ctx context.Context, userID string, id int64) (types.Transaction, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *TransactionService) Create(ctx context.Context, userID string, in TransactionInput) (types.Transaction, error) {
	tx, err := in.toTransaction()
	if err != nil {
		return types.Transaction{}, err
	}
	tx.UserID = userID
	return s.repo.Create(ctx, tx)
}

// Update replaces every editable field of the transaction.
func (s *TransactionService) Update(ctx context.Context, userID string, id int64, in TransactionInput) (types.Transaction, error) {
	tx, err := in.toTransaction()
	if err != nil {
		return types.Transaction{}, err
	}
	tx.ID = id
	tx.UserID = userID
	return s.repo.Update(ctx, tx)
}

func (s *TransactionService) Delete(ctx context.Context, userID string, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

// Statistics aggregates the caller's transactions matching filter.
func (s *TransactionService) Statistics(ctx context.Context, userID string, filter types.TransactionFilter) (types.Statistics, error) {
	txs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return types.Statistics{}, fmt.Errorf("list transactions: %w", err)
	}
	return stats.Compute(txs), nil
}

// ByCategory returns the caller's expense totals per category.
func (s *TransactionService) ByCategory(ctx context.Context, userID string, filter types.TransactionFilter) ([]types.CategoryBucket, error) {
	txs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return stats.ByCategory(txs), nil
}

// ByMonth returns the caller's income and expense totals per calendar month.
func (s *TransactionService) ByMonth(ctx context.Context, userID string, filter types.TransactionFilter) ([]types.MonthBucket, error) {
	txs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return stats.ByMonth(txs), nil
}

func (in TransactionInput) toTransaction() (types.Transaction, error) {
	verr := &ValidationError{}
	for field, message := range in.Malformed {
		verr.add(field, message)
	}

	description := strings.TrimSpace(in.Description)
	switch {
	case description == "":
		verr.add("description", "description is required")
	case utf8.RuneCountInString(description) > maxDescriptionLength:
		verr.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	amount := in.Amount.Round(2)
	switch {
	case amount.LessThan(minAmount):
		verr.add("amount", "amount must be at least 0.01")
	case amount.GreaterThan(maxAmount):
		verr.add("amount", "amount must be at most 999999999.99")
	}

	txType, ok := types.ParseTransactionType(in.Type)
	if !ok {
		verr.add("type", "type must be Income or Expense")
	}

	category := strings.TrimSpace(in.Category)
	if utf8.RuneCountInString(category) > maxCategoryLength {
		verr.add("category", fmt.Sprintf("category must be at most %d characters", maxCategoryLength))
	}

	if in.Date.IsZero() {
		verr.add("date", "date is required")
	}

	if err := verr.err(); err != nil {
		return types.Transaction{}, err
	}
	return types.Transaction{
		Description: description,
		Amount:      amount,
		Type:        txType,
		Category:    category,
		Date:        in.Date,
	}, nil
}
