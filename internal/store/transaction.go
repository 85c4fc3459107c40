package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fintrack/apiserver/types"
	"github.com/google/uuid"
)

const transactionColumns = `id, description, amount, type, category, date, user_id, created_at, updated_at`

// TransactionRepository handles persistence for transactions. Every query is
// constrained to the owner passed in by the caller.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter types.TransactionFilter) ([]types.Transaction, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []types.Transaction{}, nil
	}

	where, args := transactionFilterClause(userID, filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where + ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]types.Transaction, 0)
	for rows.Next() {
		var tx types.Transaction
		if err := scanTransaction(rows, &tx); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *TransactionRepository) Get(ctx context.Context, userID string, id int64) (types.Transaction, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return types.Transaction{}, ErrNotFound
	}
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`
	var tx types.Transaction
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID), &tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Transaction{}, ErrNotFound
		}
		return types.Transaction{}, err
	}
	return tx, nil
}

// Create inserts tx for its owner. An owner that does not exist yields ErrNotFound.
func (r *TransactionRepository) Create(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	if _, err := uuid.Parse(tx.UserID); err != nil {
		return types.Transaction{}, ErrNotFound
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	const query = `
		INSERT INTO transactions (description, amount, type, category, date, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		tx.Description,
		tx.Amount,
		tx.Type,
		tx.Category,
		tx.Date,
		tx.UserID,
		tx.CreatedAt,
		tx.UpdatedAt,
	).Scan(&tx.ID); err != nil {
		if isForeignKeyViolation(err) {
			return types.Transaction{}, ErrNotFound
		}
		return types.Transaction{}, err
	}
	return tx, nil
}

// Update replaces the mutable fields of tx in a single statement. The row is
// matched on both id and owner, so a foreign id behaves like a missing one.
func (r *TransactionRepository) Update(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	if _, err := uuid.Parse(tx.UserID); err != nil {
		return types.Transaction{}, ErrNotFound
	}
	tx.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE transactions
		SET description = $1,
			amount = $2,
			type = $3,
			category = $4,
			date = $5,
			updated_at = $6
		WHERE id = $7 AND user_id = $8
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		tx.Description,
		tx.Amount,
		tx.Type,
		tx.Category,
		tx.Date,
		tx.UpdatedAt,
		tx.ID,
		tx.UserID,
	).Scan(&tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Transaction{}, ErrNotFound
		}
		return types.Transaction{}, err
	}
	return tx, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := uuid.Parse(userID); err != nil {
		return ErrNotFound
	}
	const query = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, tx *types.Transaction) error {
	return row.Scan(
		&tx.ID,
		&tx.Description,
		&tx.Amount,
		&tx.Type,
		&tx.Category,
		&tx.Date,
		&tx.UserID,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
}

// transactionFilterClause renders the SQL twin of TransactionFilter.Matches.
func transactionFilterClause(userID string, filter types.TransactionFilter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Category != "" {
		add("LOWER(category) = LOWER($%d)", filter.Category)
	}
	if !filter.From.IsZero() {
		add("date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date <= $%d", filter.To)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(description ILIKE $%d OR category ILIKE $%d)", n, n))
	}

	return strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
