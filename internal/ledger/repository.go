package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/models"
)

var (
	errInsufficientBalance = errors.New("insufficient balance")
	errBalanceCeiling      = errors.New("balance ceiling exceeded")
)

type Repository struct {
	pool    *pgxpool.Pool
	ceiling decimal.Decimal
}

func NewRepository(pool *pgxpool.Pool, ceiling decimal.Decimal) *Repository {
	return &Repository{pool: pool, ceiling: ceiling}
}

// DebitTx deducts amount from the account if the balance covers it, and
// returns the new balance. The conditional UPDATE is the atomic guard; a
// zero-row result means the guard failed, or the account id is unknown.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, accountID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, guardFailure(ctx, tx, accountID, errInsufficientBalance)
	}
	return newBalance, err
}

// CreditTx adds amount to the account unless that would push the balance
// over the ceiling, and returns the new balance. Credits that would exceed
// the ceiling are rejected, never clamped.
func (r *Repository) CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 <= $3
		RETURNING balance
	`, amount, accountID, r.ceiling).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, guardFailure(ctx, tx, accountID, errBalanceCeiling)
	}
	return newBalance, err
}

// guardFailure explains a guarded UPDATE that matched no row: either the
// balance condition held the update back, or the account does not exist.
func guardFailure(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, guardErr error) error {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)
	`, accountID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return guardErr
}

// InsertEntryTx appends a time_ledger row inside the caller's transaction.
func (r *Repository) InsertEntryTx(ctx context.Context, tx pgx.Tx, e *models.TimeEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO time_ledger (id, account_id, proposal_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.AccountID, e.ProposalID, e.EntryType, e.Amount, e.BalanceAfter).Scan(&e.CreatedAt)
}

// Balance reads the current balance outside any transaction.
func (r *Repository) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	return balance, err
}

// ListByAccount returns the account's ledger history, newest first.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.TimeEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, proposal_id, entry_type, amount, balance_after, created_at
		FROM time_ledger WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TimeEntry
	for rows.Next() {
		var e models.TimeEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ProposalID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
