package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/models"
)

// ErrInsufficientBalance is returned when a debit would take the payer below zero.
var ErrInsufficientBalance = errInsufficientBalance

// ErrBalanceCeiling is returned when a credit would push the payee over the
// configured ceiling. The transition that requested the credit aborts whole.
var ErrBalanceCeiling = errBalanceCeiling

// Store is the persistence surface the ledger service needs. *Repository
// implements it; tests substitute an in-memory map.
type Store interface {
	DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	InsertEntryTx(ctx context.Context, tx pgx.Tx, e *models.TimeEntry) error
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.TimeEntry, error)
}

// Service owns all balance mutations. Every mutation happens inside a
// caller-provided transaction and writes exactly one time_ledger entry, so
// balances stay reconcilable against the entry history.
type Service interface {
	Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, proposalID uuid.UUID, amount decimal.Decimal) error
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, proposalID uuid.UUID, amount decimal.Decimal, entryType string) error
	GrantSignupBonus(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	ListEntries(ctx context.Context, accountID uuid.UUID) ([]*models.TimeEntry, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Debit(ctx context.Context, tx pgx.Tx, accountID, proposalID uuid.UUID, amount decimal.Decimal) error {
	newBalance, err := s.store.DebitTx(ctx, tx, accountID, amount)
	if err != nil {
		return err
	}
	return s.store.InsertEntryTx(ctx, tx, &models.TimeEntry{
		ID:           uuid.New(),
		AccountID:    accountID,
		ProposalID:   &proposalID,
		EntryType:    models.EntryDebit,
		Amount:       amount,
		BalanceAfter: newBalance,
	})
}

func (s *service) Credit(ctx context.Context, tx pgx.Tx, accountID, proposalID uuid.UUID, amount decimal.Decimal, entryType string) error {
	newBalance, err := s.store.CreditTx(ctx, tx, accountID, amount)
	if err != nil {
		return err
	}
	return s.store.InsertEntryTx(ctx, tx, &models.TimeEntry{
		ID:           uuid.New(),
		AccountID:    accountID,
		ProposalID:   &proposalID,
		EntryType:    entryType,
		Amount:       amount,
		BalanceAfter: newBalance,
	})
}

// GrantSignupBonus credits the registration grant. It is called exactly once,
// from the registration transaction, with no proposal attached.
func (s *service) GrantSignupBonus(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error {
	newBalance, err := s.store.CreditTx(ctx, tx, accountID, amount)
	if err != nil {
		return err
	}
	return s.store.InsertEntryTx(ctx, tx, &models.TimeEntry{
		ID:           uuid.New(),
		AccountID:    accountID,
		EntryType:    models.EntrySignupBonus,
		Amount:       amount,
		BalanceAfter: newBalance,
	})
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Balance(ctx, accountID)
}

func (s *service) ListEntries(ctx context.Context, accountID uuid.UUID) ([]*models.TimeEntry, error) {
	return s.store.ListByAccount(ctx, accountID)
}
