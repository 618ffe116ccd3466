package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory Store mock. Enforces the same floor and ceiling rules as the
// SQL repository so the service can be tested without a database.
// ---------------------------------------------------------------------------

type mockStore struct {
	mu       sync.Mutex
	ceiling  decimal.Decimal
	balances map[uuid.UUID]decimal.Decimal
	entries  []*models.TimeEntry
}

func newMockStore(ceiling decimal.Decimal) *mockStore {
	return &mockStore{ceiling: ceiling, balances: make(map[uuid.UUID]decimal.Decimal)}
}

func (m *mockStore) DebitTx(_ context.Context, _ pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s not found", accountID)
	}
	if b.LessThan(amount) {
		return decimal.Zero, ErrInsufficientBalance
	}
	b = b.Sub(amount)
	m.balances[accountID] = b
	return b, nil
}

func (m *mockStore) CreditTx(_ context.Context, _ pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s not found", accountID)
	}
	if b.Add(amount).GreaterThan(m.ceiling) {
		return decimal.Zero, ErrBalanceCeiling
	}
	b = b.Add(amount)
	m.balances[accountID] = b
	return b, nil
}

func (m *mockStore) InsertEntryTx(_ context.Context, _ pgx.Tx, e *models.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockStore) Balance(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID], nil
}

func (m *mockStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*models.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TimeEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) byType(entryType string) []*models.TimeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TimeEntry
	for _, e := range m.entries {
		if e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockStore) set(accountID uuid.UUID, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] = decimal.RequireFromString(balance)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestDebitWritesEntry(t *testing.T) {
	payer := uuid.New()
	proposal := uuid.New()
	store := newMockStore(models.BalanceCeiling)
	store.set(payer, "5.00")
	svc := NewService(store)

	if err := svc.Debit(context.Background(), nil, payer, proposal, dec("2.00")); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	if got, _ := svc.Balance(context.Background(), payer); !got.Equal(dec("3.00")) {
		t.Errorf("balance after debit: got %s, want 3.00", got)
	}
	debits := store.byType(models.EntryDebit)
	if len(debits) != 1 {
		t.Fatalf("debit entries: got %d, want 1", len(debits))
	}
	e := debits[0]
	if !e.Amount.Equal(dec("2.00")) {
		t.Errorf("entry amount: got %s, want 2.00", e.Amount)
	}
	if !e.BalanceAfter.Equal(dec("3.00")) {
		t.Errorf("entry balance_after: got %s, want 3.00", e.BalanceAfter)
	}
	if e.ProposalID == nil || *e.ProposalID != proposal {
		t.Error("entry should reference the proposal")
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	payer := uuid.New()
	store := newMockStore(models.BalanceCeiling)
	store.set(payer, "1.50")
	svc := NewService(store)

	err := svc.Debit(context.Background(), nil, payer, uuid.New(), dec("2.00"))
	if err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got: %v", err)
	}

	// Balance untouched, no entry written.
	if got, _ := svc.Balance(context.Background(), payer); !got.Equal(dec("1.50")) {
		t.Errorf("balance: got %s, want 1.50", got)
	}
	if len(store.entries) != 0 {
		t.Errorf("expected no ledger entries, got %d", len(store.entries))
	}
}

func TestCreditRejectsAboveCeiling(t *testing.T) {
	payee := uuid.New()
	store := newMockStore(models.BalanceCeiling)
	store.set(payee, "9.00")
	svc := NewService(store)

	err := svc.Credit(context.Background(), nil, payee, uuid.New(), dec("2.00"), models.EntryPayout)
	if err != ErrBalanceCeiling {
		t.Fatalf("expected ErrBalanceCeiling, got: %v", err)
	}
	if got, _ := svc.Balance(context.Background(), payee); !got.Equal(dec("9.00")) {
		t.Errorf("balance should be unchanged: got %s, want 9.00", got)
	}

	// A credit landing exactly at the ceiling is fine.
	if err := svc.Credit(context.Background(), nil, payee, uuid.New(), dec("1.00"), models.EntryPayout); err != nil {
		t.Fatalf("credit to ceiling: %v", err)
	}
	if got, _ := svc.Balance(context.Background(), payee); !got.Equal(dec("10.00")) {
		t.Errorf("balance: got %s, want 10.00", got)
	}
}

func TestGrantSignupBonus(t *testing.T) {
	acc := uuid.New()
	store := newMockStore(models.BalanceCeiling)
	store.set(acc, "0.00")
	svc := NewService(store)

	if err := svc.GrantSignupBonus(context.Background(), nil, acc, models.StartingBonus); err != nil {
		t.Fatalf("GrantSignupBonus: %v", err)
	}
	if got, _ := svc.Balance(context.Background(), acc); !got.Equal(dec("3.00")) {
		t.Errorf("balance: got %s, want 3.00", got)
	}
	bonuses := store.byType(models.EntrySignupBonus)
	if len(bonuses) != 1 {
		t.Fatalf("signup_bonus entries: got %d, want 1", len(bonuses))
	}
	if bonuses[0].ProposalID != nil {
		t.Error("signup bonus should not reference a proposal")
	}
}

// TestEntryReconciliation replays a debit/refund cycle and checks that the
// entry history reconciles with the final balance.
func TestEntryReconciliation(t *testing.T) {
	payer := uuid.New()
	proposal := uuid.New()
	store := newMockStore(models.BalanceCeiling)
	store.set(payer, "5.00")
	svc := NewService(store)
	ctx := context.Background()

	if err := svc.Debit(ctx, nil, payer, proposal, dec("2.00")); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := svc.Credit(ctx, nil, payer, proposal, dec("2.00"), models.EntryRefund); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	entries, err := svc.ListEntries(ctx, payer)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}

	sum := dec("5.00")
	for _, e := range entries {
		if e.EntryType == models.EntryDebit {
			sum = sum.Sub(e.Amount)
		} else {
			sum = sum.Add(e.Amount)
		}
		if !sum.Equal(e.BalanceAfter) {
			t.Errorf("entry %s: running sum %s != balance_after %s", e.EntryType, sum, e.BalanceAfter)
		}
	}
	if got, _ := svc.Balance(ctx, payer); !got.Equal(sum) {
		t.Errorf("final balance %s does not reconcile with entries (%s)", got, sum)
	}
}
