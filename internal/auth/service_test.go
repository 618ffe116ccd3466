package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/thehive/timebank/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockRegistrar struct {
	byEmail map[string]*models.Account
	byID    map[uuid.UUID]*models.Account
}

func newMockRegistrar() *mockRegistrar {
	return &mockRegistrar{
		byEmail: make(map[string]*models.Account),
		byID:    make(map[uuid.UUID]*models.Account),
	}
}

func (m *mockRegistrar) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockRegistrar) CreateAccountTx(_ context.Context, _ pgx.Tx, a *models.Account) error {
	if _, exists := m.byEmail[a.Email]; exists {
		return &pgconn.PgError{Code: "23505"}
	}
	cp := *a
	m.byEmail[a.Email] = &cp
	m.byID[a.ID] = &cp
	return nil
}

func (m *mockRegistrar) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	a, ok := m.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRegistrar) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

type mockGranter struct {
	granted map[uuid.UUID]decimal.Decimal
}

func (m *mockGranter) GrantSignupBonus(_ context.Context, _ pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error {
	if m.granted == nil {
		m.granted = make(map[uuid.UUID]decimal.Decimal)
	}
	m.granted[accountID] = amount
	return nil
}

func newTestService(repo Registrar, granter BonusGranter) Service {
	return NewService(repo, granter, "test-secret", time.Hour, models.StartingBonus)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegisterGrantsStartingBonus(t *testing.T) {
	repo := newMockRegistrar()
	granter := &mockGranter{}
	svc := newTestService(repo, granter)

	acc, err := svc.Register(context.Background(), "new@example.com", "hunter22", "New Member")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !acc.Balance.Equal(models.StartingBonus) {
		t.Errorf("balance: got %s, want %s", acc.Balance, models.StartingBonus)
	}
	if got, ok := granter.granted[acc.ID]; !ok || !got.Equal(models.StartingBonus) {
		t.Errorf("bonus granted: got %s, want %s", got, models.StartingBonus)
	}
	if acc.PasswordHash == "hunter22" {
		t.Error("password must not be stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("hunter22")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockRegistrar()
	svc := newTestService(repo, &mockGranter{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "pass1234", "One"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(ctx, "dup@example.com", "pass1234", "Two"); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got: %v", err)
	}
}

func TestLoginAndValidateToken(t *testing.T) {
	repo := newMockRegistrar()
	svc := newTestService(repo, &mockGranter{})
	ctx := context.Background()

	acc, err := svc.Register(ctx, "member@example.com", "pass1234", "Member")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, err := svc.Login(ctx, "member@example.com", "pass1234")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got != acc.ID {
		t.Errorf("token subject: got %s, want %s", got, acc.ID)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newMockRegistrar()
	svc := newTestService(repo, &mockGranter{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "member@example.com", "pass1234", "Member"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, "member@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got: %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "pass1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got: %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(newMockRegistrar(), &mockGranter{})
	if _, err := svc.ValidateToken(context.Background(), "not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := newMockRegistrar()
	svc := newTestService(repo, &mockGranter{})
	other := NewService(repo, &mockGranter{}, "different-secret", time.Hour, models.StartingBonus)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "member@example.com", "pass1234", "Member"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := svc.Login(ctx, "member@example.com", "pass1234")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := other.ValidateToken(ctx, token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}
