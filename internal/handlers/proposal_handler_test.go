package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/ledger"
	"github.com/thehive/timebank/internal/middleware"
	"github.com/thehive/timebank/internal/models"
	"github.com/thehive/timebank/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockLifecycle returns canned results per method.
type mockLifecycle struct {
	proposal *models.Proposal
	err      error
}

func (m *mockLifecycle) CreateProposal(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, string, string) (*models.Proposal, error) {
	return m.proposal, m.err
}
func (m *mockLifecycle) UpdateStatus(context.Context, uuid.UUID, uuid.UUID, string) (*models.Proposal, error) {
	return m.proposal, m.err
}
func (m *mockLifecycle) Approve(context.Context, uuid.UUID, uuid.UUID) (*models.Proposal, error) {
	return m.proposal, m.err
}
func (m *mockLifecycle) DeclineJob(context.Context, uuid.UUID, uuid.UUID, string) (*models.Proposal, error) {
	return m.proposal, m.err
}

type mockProposalReader struct {
	proposals map[uuid.UUID]*models.Proposal
}

func (m *mockProposalReader) GetByID(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProposalReader) ListByParticipant(_ context.Context, accountID uuid.UUID) ([]*models.Proposal, error) {
	var out []*models.Proposal
	for _, p := range m.proposals {
		if p.IsParticipant(accountID) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockJobReader struct {
	jobs map[uuid.UUID]*models.Job
}

func (m *mockJobReader) GetByProposalID(_ context.Context, proposalID uuid.UUID) (*models.Job, error) {
	j, ok := m.jobs[proposalID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return j, nil
}

func (m *mockJobReader) ListByParticipant(_ context.Context, accountID uuid.UUID) ([]*models.Job, error) {
	var out []*models.Job
	for _, j := range m.jobs {
		if j.RequesterID == accountID || j.ProviderID == accountID {
			out = append(out, j)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authedRequest(method, target, body string, acc *models.Account) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(middleware.WithAccount(r.Context(), acc))
}

func newHandler(lc LifecycleService, pr ProposalReader, jr JobReader) *ProposalHandler {
	if pr == nil {
		pr = &mockProposalReader{proposals: map[uuid.UUID]*models.Proposal{}}
	}
	if jr == nil {
		jr = &mockJobReader{jobs: map[uuid.UUID]*models.Job{}}
	}
	return &ProposalHandler{Lifecycle: lc, Proposals: pr, Jobs: jr, Logger: testLogger()}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateProposalHandler(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	p := &models.Proposal{ID: uuid.New(), Status: models.ProposalStatusWaiting}
	h := newHandler(&mockLifecycle{proposal: p}, nil, nil)

	body := `{"post_id":"` + uuid.NewString() + `","rate":"2.00","message":"hi"}`
	w := httptest.NewRecorder()
	h.CreateProposal(w, authedRequest(http.MethodPost, "/api/v1/proposals", body, acc))

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201; body: %s", w.Code, w.Body.String())
	}
	var got models.Proposal
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != p.ID {
		t.Error("response should echo the created proposal")
	}
}

func TestCreateProposalHandlerRejectsBadBody(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	h := newHandler(&mockLifecycle{}, nil, nil)

	w := httptest.NewRecorder()
	h.CreateProposal(w, authedRequest(http.MethodPost, "/api/v1/proposals", `{"post_id":"nope"}`, acc))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad post_id: got %d, want 400", w.Code)
	}
}

func TestHandlerUnauthenticated(t *testing.T) {
	h := newHandler(&mockLifecycle{}, nil, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", strings.NewReader(`{}`))
	h.CreateProposal(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no account in context: got %d, want 401", w.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	id := uuid.New()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient balance", ledger.ErrInsufficientBalance, http.StatusPaymentRequired},
		{"balance ceiling", ledger.ErrBalanceCeiling, http.StatusConflict},
		{"not participant", services.ErrNotParticipant, http.StatusForbidden},
		{"approval order", services.ErrApprovalOrder, http.StatusConflict},
		{"invalid transition", services.ErrInvalidTransition, http.StatusConflict},
		{"concurrent modification", services.ErrConcurrentModification, http.StatusConflict},
		{"no waiting job", services.ErrNoWaitingJob, http.StatusConflict},
		{"duplicate proposal", services.ErrDuplicateProposal, http.StatusConflict},
		{"invalid rate", services.ErrInvalidRate, http.StatusUnprocessableEntity},
		{"not found", pgx.ErrNoRows, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(&mockLifecycle{err: tc.err}, nil, nil)
			w := httptest.NewRecorder()
			body := `{"status":"accepted"}`
			h.UpdateStatus(w, authedRequest(http.MethodPatch, "/api/v1/proposals/"+id.String()+"/status", body, acc))
			if w.Code != tc.want {
				t.Errorf("got %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestGetProposalParticipantsOnly(t *testing.T) {
	requester := uuid.New()
	provider := uuid.New()
	p := &models.Proposal{
		ID:          uuid.New(),
		RequesterID: requester,
		ProviderID:  provider,
		Status:      models.ProposalStatusAccepted,
	}
	pr := &mockProposalReader{proposals: map[uuid.UUID]*models.Proposal{p.ID: p}}
	jr := &mockJobReader{jobs: map[uuid.UUID]*models.Job{
		p.ID: {ID: uuid.New(), ProposalID: p.ID, Status: models.JobStatusWaiting},
	}}
	h := newHandler(&mockLifecycle{}, pr, jr)

	// A participant sees the proposal with its job embedded.
	w := httptest.NewRecorder()
	h.GetProposal(w, authedRequest(http.MethodGet, "/api/v1/proposals/"+p.ID.String(), "", &models.Account{ID: requester}))
	if w.Code != http.StatusOK {
		t.Fatalf("participant get: got %d, want 200", w.Code)
	}
	var resp struct {
		models.Proposal
		Job *models.Job `json:"job"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Job == nil || resp.Job.ProposalID != p.ID {
		t.Error("response should embed the job")
	}

	// An outsider gets 403.
	w = httptest.NewRecorder()
	h.GetProposal(w, authedRequest(http.MethodGet, "/api/v1/proposals/"+p.ID.String(), "", &models.Account{ID: uuid.New()}))
	if w.Code != http.StatusForbidden {
		t.Errorf("outsider get: got %d, want 403", w.Code)
	}

	// Unknown id gets 404.
	w = httptest.NewRecorder()
	h.GetProposal(w, authedRequest(http.MethodGet, "/api/v1/proposals/"+uuid.NewString(), "", &models.Account{ID: requester}))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: got %d, want 404", w.Code)
	}
}

func TestListProposals(t *testing.T) {
	me := uuid.New()
	mine := &models.Proposal{ID: uuid.New(), RequesterID: me, ProviderID: uuid.New()}
	other := &models.Proposal{ID: uuid.New(), RequesterID: uuid.New(), ProviderID: uuid.New()}
	pr := &mockProposalReader{proposals: map[uuid.UUID]*models.Proposal{mine.ID: mine, other.ID: other}}
	h := newHandler(&mockLifecycle{}, pr, nil)

	w := httptest.NewRecorder()
	h.ListProposals(w, authedRequest(http.MethodGet, "/api/v1/proposals", "", &models.Account{ID: me}))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var list []*models.Proposal
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("expected only own proposals, got %d", len(list))
	}
}

func TestListJobs(t *testing.T) {
	me := uuid.New()
	jr := &mockJobReader{jobs: map[uuid.UUID]*models.Job{
		uuid.New(): {ID: uuid.New(), RequesterID: me, Status: models.JobStatusCompleted},
		uuid.New(): {ID: uuid.New(), RequesterID: uuid.New(), ProviderID: uuid.New()},
	}}
	h := newHandler(&mockLifecycle{}, nil, jr)

	w := httptest.NewRecorder()
	h.ListJobs(w, authedRequest(http.MethodGet, "/api/v1/jobs", "", &models.Account{ID: me}))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var list []*models.Job
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected only own jobs, got %d", len(list))
	}
}

func TestDeclineJobHandlerDefaultsReason(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	p := &models.Proposal{ID: uuid.New(), Status: models.ProposalStatusAccepted}
	h := newHandler(&mockLifecycle{proposal: p}, nil, nil)

	// Empty body is allowed; the reason normalizes downstream.
	w := httptest.NewRecorder()
	h.DeclineJob(w, authedRequest(http.MethodPost, "/api/v1/proposals/"+p.ID.String()+"/decline-job", "", acc))
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200; body: %s", w.Code, w.Body.String())
	}
}
