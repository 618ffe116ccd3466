package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/models"
	"github.com/thehive/timebank/internal/notify"
)

var (
	// ErrNotParticipant is returned when the actor is not a party to the proposal.
	ErrNotParticipant = errors.New("not a participant")
	// ErrInvalidTransition is returned for status changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentModification is returned when a compare-and-swap on the
	// proposal status loses to a concurrent transition.
	ErrConcurrentModification = errors.New("proposal was modified concurrently")
	// ErrApprovalOrder is returned when an approval arrives out of sequence.
	// The wrapped message names the flag that may not be set yet.
	ErrApprovalOrder = errors.New("approval out of order")
	// ErrNoWaitingJob is returned by the job decline path when the proposal
	// has no job left to cancel.
	ErrNoWaitingJob = errors.New("no waiting job")
	// ErrDuplicateProposal is returned when the requester already has a
	// proposal on the post.
	ErrDuplicateProposal = errors.New("proposal already exists for this post")
	// ErrInvalidRate is returned for non-positive or over-precise rates.
	ErrInvalidRate = errors.New("rate must be a positive amount with at most two decimal places")
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ProposalStore is the proposal persistence surface the lifecycle needs.
type ProposalStore interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Proposal, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, fromStatus, toStatus string) (bool, error)
	SetProviderApprovedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (providerApproved, requesterApproved bool, err error)
	SetRequesterApprovedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (providerApproved, requesterApproved bool, err error)
}

// JobStore is the job persistence surface the lifecycle needs.
type JobStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error
	HasWaitingTx(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (bool, error)
	CompleteWaitingTx(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (bool, error)
	CancelWaitingTx(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID, cancelledBy *uuid.UUID, reason string) (bool, error)
}

// PostLookup resolves a post to fix payment direction.
type PostLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

// Ledger is the subset of the ledger service the lifecycle drives.
type Ledger interface {
	Debit(ctx context.Context, tx pgx.Tx, accountID, proposalID uuid.UUID, amount decimal.Decimal) error
	Credit(ctx context.Context, tx pgx.Tx, accountID, proposalID uuid.UUID, amount decimal.Decimal, entryType string) error
}

// Lifecycle is the proposal state machine. Each public method is one
// transition and executes as a single transaction over the proposal row
// (locked FOR UPDATE), its job, and the one or two balances it touches.
// Nothing here runs as a side effect of a save; callers request transitions
// explicitly.
type Lifecycle struct {
	pool      TxBeginner
	proposals ProposalStore
	jobs      JobStore
	posts     PostLookup
	ledger    Ledger
	enqueue   notify.EnqueueTxFunc
	log       *slog.Logger
}

func NewLifecycle(pool TxBeginner, proposals ProposalStore, jobs JobStore, posts PostLookup, lgr Ledger, enqueue notify.EnqueueTxFunc, log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{pool: pool, proposals: proposals, jobs: jobs, posts: posts, ledger: lgr, enqueue: enqueue, log: log}
}

// CreateProposal opens a new waiting proposal against a post. The post owner
// is always the provider; owners cannot propose on their own posts.
func (s *Lifecycle) CreateProposal(ctx context.Context, postID, requesterID uuid.UUID, rate decimal.Decimal, message, location string) (*models.Proposal, error) {
	if !rate.IsPositive() || rate.Exponent() < -2 {
		return nil, ErrInvalidRate
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.PostedBy == requesterID {
		return nil, fmt.Errorf("%w: cannot propose on own post", ErrNotParticipant)
	}
	p := &models.Proposal{
		ID:               uuid.New(),
		PostID:           postID,
		RequesterID:      requesterID,
		ProviderID:       post.PostedBy,
		Rate:             rate,
		Status:           models.ProposalStatusWaiting,
		Message:          message,
		ProposedLocation: location,
	}
	if err := s.proposals.Create(ctx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateProposal
		}
		return nil, err
	}
	return p, nil
}

// UpdateStatus dispatches an explicit status-change request to the matching
// transition. Completion is not requestable: it happens through Approve.
func (s *Lifecycle) UpdateStatus(ctx context.Context, proposalID, actorID uuid.UUID, newStatus string) (*models.Proposal, error) {
	switch newStatus {
	case models.ProposalStatusAccepted:
		return s.Accept(ctx, proposalID, actorID)
	case models.ProposalStatusDeclined:
		return s.Decline(ctx, proposalID, actorID)
	case models.ProposalStatusCancelled:
		return s.Cancel(ctx, proposalID, actorID)
	}
	return nil, fmt.Errorf("%w: cannot request status %q", ErrInvalidTransition, newStatus)
}

// Accept moves waiting → accepted: creates the job and debits the payer.
// The debit is a one-time side effect of the transition edge; accepting an
// already-accepted proposal is a no-op.
func (s *Lifecycle) Accept(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.proposals.GetByIDForUpdate(ctx, tx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorID != p.ProviderID {
		return nil, fmt.Errorf("%w: only the provider may accept", ErrNotParticipant)
	}
	if p.Status == models.ProposalStatusAccepted {
		return p, nil
	}
	if !models.CanTransition(p.Status, models.ProposalStatusAccepted) {
		return nil, fmt.Errorf("%w: %s -> accepted", ErrInvalidTransition, p.Status)
	}

	post, err := s.posts.GetByID(ctx, p.PostID)
	if err != nil {
		return nil, err
	}
	payer, _ := post.PayerPayee(p.RequesterID, p.ProviderID)

	hasWaiting, err := s.jobs.HasWaitingTx(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	if !hasWaiting {
		if err := s.jobs.CreateTx(ctx, tx, &models.Job{
			ID:          uuid.New(),
			ProposalID:  p.ID,
			PostID:      p.PostID,
			RequesterID: p.RequesterID,
			ProviderID:  p.ProviderID,
			Rate:        p.Rate,
			Status:      models.JobStatusWaiting,
		}); err != nil {
			return nil, err
		}
		if err := s.ledger.Debit(ctx, tx, payer, p.ID, p.Rate); err != nil {
			return nil, err
		}
	}

	ok, err := s.proposals.UpdateStatusTx(ctx, tx, p.ID, p.Status, models.ProposalStatusAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}
	p.Status = models.ProposalStatusAccepted

	if err := s.notifyTx(ctx, tx, notify.KindProposalAccepted, p.ID, p.RequesterID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("proposal accepted", "proposal_id", p.ID, "payer", payer, "rate", p.Rate)
	return p, nil
}

// Decline moves waiting → declined. No money has moved yet, so there is no
// ledger effect.
func (s *Lifecycle) Decline(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.proposals.GetByIDForUpdate(ctx, tx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorID != p.ProviderID {
		return nil, fmt.Errorf("%w: only the provider may decline", ErrNotParticipant)
	}
	if !models.CanTransition(p.Status, models.ProposalStatusDeclined) {
		return nil, fmt.Errorf("%w: %s -> declined", ErrInvalidTransition, p.Status)
	}

	ok, err := s.proposals.UpdateStatusTx(ctx, tx, p.ID, p.Status, models.ProposalStatusDeclined)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}
	p.Status = models.ProposalStatusDeclined

	if err := s.notifyTx(ctx, tx, notify.KindProposalDeclined, p.ID, p.RequesterID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel moves accepted → cancelled: cancels the waiting job and refunds the
// payer the full rate. If the job already left waiting through DeclineJob the
// stake is settled, so only the status changes; the refund is tied to this
// call winning the job's waiting → cancelled edge.
func (s *Lifecycle) Cancel(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.proposals.GetByIDForUpdate(ctx, tx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}
	if !models.CanTransition(p.Status, models.ProposalStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, p.Status)
	}

	ok, err := s.proposals.UpdateStatusTx(ctx, tx, p.ID, models.ProposalStatusAccepted, models.ProposalStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentModification
	}
	p.Status = models.ProposalStatusCancelled

	// Full-proposal cancellation does not attribute the job cancellation to
	// anyone; the explicit decline path does.
	cancelled, err := s.jobs.CancelWaitingTx(ctx, tx, p.ID, nil, "")
	if err != nil {
		return nil, err
	}
	if cancelled {
		post, err := s.posts.GetByID(ctx, p.PostID)
		if err != nil {
			return nil, err
		}
		payer, _ := post.PayerPayee(p.RequesterID, p.ProviderID)
		if err := s.ledger.Credit(ctx, tx, payer, p.ID, p.Rate, models.EntryRefund); err != nil {
			return nil, err
		}
	}

	if err := s.notifyTx(ctx, tx, notify.KindProposalCancelled, p.ID, p.Counterparty(actorID)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("proposal cancelled", "proposal_id", p.ID, "refund_issued", cancelled, "rate", p.Rate)
	return p, nil
}

// Approve records one party's sign-off. Ordering depends on the post type:
// for an offer the provider signs first, for a need the requester does.
// Setting the second flag completes the job and pays the counterparty; the
// job's waiting → completed edge is the single point of payout.
func (s *Lifecycle) Approve(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.proposals.GetByIDForUpdate(ctx, tx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}
	if p.Status != models.ProposalStatusAccepted {
		return nil, fmt.Errorf("%w: approvals only apply to accepted proposals", ErrInvalidTransition)
	}

	post, err := s.posts.GetByID(ctx, p.PostID)
	if err != nil {
		return nil, err
	}

	actorIsProvider := actorID == p.ProviderID
	if actorIsProvider {
		if p.ProviderApproved {
			return p, nil
		}
		if post.PostType == models.PostTypeNeed && !p.RequesterApproved {
			return nil, fmt.Errorf("%w: provider_approved requires requester approval first", ErrApprovalOrder)
		}
		p.ProviderApproved, p.RequesterApproved, err = s.proposals.SetProviderApprovedTx(ctx, tx, p.ID)
	} else {
		if p.RequesterApproved {
			return p, nil
		}
		if post.PostType == models.PostTypeOffer && !p.ProviderApproved {
			return nil, fmt.Errorf("%w: requester_approved requires provider approval first", ErrApprovalOrder)
		}
		p.ProviderApproved, p.RequesterApproved, err = s.proposals.SetRequesterApprovedTx(ctx, tx, p.ID)
	}
	if err != nil {
		return nil, err
	}

	if p.ProviderApproved && p.RequesterApproved {
		completed, err := s.jobs.CompleteWaitingTx(ctx, tx, p.ID)
		if err != nil {
			return nil, err
		}
		if completed {
			_, payee := post.PayerPayee(p.RequesterID, p.ProviderID)
			if err := s.ledger.Credit(ctx, tx, payee, p.ID, p.Rate, models.EntryPayout); err != nil {
				return nil, err
			}
		}
		ok, err := s.proposals.UpdateStatusTx(ctx, tx, p.ID, models.ProposalStatusAccepted, models.ProposalStatusCompleted)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrConcurrentModification
		}
		p.Status = models.ProposalStatusCompleted
		if err := s.notifyTx(ctx, tx, notify.KindJobCompleted, p.ID, p.RequesterID); err != nil {
			return nil, err
		}
		if err := s.notifyTx(ctx, tx, notify.KindJobCompleted, p.ID, p.ProviderID); err != nil {
			return nil, err
		}
	} else {
		if err := s.notifyTx(ctx, tx, notify.KindApprovalRecorded, p.ID, p.Counterparty(actorID)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// DeclineJob cancels the waiting job at the approval stage without touching
// the proposal status, which intentionally stays accepted. A no-show forfeits
// the stake to the counterparty; any other reason refunds the payer.
func (s *Lifecycle) DeclineJob(ctx context.Context, proposalID, actorID uuid.UUID, reason string) (*models.Proposal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.proposals.GetByIDForUpdate(ctx, tx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}

	reason = models.NormalizeCancellationReason(reason)
	cancelled, err := s.jobs.CancelWaitingTx(ctx, tx, p.ID, &actorID, reason)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, ErrNoWaitingJob
	}

	post, err := s.posts.GetByID(ctx, p.PostID)
	if err != nil {
		return nil, err
	}
	payer, payee := post.PayerPayee(p.RequesterID, p.ProviderID)
	if reason == models.CancellationNotShowedUp {
		if err := s.ledger.Credit(ctx, tx, payee, p.ID, p.Rate, models.EntryPenaltyTransfer); err != nil {
			return nil, err
		}
	} else {
		if err := s.ledger.Credit(ctx, tx, payer, p.ID, p.Rate, models.EntryRefund); err != nil {
			return nil, err
		}
	}

	if err := s.notifyTx(ctx, tx, notify.KindJobCancelled, p.ID, p.Counterparty(actorID)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("job declined", "proposal_id", p.ID, "by", actorID, "reason", reason)
	return p, nil
}

func (s *Lifecycle) notifyTx(ctx context.Context, tx pgx.Tx, kind string, proposalID, recipientID uuid.UUID) error {
	if s.enqueue == nil {
		return nil
	}
	return s.enqueue(ctx, tx, notify.NotificationArgs{
		Event:       kind,
		ProposalID:  proposalID,
		RecipientID: recipientID,
	})
}
