package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// Notification kinds emitted by lifecycle transitions.
const (
	KindProposalAccepted  = "proposal_accepted"
	KindProposalDeclined  = "proposal_declined"
	KindProposalCancelled = "proposal_cancelled"
	KindApprovalRecorded  = "approval_recorded"
	KindJobCompleted      = "job_completed"
	KindJobCancelled      = "job_cancelled"
	KindReviewReceived    = "review_received"
)

// NotificationArgs is the river job payload for one notification. Jobs are
// inserted with InsertTx inside the transition's transaction, so a rolled
// back transition never notifies anyone.
type NotificationArgs struct {
	Event       string    `json:"event"`
	ProposalID  uuid.UUID `json:"proposal_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
}

func (NotificationArgs) Kind() string { return "lifecycle_notification" }

// EnqueueTxFunc enqueues a notification within the given transaction.
// Provided by main as a closure over river.Client.InsertTx.
type EnqueueTxFunc func(ctx context.Context, tx pgx.Tx, args NotificationArgs) error

// Store persists delivered notifications for the inbox endpoints.
type Store interface {
	Create(ctx context.Context, n *Notification) error
}

// Worker materializes queued notifications into rows the frontend polls.
type Worker struct {
	river.WorkerDefaults[NotificationArgs]
	store Store
	log   *slog.Logger
}

func NewWorker(store Store, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{store: store, log: log}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	args := job.Args
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: args.RecipientID,
		ProposalID:  args.ProposalID,
		Kind:        args.Event,
	}
	if err := w.store.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	w.log.Info("notification delivered", "kind", args.Event, "recipient", args.RecipientID, "proposal_id", args.ProposalID)
	return nil
}

// Notification is one delivered inbox entry.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	ProposalID  uuid.UUID `json:"proposal_id"`
	Kind        string    `json:"kind"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
