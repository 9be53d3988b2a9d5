package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// notificationRetryIntervals is the wait after the Nth failed attempt.
// The last interval repeats until MaxAttempts is reached.
var notificationRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// ActionReviewedPayload is sent to the user when an action is verified or rejected.
type ActionReviewedPayload struct {
	ActionID    uuid.UUID           `json:"action_id"`
	MissionID   uuid.UUID           `json:"mission_id"`
	CampaignID  uuid.UUID           `json:"campaign_id"`
	Status      domain.ActionStatus `json:"status"`
	UserAmount  int64               `json:"user_amount,omitempty"`
	PlatformFee int64               `json:"platform_fee,omitempty"`
	Total       int64               `json:"total,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}

// CampaignCompletedPayload is sent to the business when a campaign closes.
type CampaignCompletedPayload struct {
	CampaignID       uuid.UUID `json:"campaign_id"`
	Budget           int64     `json:"budget"`
	Spent            int64     `json:"spent"`
	Refunded         int64     `json:"refunded"`
	CompletedActions int       `json:"completed_actions"`
}

// MoneyMovementPayload is sent for deposits and settled withdrawals.
type MoneyMovementPayload struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	Type          domain.TransactionType   `json:"transaction_type"`
	Status        domain.TransactionStatus `json:"status"`
	Amount        int64                    `json:"amount"`
	ReferenceID   string                   `json:"reference_id,omitempty"`
}

// enqueueNotification writes an outbox row inside tx, so the notification
// exists exactly when the change it announces commits.
func enqueueNotification(
	ctx context.Context,
	tx pgx.Tx,
	repo ports.NotificationRepository,
	recipient domain.OwnerRef,
	event domain.NotificationEvent,
	payload any,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal %s notification: %w", event, err))
	}

	now := time.Now().UTC()
	n := &domain.Notification{
		ID:            uuid.New(),
		Recipient:     recipient,
		Event:         event,
		Payload:       body,
		Status:        domain.NotificationStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(ctx, tx, n); err != nil {
		return apperror.InternalError(fmt.Errorf("enqueue %s notification: %w", event, err))
	}
	return nil
}

// DispatcherOptions tunes the outbox dispatcher.
type DispatcherOptions struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// NotificationDispatcher publishes due outbox rows and reschedules failed
// ones with backoff.
type NotificationDispatcher struct {
	repo      ports.NotificationRepository
	publisher ports.NotificationPublisher
	opts      DispatcherOptions
	now       func() time.Time
	log       zerolog.Logger
}

func NewNotificationDispatcher(
	repo ports.NotificationRepository,
	publisher ports.NotificationPublisher,
	opts DispatcherOptions,
	log zerolog.Logger,
) *NotificationDispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = len(notificationRetryIntervals) + 1
	}
	return &NotificationDispatcher{
		repo:      repo,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Run polls until ctx is cancelled.
func (d *NotificationDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	d.log.Info().Dur("poll_interval", d.opts.PollInterval).Msg("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("notification dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.log.Error().Err(err).Msg("notification dispatch failed")
			}
		}
	}
}

// DispatchOnce publishes one batch of due notifications and returns how
// many were delivered.
func (d *NotificationDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	due, err := d.repo.ListDue(ctx, d.now(), d.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due notifications: %w", err)
	}

	delivered := 0
	for i := range due {
		n := &due[i]
		n.Attempt++

		if err := d.publisher.Publish(ctx, n); err != nil {
			d.markFailedAttempt(n, err)
		} else {
			n.Status = domain.NotificationStatusDelivered
			n.LastError = nil
			delivered++
		}

		if err := d.repo.Update(ctx, n); err != nil {
			// The row stays due and is published again; consumers dedupe on id.
			d.log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("failed to record notification attempt")
		}
	}
	return delivered, nil
}

func (d *NotificationDispatcher) markFailedAttempt(n *domain.Notification, cause error) {
	msg := cause.Error()
	n.LastError = &msg

	if n.Attempt >= d.opts.MaxAttempts {
		n.Status = domain.NotificationStatusFailed
		d.log.Error().
			Str("notification_id", n.ID.String()).
			Str("event", string(n.Event)).
			Int("attempt", n.Attempt).
			Msg("notification: all retry attempts exhausted")
		return
	}

	idx := min(n.Attempt-1, len(notificationRetryIntervals)-1)
	n.NextAttemptAt = d.now().Add(notificationRetryIntervals[idx])
	d.log.Warn().Err(cause).
		Str("notification_id", n.ID.String()).
		Int("attempt", n.Attempt).
		Time("next_attempt_at", n.NextAttemptAt).
		Msg("notification: delivery failed, retrying")
}
