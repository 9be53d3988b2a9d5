package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus represents the delivery state of an outbox row.
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusFailed    NotificationStatus = "failed"
)

// NotificationEvent names what happened.
type NotificationEvent string

const (
	EventActionVerified    NotificationEvent = "action_verified"
	EventActionRejected    NotificationEvent = "action_rejected"
	EventCampaignCompleted NotificationEvent = "campaign_completed"
	EventWithdrawalSettled NotificationEvent = "withdrawal_settled"
	EventDepositReceived   NotificationEvent = "deposit_received"
)

// Notification is written in the same database transaction as the change
// it announces and published later by the dispatcher.
type Notification struct {
	ID            uuid.UUID          `json:"id"`
	Recipient     OwnerRef           `json:"recipient"`
	Event         NotificationEvent  `json:"event"`
	Payload       []byte             `json:"payload"` // JSON
	Attempt       int                `json:"attempt"`
	Status        NotificationStatus `json:"status"`
	NextAttemptAt time.Time          `json:"next_attempt_at"`
	LastError     *string            `json:"last_error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
