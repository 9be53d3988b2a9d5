package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionStatus tracks a user's attempt at a mission.
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "pending"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusCompleted  ActionStatus = "completed"
	ActionStatusVerified   ActionStatus = "verified"
	ActionStatusRejected   ActionStatus = "rejected"
	// ActionStatusPaid is accepted in storage for older rows; payout
	// happens as part of verification so nothing moves an action here.
	ActionStatusPaid ActionStatus = "paid"
)

var actionTransitions = map[ActionStatus]ActionStatus{
	ActionStatusPending:    ActionStatusInProgress,
	ActionStatusInProgress: ActionStatusCompleted,
}

// CanMoveTo reports whether the state machine allows s -> to.
func (s ActionStatus) CanMoveTo(to ActionStatus) bool {
	if s == ActionStatusCompleted {
		return to == ActionStatusVerified || to == ActionStatusRejected
	}
	next, ok := actionTransitions[s]
	return ok && next == to
}

// IsTerminal returns true for statuses no transition leaves.
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusVerified || s == ActionStatusRejected || s == ActionStatusPaid
}

// BlocksNewAttempt reports whether an action in this status prevents the
// same user from accepting the mission again.
func (s ActionStatus) BlocksNewAttempt() bool {
	return s != ActionStatusRejected
}

// UserAction is one attempt by a user at a mission.
type UserAction struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	MissionID   uuid.UUID      `json:"mission_id"`
	CampaignID  uuid.UUID      `json:"campaign_id"`
	Status      ActionStatus   `json:"status"`
	Amount      int64          `json:"amount"`
	ProofData   map[string]any `json:"proof_data,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ActionTransition is a compare-and-swap on an action's status. ProofPatch
// is merged into the stored proof data when set.
type ActionTransition struct {
	ActionID   uuid.UUID
	From       ActionStatus
	To         ActionStatus
	ProofPatch map[string]any
}
