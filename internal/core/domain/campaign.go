package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:  {CampaignStatusActive},
	CampaignStatusActive: {CampaignStatusPaused, CampaignStatusCompleted},
	CampaignStatusPaused: {CampaignStatusActive, CampaignStatusCompleted},
}

// CanMoveTo reports whether the campaign state machine allows s -> to.
func (s CampaignStatus) CanMoveTo(to CampaignStatus) bool {
	for _, next := range campaignTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// MissionType is the kind of task a campaign asks users to do.
type MissionType string

const (
	MissionTypeSale   MissionType = "sale"
	MissionTypeVisit  MissionType = "visit"
	MissionTypeSignup MissionType = "signup"
	MissionTypeOrder  MissionType = "order"
)

// Requirements carries the business's constraints on a valid completion.
type Requirements struct {
	MinPurchase  int64  `json:"min_purchase,omitempty"`
	Location     string `json:"location,omitempty"`
	ProductSKU   string `json:"product_sku,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
	ProofHint    string `json:"proof_hint,omitempty"`
}

// Campaign is a funded pool of reward opportunities.
type Campaign struct {
	ID               uuid.UUID      `json:"id"`
	BusinessID       uuid.UUID      `json:"business_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	CampaignType     MissionType    `json:"campaign_type"`
	Budget           int64          `json:"budget"`
	Spent            int64          `json:"spent"`
	RewardPerAction  int64          `json:"reward_per_action"`
	TotalActions     int            `json:"total_actions"`
	CompletedActions int            `json:"completed_actions"`
	Requirements     Requirements   `json:"requirements"`
	Tags             []string       `json:"tags"`
	Status           CampaignStatus `json:"status"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          *time.Time     `json:"end_date,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Remaining is the part of the budget still frozen for payouts.
func (c *Campaign) Remaining() int64 {
	return c.Budget - c.Spent
}

// CanPayReward reports whether one more reward fits in the budget.
func (c *Campaign) CanPayReward() bool {
	return c.RewardPerAction > 0 && c.Spent+c.RewardPerAction <= c.Budget
}

// PayoutCapacity is the number of rewards the budget can fund.
func (c *Campaign) PayoutCapacity() int64 {
	if c.RewardPerAction <= 0 {
		return 0
	}
	return c.Budget / c.RewardPerAction
}

func (c *Campaign) IsOwnedBy(businessID uuid.UUID) bool {
	return c.BusinessID == businessID
}
