package dto

import "time"

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password     string `json:"password" binding:"required,min=8,max=128"`
	Role         string `json:"role" binding:"required,oneof=user business"`
	DisplayName  string `json:"display_name" binding:"max=100"`
	BusinessName string `json:"business_name" binding:"required_if=Role business,max=100"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID  string         `json:"account_id"`
	Role       string         `json:"role"`
	BusinessID *string        `json:"business_id,omitempty"`
	Wallet     WalletResponse `json:"wallet"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// RequirementsPayload mirrors domain.Requirements on the wire.
type RequirementsPayload struct {
	MinPurchase  int64  `json:"min_purchase" binding:"gte=0"`
	Location     string `json:"location" binding:"max=200"`
	ProductSKU   string `json:"product_sku" binding:"max=100"`
	ReferralCode string `json:"referral_code" binding:"max=100"`
	ProofHint    string `json:"proof_hint" binding:"max=500"`
}

// CreateCampaignRequest is the request body for POST /campaigns.
type CreateCampaignRequest struct {
	CampaignType    string              `json:"campaign_type" binding:"required,oneof=sale visit signup order"`
	Title           string              `json:"title" binding:"required,min=1,max=200"`
	Description     string              `json:"description" binding:"max=2000"`
	Budget          int64               `json:"budget" binding:"required,gt=0"`
	RewardPerAction int64               `json:"reward_per_action" binding:"required,gt=0"`
	TotalActions    int                 `json:"total_actions" binding:"required,gt=0"`
	Requirements    RequirementsPayload `json:"requirements"`
	Tags            []string            `json:"tags" binding:"max=20,dive,max=50"`
	StartDate       *time.Time          `json:"start_date"`
	EndDate         *time.Time          `json:"end_date"`
	Draft           bool                `json:"draft"`
}

// UpdateCampaignRequest is the request body for PATCH /campaigns/:id.
// Absent fields are left untouched.
type UpdateCampaignRequest struct {
	Title           *string              `json:"title" binding:"omitempty,min=1,max=200"`
	Description     *string              `json:"description" binding:"omitempty,max=2000"`
	Requirements    *RequirementsPayload `json:"requirements"`
	Tags            []string             `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	EndDate         *time.Time           `json:"end_date"`
	Status          *string              `json:"status" binding:"omitempty,oneof=draft active paused completed"`
	Budget          *int64               `json:"budget"`
	RewardPerAction *int64               `json:"reward_per_action"`
}

// WithdrawalRequest is the request body for POST /wallets/withdrawals.
type WithdrawalRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// SubmitActionRequest carries the user's proof of completion.
type SubmitActionRequest struct {
	Proof map[string]any `json:"proof" binding:"required"`
}

// RejectActionRequest is the request body for POST /actions/:id/reject.
type RejectActionRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// DepositCallbackRequest is the gateway's signed deposit confirmation.
type DepositCallbackRequest struct {
	OwnerType   string `json:"owner_type" binding:"required,oneof=user business platform"`
	OwnerID     string `json:"owner_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID string `json:"reference_id" binding:"required,max=100,safe_id"`
}

// SettleWithdrawalRequest is the gateway's signed payout result.
type SettleWithdrawalRequest struct {
	Success *bool `json:"success" binding:"required"`
}

// WalletResponse is the response body for a wallet.
type WalletResponse struct {
	ID            string `json:"id"`
	OwnerType     string `json:"owner_type"`
	OwnerID       string `json:"owner_id"`
	Balance       int64  `json:"balance"`
	FrozenBalance int64  `json:"frozen_balance"`
	Currency      string `json:"currency"`
}

// PartyResponse is one side of a transaction.
type PartyResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID              string         `json:"id"`
	From            PartyResponse  `json:"from"`
	To              PartyResponse  `json:"to"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	TransactionType string         `json:"transaction_type"`
	Status          string         `json:"status"`
	ReferenceID     string         `json:"reference_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       string         `json:"created_at"`
	ProcessedAt     *string        `json:"processed_at,omitempty"`
}

// TransactionListResponse wraps paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// CampaignResponse is the response body for a campaign.
type CampaignResponse struct {
	ID               string              `json:"id"`
	BusinessID       string              `json:"business_id"`
	Title            string              `json:"title"`
	Description      string              `json:"description,omitempty"`
	CampaignType     string              `json:"campaign_type"`
	Budget           int64               `json:"budget"`
	Spent            int64               `json:"spent"`
	Remaining        int64               `json:"remaining"`
	RewardPerAction  int64               `json:"reward_per_action"`
	TotalActions     int                 `json:"total_actions"`
	CompletedActions int                 `json:"completed_actions"`
	Requirements     RequirementsPayload `json:"requirements"`
	Tags             []string            `json:"tags"`
	Status           string              `json:"status"`
	StartDate        string              `json:"start_date"`
	EndDate          *string             `json:"end_date,omitempty"`
	CreatedAt        string              `json:"created_at"`
}

// MissionStepResponse is one step of a mission.
type MissionStepResponse struct {
	Order            int    `json:"order"`
	Title            string `json:"title"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// MissionResponse is the response body for a mission.
type MissionResponse struct {
	ID               string                `json:"id"`
	CampaignID       string                `json:"campaign_id"`
	Sequence         int                   `json:"sequence"`
	MissionType      string                `json:"mission_type"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Reward           int64                 `json:"reward"`
	Steps            []MissionStepResponse `json:"steps"`
	TotalMinutes     int                   `json:"total_minutes"`
	ValidationMethod string                `json:"validation_method"`
	Instructions     string                `json:"instructions"`
	TotalLimit       int                   `json:"total_limit"`
	AcceptedCount    int                   `json:"accepted_count"`
	CompletedCount   int                   `json:"completed_count"`
	IsActive         bool                  `json:"is_active"`
}

// ActionResponse is the response body for a user action.
type ActionResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	MissionID   string         `json:"mission_id"`
	CampaignID  string         `json:"campaign_id"`
	Status      string         `json:"status"`
	Amount      int64          `json:"amount"`
	ProofData   map[string]any `json:"proof_data,omitempty"`
	StartedAt   *string        `json:"started_at,omitempty"`
	SubmittedAt *string        `json:"submitted_at,omitempty"`
	ReviewedAt  *string        `json:"reviewed_at,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// PaymentResponse is the reward split of one verification.
type PaymentResponse struct {
	UserAmount  int64 `json:"user_amount"`
	PlatformFee int64 `json:"platform_fee"`
	Total       int64 `json:"total"`
}

// VerificationResponse is the response body for POST /actions/:id/verify.
type VerificationResponse struct {
	Action   ActionResponse   `json:"action"`
	Payment  PaymentResponse  `json:"payment"`
	Campaign CampaignResponse `json:"campaign"`
}

// MissionStatsResponse holds per-mission counters.
type MissionStatsResponse struct {
	MissionID      string `json:"mission_id"`
	Title          string `json:"title"`
	TotalLimit     int    `json:"total_limit"`
	AcceptedCount  int    `json:"accepted_count"`
	CompletedCount int    `json:"completed_count"`
	IsActive       bool   `json:"is_active"`
}

// CampaignStatsResponse is the response body for GET /campaigns/:id/stats.
type CampaignStatsResponse struct {
	CampaignID       string                 `json:"campaign_id"`
	Status           string                 `json:"status"`
	Budget           int64                  `json:"budget"`
	Spent            int64                  `json:"spent"`
	Remaining        int64                  `json:"remaining"`
	CompletedActions int                    `json:"completed_actions"`
	MissionCount     int                    `json:"mission_count"`
	Missions         []MissionStatsResponse `json:"missions"`
	ActionsByStatus  map[string]int64       `json:"actions_by_status"`
	UserPayouts      int64                  `json:"user_payouts"`
	PlatformFees     int64                  `json:"platform_fees"`
}
