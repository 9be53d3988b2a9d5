package domain

import (
	"time"

	"github.com/google/uuid"
)

// ValidationMethod is how a completion of a mission is proven.
type ValidationMethod string

const (
	ValidationInvoiceUpload ValidationMethod = "invoice_upload"
	ValidationScreenshot    ValidationMethod = "screenshot"
	ValidationReferralCode  ValidationMethod = "referral_code"
	ValidationOrderID       ValidationMethod = "order_id"
)

// MissionStep is one ordered instruction within a mission.
type MissionStep struct {
	Order            int    `json:"order"`
	Title            string `json:"title"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// ValidationData tells the verifier what to check.
type ValidationData struct {
	Method       ValidationMethod `json:"method"`
	Instructions string           `json:"instructions"`
	MinPurchase  int64            `json:"min_purchase,omitempty"`
	Location     string           `json:"location,omitempty"`
	ProductSKU   string           `json:"product_sku,omitempty"`
	ReferralCode string           `json:"referral_code,omitempty"`
}

// Mission is a user-facing task generated from a campaign.
type Mission struct {
	ID               uuid.UUID        `json:"id"`
	CampaignID       uuid.UUID        `json:"campaign_id"`
	Sequence         int              `json:"sequence"`
	MissionType      MissionType      `json:"mission_type"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Reward           int64            `json:"reward"`
	Steps            []MissionStep    `json:"steps"`
	ValidationMethod ValidationMethod `json:"validation_method"`
	ValidationData   ValidationData   `json:"validation_data"`
	TotalLimit       int              `json:"total_limit"`
	AcceptedCount    int              `json:"accepted_count"`
	CompletedCount   int              `json:"completed_count"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
}

// MissionDetails are the campaign-derived texts shared by every mission of
// a campaign.
type MissionDetails struct {
	Title          string
	Description    string
	ValidationData ValidationData
}

// HasCapacity reports whether another user may accept the mission.
func (m *Mission) HasCapacity() bool {
	return m.AcceptedCount < m.TotalLimit
}

// TotalMinutes sums the step estimates.
func (m *Mission) TotalMinutes() int {
	total := 0
	for _, s := range m.Steps {
		total += s.EstimatedMinutes
	}
	return total
}
