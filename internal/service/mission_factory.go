package service

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// MaxMissionsPerCampaign caps how many missions one campaign produces.
const MaxMissionsPerCampaign = 100

// MaxPayoutCapacity bounds floor(budget/reward) so mission limits and
// action counters fit their INTEGER columns.
const MaxPayoutCapacity = math.MaxInt32

type missionTemplate struct {
	title        string
	steps        []domain.MissionStep
	method       domain.ValidationMethod
	instructions string
}

var missionTemplates = map[domain.MissionType]missionTemplate{
	domain.MissionTypeSale: {
		title: "Buy at %s",
		steps: []domain.MissionStep{
			{Order: 1, Title: "Visit the store", EstimatedMinutes: 15},
			{Order: 2, Title: "Purchase the featured product", EstimatedMinutes: 10},
			{Order: 3, Title: "Upload a photo of the invoice", EstimatedMinutes: 2},
		},
		method:       domain.ValidationInvoiceUpload,
		instructions: "Upload a clear photo of the invoice showing date, items and total.",
	},
	domain.MissionTypeVisit: {
		title: "Check in at %s",
		steps: []domain.MissionStep{
			{Order: 1, Title: "Go to the location", EstimatedMinutes: 20},
			{Order: 2, Title: "Check in on site", EstimatedMinutes: 2},
			{Order: 3, Title: "Take a screenshot of the check-in", EstimatedMinutes: 1},
		},
		method:       domain.ValidationScreenshot,
		instructions: "Submit a screenshot of the check-in with the location visible.",
	},
	domain.MissionTypeSignup: {
		title: "Sign up for %s",
		steps: []domain.MissionStep{
			{Order: 1, Title: "Open the signup page", EstimatedMinutes: 1},
			{Order: 2, Title: "Create an account using the referral code", EstimatedMinutes: 5},
			{Order: 3, Title: "Confirm your email", EstimatedMinutes: 2},
		},
		method:       domain.ValidationReferralCode,
		instructions: "Enter the referral code you signed up with.",
	},
	domain.MissionTypeOrder: {
		title: "Order from %s",
		steps: []domain.MissionStep{
			{Order: 1, Title: "Place an order online", EstimatedMinutes: 10},
			{Order: 2, Title: "Wait for the order confirmation", EstimatedMinutes: 5},
			{Order: 3, Title: "Submit the order id", EstimatedMinutes: 1},
		},
		method:       domain.ValidationOrderID,
		instructions: "Submit the order id from your confirmation.",
	},
}

// MissionFactory derives the missions of a funded campaign.
type MissionFactory struct {
	maxMissions int
}

// NewMissionFactory creates a factory. A non-positive limit or one above
// MaxMissionsPerCampaign falls back to MaxMissionsPerCampaign.
func NewMissionFactory(maxMissions int) *MissionFactory {
	if maxMissions <= 0 || maxMissions > MaxMissionsPerCampaign {
		maxMissions = MaxMissionsPerCampaign
	}
	return &MissionFactory{maxMissions: maxMissions}
}

// MissionCount is min(floor(budget/reward), limit).
func (f *MissionFactory) MissionCount(c *domain.Campaign) int {
	capacity := c.PayoutCapacity()
	if capacity > int64(f.maxMissions) {
		return f.maxMissions
	}
	return int(capacity)
}

// Generate is a pure function of the campaign: the same campaign always
// yields the same missions, ids included. The payout capacity is spread
// over the missions as total_limit, differing by at most one between them.
func (f *MissionFactory) Generate(c *domain.Campaign, now time.Time) []domain.Mission {
	count := f.MissionCount(c)
	if count == 0 {
		return nil
	}

	tmpl, missionType := templateFor(c.CampaignType)
	details := detailsFor(tmpl, c)

	capacity := c.PayoutCapacity()
	base := int(capacity / int64(count))
	extra := int(capacity % int64(count))

	missions := make([]domain.Mission, 0, count)
	for seq := 1; seq <= count; seq++ {
		limit := base
		if seq <= extra {
			limit++
		}

		steps := make([]domain.MissionStep, len(tmpl.steps))
		copy(steps, tmpl.steps)

		missions = append(missions, domain.Mission{
			ID:               MissionID(c.ID, seq),
			CampaignID:       c.ID,
			Sequence:         seq,
			MissionType:      missionType,
			Title:            details.Title,
			Description:      details.Description,
			Reward:           c.RewardPerAction,
			Steps:            steps,
			ValidationMethod: tmpl.method,
			ValidationData:   details.ValidationData,
			TotalLimit:       limit,
			IsActive:         c.Status == domain.CampaignStatusActive,
			CreatedAt:        now,
		})
	}
	return missions
}

// Details returns the texts Generate would write for c. Ids, limits and
// counters do not depend on them, so a draft edit can rewrite them in place.
func (f *MissionFactory) Details(c *domain.Campaign) domain.MissionDetails {
	tmpl, _ := templateFor(c.CampaignType)
	return detailsFor(tmpl, c)
}

func templateFor(t domain.MissionType) (missionTemplate, domain.MissionType) {
	if tmpl, ok := missionTemplates[t]; ok {
		return tmpl, t
	}
	return missionTemplates[domain.MissionTypeVisit], domain.MissionTypeVisit
}

func detailsFor(tmpl missionTemplate, c *domain.Campaign) domain.MissionDetails {
	return domain.MissionDetails{
		Title:          fmt.Sprintf(tmpl.title, c.Title),
		Description:    missionDescription(c),
		ValidationData: validationData(tmpl, c.Requirements),
	}
}

// MissionID is a name-based UUID of (campaign, sequence).
func MissionID(campaignID uuid.UUID, seq int) uuid.UUID {
	return uuid.NewSHA1(campaignID, []byte("mission:"+strconv.Itoa(seq)))
}

func missionDescription(c *domain.Campaign) string {
	if c.Description != "" {
		return c.Description
	}
	if c.Requirements.ProofHint != "" {
		return c.Requirements.ProofHint
	}
	return c.Title
}

func validationData(tmpl missionTemplate, req domain.Requirements) domain.ValidationData {
	instructions := tmpl.instructions
	if req.ProofHint != "" {
		instructions += " " + req.ProofHint
	}
	return domain.ValidationData{
		Method:       tmpl.method,
		Instructions: instructions,
		MinPurchase:  req.MinPurchase,
		Location:     req.Location,
		ProductSKU:   req.ProductSKU,
		ReferralCode: req.ReferralCode,
	}
}
