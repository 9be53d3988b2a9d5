package domain

import (
	"time"

	"github.com/google/uuid"
)

// PartyType is one side of a money movement.
type PartyType string

const (
	PartyUser     PartyType = "user"
	PartyBusiness PartyType = "business"
	PartyPlatform PartyType = "platform"
	PartyCampaign PartyType = "campaign"
	PartyGateway  PartyType = "gateway"
)

// Party identifies the source or destination of a transaction.
type Party struct {
	Type PartyType `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// PartyOf maps a wallet owner onto a transaction party.
func PartyOf(o OwnerRef) Party {
	return Party{Type: PartyType(o.Type), ID: o.ID}
}

// CampaignParty is the budget of a campaign, held frozen in its business wallet.
func CampaignParty(campaignID uuid.UUID) Party {
	return Party{Type: PartyCampaign, ID: campaignID}
}

// GatewayParty stands for the external payment gateway.
func GatewayParty() Party {
	return Party{Type: PartyGateway, ID: uuid.Nil}
}

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeCampaignFund       TransactionType = "campaign_fund"
	TransactionTypeCampaignRefund     TransactionType = "campaign_refund"
	TransactionTypeMissionReward      TransactionType = "mission_reward"
	TransactionTypePlatformCommission TransactionType = "platform_commission"
	TransactionTypeTransfer           TransactionType = "transfer"
	TransactionTypeDeposit            TransactionType = "deposit"
	TransactionTypeWithdrawal         TransactionType = "withdrawal"
	TransactionTypeWithdrawalReversal TransactionType = "withdrawal_reversal"
)

// IsExternal reports whether the movement crosses the system boundary.
func (t TransactionType) IsExternal() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeWithdrawalReversal:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// CanMoveTo reports whether a logged transaction may change status.
// Only pending gateway movements are ever settled.
func (s TransactionStatus) CanMoveTo(to TransactionStatus) bool {
	return s == TransactionStatusPending &&
		(to == TransactionStatusCompleted || to == TransactionStatusFailed)
}

// TransactionMetadata records why money moved.
type TransactionMetadata struct {
	CampaignID    *uuid.UUID `json:"campaign_id,omitempty"`
	MissionID     *uuid.UUID `json:"mission_id,omitempty"`
	ActionID      *uuid.UUID `json:"action_id,omitempty"`
	OriginalTxID  *uuid.UUID `json:"original_transaction_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	FeePercentage int64      `json:"fee_percentage,omitempty"`
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID              uuid.UUID           `json:"id"`
	From            Party               `json:"from"`
	To              Party               `json:"to"`
	Amount          int64               `json:"amount"`
	Currency        string              `json:"currency"`
	TransactionType TransactionType     `json:"transaction_type"`
	Status          TransactionStatus   `json:"status"`
	ReferenceID     string              `json:"reference_id,omitempty"`
	Metadata        TransactionMetadata `json:"metadata"`
	CreatedAt       time.Time           `json:"created_at"`
	ProcessedAt     *time.Time          `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// Involves reports whether the party is either side of the movement.
func (t *Transaction) Involves(p Party) bool {
	return t.From == p || t.To == p
}
