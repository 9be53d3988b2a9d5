package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister         AuditAction = "REGISTER"
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionCreateCampaign   AuditAction = "CREATE_CAMPAIGN"
	AuditActionUpdateCampaign   AuditAction = "UPDATE_CAMPAIGN"
	AuditActionDeleteCampaign   AuditAction = "DELETE_CAMPAIGN"
	AuditActionAcceptMission    AuditAction = "ACCEPT_MISSION"
	AuditActionStartAction      AuditAction = "START_ACTION"
	AuditActionSubmitAction     AuditAction = "SUBMIT_ACTION"
	AuditActionVerifyAction     AuditAction = "VERIFY_ACTION"
	AuditActionRejectAction     AuditAction = "REJECT_ACTION"
	AuditActionWithdraw         AuditAction = "WITHDRAW"
	AuditActionDeposit          AuditAction = "DEPOSIT"
	AuditActionSettleWithdrawal AuditAction = "SETTLE_WITHDRAWAL"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    *uuid.UUID  `json:"account_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
