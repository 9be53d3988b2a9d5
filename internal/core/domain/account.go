package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role decides which side of the marketplace an account is on.
type Role string

const (
	RoleUser     Role = "user"
	RoleBusiness Role = "business"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBusiness
}

// Account is a login identity.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose
	Role         Role      `json:"role"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Business funds campaigns. One per business account.
type Business struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	Name          string    `json:"name"`
	CampaignCount int       `json:"campaign_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Caller is the authenticated identity an operation runs on behalf of.
type Caller struct {
	AccountID  uuid.UUID
	Role       Role
	BusinessID *uuid.UUID
}

// WalletOwner returns the wallet the caller spends from.
func (c Caller) WalletOwner() (OwnerRef, bool) {
	switch c.Role {
	case RoleUser:
		return UserOwner(c.AccountID), true
	case RoleBusiness:
		if c.BusinessID != nil {
			return BusinessOwner(*c.BusinessID), true
		}
	}
	return OwnerRef{}, false
}

// Business returns the caller's business id if it acts for one.
func (c Caller) Business() (uuid.UUID, bool) {
	if c.Role != RoleBusiness || c.BusinessID == nil {
		return uuid.Nil, false
	}
	return *c.BusinessID, true
}
