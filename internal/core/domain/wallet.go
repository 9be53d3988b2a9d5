package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType identifies who a wallet belongs to.
type OwnerType string

const (
	OwnerTypeUser     OwnerType = "user"
	OwnerTypeBusiness OwnerType = "business"
	OwnerTypePlatform OwnerType = "platform"
)

// Valid reports whether t is a known owner type.
func (t OwnerType) Valid() bool {
	switch t {
	case OwnerTypeUser, OwnerTypeBusiness, OwnerTypePlatform:
		return true
	}
	return false
}

// OwnerRef addresses exactly one wallet.
type OwnerRef struct {
	Type OwnerType `json:"owner_type"`
	ID   uuid.UUID `json:"owner_id"`
}

func UserOwner(id uuid.UUID) OwnerRef     { return OwnerRef{Type: OwnerTypeUser, ID: id} }
func BusinessOwner(id uuid.UUID) OwnerRef { return OwnerRef{Type: OwnerTypeBusiness, ID: id} }
func PlatformOwner(id uuid.UUID) OwnerRef { return OwnerRef{Type: OwnerTypePlatform, ID: id} }

func (o OwnerRef) String() string {
	return string(o.Type) + ":" + o.ID.String()
}

// Wallet holds spendable and frozen funds for one owner, in the smallest
// currency unit.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	OwnerType     OwnerType `json:"owner_type"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Balance       int64     `json:"balance"`
	FrozenBalance int64     `json:"frozen_balance"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Owner returns the reference addressing this wallet.
func (w *Wallet) Owner() OwnerRef {
	return OwnerRef{Type: w.OwnerType, ID: w.OwnerID}
}

// Holdings is balance plus frozen balance.
func (w *Wallet) Holdings() int64 {
	return w.Balance + w.FrozenBalance
}

// WalletDelta is applied to a wallet in a single guarded statement. The
// update is rejected if either field would go negative.
type WalletDelta struct {
	Balance int64
	Frozen  int64
}
