package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog remembers the result of a gateway deposit so a redelivered
// callback is answered without crediting twice.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "deposit:<owner_type>:<owner_id>:<reference_id>"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildDepositKey constructs the idempotency key of a deposit.
func BuildDepositKey(owner OwnerRef, referenceID string) string {
	return "deposit:" + owner.String() + ":" + referenceID
}
