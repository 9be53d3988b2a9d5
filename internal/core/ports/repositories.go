package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Balance changes only go through Adjust, a single guarded UPDATE.
type WalletRepository interface {
	// Create inserts the wallet unless the owner already has one.
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByOwner(ctx context.Context, owner domain.OwnerRef) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef) (*domain.Wallet, error)
	// Adjust applies delta atomically. It returns nil, nil when the wallet
	// does not exist or the result would be negative.
	Adjust(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, delta domain.WalletDelta) (*domain.Wallet, error)
	// SumHoldings is the total of balance+frozen_balance over all wallets.
	SumHoldings(ctx context.Context) (int64, error)
}

// TransactionRepository defines persistence operations for the append-only log.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// UpdateStatus is a compare-and-swap; false means the stored status was not from.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	CampaignTotals(ctx context.Context, campaignID uuid.UUID) (*CampaignTotals, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	Party    domain.Party
	Status   *domain.TransactionStatus
	Type     *domain.TransactionType
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// CampaignTotals aggregates the completed log entries of one campaign.
type CampaignTotals struct {
	Funded       int64
	Refunded     int64
	UserPayouts  int64
	PlatformFees int64
	Rewards      int64 // Number of mission_reward entries
}

// CampaignRepository defines persistence operations for campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, tx pgx.Tx, campaign *domain.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Campaign, error)
	UpdateDetails(ctx context.Context, tx pgx.Tx, campaign *domain.Campaign) error
	// UpdateStatus is a compare-and-swap; false means the stored status was not from.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CampaignStatus) (bool, error)
	// RecordSpend atomically adds amount to spent and one to completed_actions.
	// It returns nil, nil if the campaign is missing or the budget would be exceeded.
	RecordSpend(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (*domain.Campaign, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Campaign, error)
}

// MissionRepository defines persistence operations for missions.
type MissionRepository interface {
	// CreateBatch inserts missions, skipping ids that already exist, and
	// returns how many rows were new.
	CreateBatch(ctx context.Context, tx pgx.Tx, missions []domain.Mission) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Mission, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Mission, error)
	SetActiveByCampaign(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, active bool) error
	// ReserveSlot increments accepted_count if the mission is active and not full.
	// It returns nil, nil otherwise.
	ReserveSlot(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Mission, error)
	// ReleaseSlot decrements accepted_count, never below zero.
	ReleaseSlot(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	IncrementCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	// UpdateDetailsByCampaign rewrites title, description and validation
	// data of every mission of the campaign and returns the row count.
	UpdateDetailsByCampaign(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, details domain.MissionDetails) (int64, error)
	DeleteByCampaign(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (int64, error)
}

// ActionRepository defines persistence operations for user actions.
type ActionRepository interface {
	// Create returns an error wrapping domain.ErrConflict if the user already
	// holds an open action on the mission.
	Create(ctx context.Context, tx pgx.Tx, action *domain.UserAction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserAction, error)
	// HasBlocking reports whether the user already holds a non-rejected
	// action on the mission.
	HasBlocking(ctx context.Context, tx pgx.Tx, userID, missionID uuid.UUID) (bool, error)
	// Transition is a compare-and-swap on status. It returns nil, nil when
	// the action is missing or not in the expected source status.
	Transition(ctx context.Context, tx pgx.Tx, t domain.ActionTransition) (*domain.UserAction, error)
	CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[domain.ActionStatus]int64, error)
}

// AccountRepository defines persistence operations for login accounts.
type AccountRepository interface {
	// Create returns an error wrapping domain.ErrConflict if the username is taken.
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// BusinessRepository defines persistence operations for businesses.
type BusinessRepository interface {
	Create(ctx context.Context, tx pgx.Tx, business *domain.Business) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Business, error)
	AdjustCampaignCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error
}

// NotificationRepository is the transactional outbox.
type NotificationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, notification *domain.Notification) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	Update(ctx context.Context, notification *domain.Notification) error
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	// Create returns an error wrapping domain.ErrConflict if the key exists.
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
