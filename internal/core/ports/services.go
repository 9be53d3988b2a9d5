package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(caller domain.Caller) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID  uuid.UUID
	Role       domain.Role
	BusinessID *uuid.UUID
}

// Caller converts the claims into the identity passed to services.
func (c *TokenClaims) Caller() domain.Caller {
	return domain.Caller{AccountID: c.AccountID, Role: c.Role, BusinessID: c.BusinessID}
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// NotificationPublisher hands a notification to the delivery pipeline.
type NotificationPublisher interface {
	Publish(ctx context.Context, notification *domain.Notification) error
}

// --- Service Ports (Business Logic) ---

// Ledger moves money between wallets. Every method runs inside the caller's
// database transaction so it composes into a larger unit of work.
type Ledger interface {
	EnsureWallet(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef) (*domain.Wallet, error)
	GetWallet(ctx context.Context, owner domain.OwnerRef) (*domain.Wallet, error)

	Freeze(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error)
	ReleaseFrozen(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error)
	SpendFrozen(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error)
	Credit(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error)
	Debit(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error)
	Transfer(ctx context.Context, tx pgx.Tx, req TransferRequest) (*domain.Transaction, error)

	FundCampaign(ctx context.Context, tx pgx.Tx, campaign *domain.Campaign) (*domain.Transaction, error)
	RefundCampaign(ctx context.Context, tx pgx.Tx, campaign *domain.Campaign, amount int64) (*domain.Transaction, error)
	PayReward(ctx context.Context, tx pgx.Tx, campaign *domain.Campaign, action *domain.UserAction) (*RewardPayout, error)
	Deposit(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64, referenceID string) (*domain.Transaction, error)
	Withdraw(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Transaction, error)
	ReverseWithdrawal(ctx context.Context, tx pgx.Tx, withdrawal *domain.Transaction) (*domain.Transaction, error)
}

// FundSource selects which part of the source wallet a transfer draws on.
type FundSource string

const (
	FromBalance FundSource = "balance"
	FromFrozen  FundSource = "frozen"
)

// TransferRequest describes a two-sided movement with one log entry.
type TransferRequest struct {
	From     domain.OwnerRef
	To       domain.OwnerRef
	Source   FundSource
	Amount   int64
	Type     domain.TransactionType
	Metadata domain.TransactionMetadata
}

// RewardPayout is the result of paying one verified action.
type RewardPayout struct {
	Split          domain.RewardSplit
	RewardTx       *domain.Transaction
	CommissionTx   *domain.Transaction
	BusinessWallet *domain.Wallet
}

// CampaignService manages campaign funding and lifecycle.
type CampaignService interface {
	CreateCampaign(ctx context.Context, caller domain.Caller, params CreateCampaignParams) (*domain.Campaign, error)
	UpdateCampaign(ctx context.Context, campaignID uuid.UUID, caller domain.Caller, patch CampaignPatch) (*domain.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID uuid.UUID, caller domain.Caller) error
	GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context, caller domain.Caller) ([]domain.Campaign, error)
	ListMissions(ctx context.Context, campaignID uuid.UUID) ([]domain.Mission, error)
}

// CreateCampaignParams holds validated input for campaign creation.
type CreateCampaignParams struct {
	CampaignType    domain.MissionType
	Title           string
	Description     string
	Budget          int64
	RewardPerAction int64
	TotalActions    int
	Requirements    domain.Requirements
	Tags            []string
	StartDate       time.Time
	EndDate         *time.Time
	Draft           bool
}

// CampaignPatch holds optional changes. Nil fields are left untouched.
type CampaignPatch struct {
	Title           *string
	Description     *string
	Requirements    *domain.Requirements
	Tags            []string
	EndDate         *time.Time
	Status          *domain.CampaignStatus
	Budget          *int64
	RewardPerAction *int64
}

// ActionService drives the verification state machine.
type ActionService interface {
	AcceptMission(ctx context.Context, caller domain.Caller, missionID uuid.UUID) (*domain.UserAction, error)
	StartAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID) (*domain.UserAction, error)
	SubmitAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID, proof map[string]any) (*domain.UserAction, error)
	VerifyAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID) (*VerificationResult, error)
	RejectAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID, reason string) (*domain.UserAction, error)
}

// VerificationResult is returned by VerifyAction.
type VerificationResult struct {
	Action   *domain.UserAction
	Payment  domain.RewardSplit
	Campaign *domain.Campaign
}

// WalletService exposes wallets and gateway movements.
type WalletService interface {
	GetWallet(ctx context.Context, caller domain.Caller) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, caller domain.Caller, params TransactionListParams) ([]domain.Transaction, int64, error)
	RequestWithdrawal(ctx context.Context, caller domain.Caller, amount int64) (*domain.Transaction, error)
	Deposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error)
	SettleWithdrawal(ctx context.Context, transactionID uuid.UUID, success bool) (*domain.Transaction, error)
}

// DepositRequest is a gateway-confirmed top-up.
type DepositRequest struct {
	Owner       domain.OwnerRef
	Amount      int64
	ReferenceID string
}

// ReportingService aggregates campaign statistics.
type ReportingService interface {
	GetCampaignStats(ctx context.Context, caller domain.Caller, campaignID uuid.UUID) (*CampaignStats, error)
}

// CampaignStats is the reporting view of one campaign.
type CampaignStats struct {
	CampaignID       uuid.UUID
	Status           domain.CampaignStatus
	Budget           int64
	Spent            int64
	Remaining        int64
	CompletedActions int
	MissionCount     int
	Missions         []MissionStats
	ActionsByStatus  map[domain.ActionStatus]int64
	UserPayouts      int64
	PlatformFees     int64
}

// MissionStats holds per-mission counters.
type MissionStats struct {
	MissionID      uuid.UUID
	Title          string
	TotalLimit     int
	AcceptedCount  int
	CompletedCount int
	IsActive       bool
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username     string
	Password     string
	Role         domain.Role
	DisplayName  string
	BusinessName string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	AccountID  uuid.UUID
	Role       domain.Role
	BusinessID *uuid.UUID
	Wallet     *domain.Wallet
}

// AuditService records security-relevant actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
