package service

import (
	"context"
	"fmt"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerService implements ports.Ledger. Every wallet mutation is a single
// guarded UPDATE through WalletRepository.Adjust, so concurrent operations
// on one wallet serialize on its row lock and never drive it negative.
type LedgerService struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	platform   domain.OwnerRef
	currency   string
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerService. platformID owns the wallet
// that receives platform commissions.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	platformID uuid.UUID,
	currency string,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		platform:   domain.PlatformOwner(platformID),
		currency:   currency,
		log:        log,
	}
}

// Platform returns the owner of the commission wallet.
func (s *LedgerService) Platform() domain.OwnerRef {
	return s.platform
}

// EnsureWallet creates the owner's wallet if it does not exist yet and
// returns the stored row.
func (s *LedgerService) EnsureWallet(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef) (*domain.Wallet, error) {
	if !owner.Type.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid wallet owner type %q", owner.Type))
	}

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, tx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	stored, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, owner)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if stored == nil {
		return nil, apperror.InternalError(fmt.Errorf("wallet %s missing after create", owner))
	}
	return stored, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, owner domain.OwnerRef) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

// Freeze moves amount from balance to frozen_balance.
func (s *LedgerService) Freeze(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error) {
	return s.adjust(ctx, tx, owner, amount, domain.WalletDelta{Balance: -amount, Frozen: amount})
}

// ReleaseFrozen moves amount from frozen_balance back to balance.
func (s *LedgerService) ReleaseFrozen(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error) {
	return s.adjust(ctx, tx, owner, amount, domain.WalletDelta{Balance: amount, Frozen: -amount})
}

// SpendFrozen removes amount from frozen_balance. The money has to be
// credited somewhere else in the same transaction.
func (s *LedgerService) SpendFrozen(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error) {
	return s.adjust(ctx, tx, owner, amount, domain.WalletDelta{Frozen: -amount})
}

func (s *LedgerService) Credit(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error) {
	return s.adjust(ctx, tx, owner, amount, domain.WalletDelta{Balance: amount})
}

func (s *LedgerService) Debit(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Wallet, error) {
	return s.adjust(ctx, tx, owner, amount, domain.WalletDelta{Balance: -amount})
}

// adjust applies one guarded delta and tells a missing wallet apart from a
// rejected one.
func (s *LedgerService) adjust(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64, delta domain.WalletDelta) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	w, err := s.walletRepo.Adjust(ctx, tx, owner, delta)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("adjust wallet %s: %w", owner, err))
	}
	if w != nil {
		return w, nil
	}

	existing, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, owner)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet %s: %w", owner, err))
	}
	if existing == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return nil, apperror.ErrInsufficientFunds()
}

// Transfer debits the source (from balance or frozen funds), credits the
// destination and appends one completed log entry.
func (s *LedgerService) Transfer(ctx context.Context, tx pgx.Tx, req ports.TransferRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.From == req.To {
		return nil, apperror.Validation("transfer source and destination must differ")
	}

	switch req.Source {
	case ports.FromFrozen:
		if _, err := s.SpendFrozen(ctx, tx, req.From, req.Amount); err != nil {
			return nil, err
		}
	case ports.FromBalance, "":
		if _, err := s.Debit(ctx, tx, req.From, req.Amount); err != nil {
			return nil, err
		}
	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown fund source %q", req.Source))
	}

	if _, err := s.Credit(ctx, tx, req.To, req.Amount); err != nil {
		return nil, err
	}

	txType := req.Type
	if txType == "" {
		txType = domain.TransactionTypeTransfer
	}
	return s.record(ctx, tx, domain.PartyOf(req.From), domain.PartyOf(req.To), req.Amount,
		txType, domain.TransactionStatusCompleted, "", req.Metadata)
}

// FundCampaign freezes the whole budget in the business wallet.
func (s *LedgerService) FundCampaign(ctx context.Context, tx pgx.Tx, c *domain.Campaign) (*domain.Transaction, error) {
	business := domain.BusinessOwner(c.BusinessID)
	if _, err := s.Freeze(ctx, tx, business, c.Budget); err != nil {
		return nil, err
	}
	return s.record(ctx, tx, domain.PartyOf(business), domain.CampaignParty(c.ID), c.Budget,
		domain.TransactionTypeCampaignFund, domain.TransactionStatusCompleted, "",
		domain.TransactionMetadata{CampaignID: &c.ID})
}

// RefundCampaign returns amount of the campaign's frozen budget to the
// business balance. Nothing is released or logged for a zero amount.
func (s *LedgerService) RefundCampaign(ctx context.Context, tx pgx.Tx, c *domain.Campaign, amount int64) (*domain.Transaction, error) {
	if amount < 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if amount == 0 {
		return nil, nil
	}

	business := domain.BusinessOwner(c.BusinessID)
	if _, err := s.ReleaseFrozen(ctx, tx, business, amount); err != nil {
		return nil, err
	}
	return s.record(ctx, tx, domain.CampaignParty(c.ID), domain.PartyOf(business), amount,
		domain.TransactionTypeCampaignRefund, domain.TransactionStatusCompleted, "",
		domain.TransactionMetadata{CampaignID: &c.ID})
}

// PayReward spends one reward from the business's frozen funds and splits
// it between the user and the platform.
func (s *LedgerService) PayReward(ctx context.Context, tx pgx.Tx, c *domain.Campaign, action *domain.UserAction) (*ports.RewardPayout, error) {
	split := domain.SplitReward(c.RewardPerAction)
	if split.Total <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	businessWallet, err := s.SpendFrozen(ctx, tx, domain.BusinessOwner(c.BusinessID), split.Total)
	if err != nil {
		return nil, err
	}

	meta := domain.TransactionMetadata{
		CampaignID: &c.ID,
		MissionID:  &action.MissionID,
		ActionID:   &action.ID,
	}
	payout := &ports.RewardPayout{Split: split, BusinessWallet: businessWallet}

	user := domain.UserOwner(action.UserID)
	if _, err := s.Credit(ctx, tx, user, split.UserAmount); err != nil {
		return nil, err
	}
	payout.RewardTx, err = s.record(ctx, tx, domain.CampaignParty(c.ID), domain.PartyOf(user), split.UserAmount,
		domain.TransactionTypeMissionReward, domain.TransactionStatusCompleted, "", meta)
	if err != nil {
		return nil, err
	}

	// Rewards under four units carry no fee.
	if split.PlatformFee > 0 {
		if _, err := s.Credit(ctx, tx, s.platform, split.PlatformFee); err != nil {
			return nil, err
		}
		commissionMeta := meta
		commissionMeta.FeePercentage = domain.PlatformFeePercent
		payout.CommissionTx, err = s.record(ctx, tx, domain.CampaignParty(c.ID), domain.PartyOf(s.platform), split.PlatformFee,
			domain.TransactionTypePlatformCommission, domain.TransactionStatusCompleted, "", commissionMeta)
		if err != nil {
			return nil, err
		}
	}

	return payout, nil
}

// Deposit credits externally sourced money confirmed by the gateway.
func (s *LedgerService) Deposit(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64, referenceID string) (*domain.Transaction, error) {
	if _, err := s.Credit(ctx, tx, owner, amount); err != nil {
		return nil, err
	}
	return s.record(ctx, tx, domain.GatewayParty(), domain.PartyOf(owner), amount,
		domain.TransactionTypeDeposit, domain.TransactionStatusCompleted, referenceID, domain.TransactionMetadata{})
}

// Withdraw debits the balance and records a pending payout to the gateway.
func (s *LedgerService) Withdraw(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, amount int64) (*domain.Transaction, error) {
	if _, err := s.Debit(ctx, tx, owner, amount); err != nil {
		return nil, err
	}
	return s.record(ctx, tx, domain.PartyOf(owner), domain.GatewayParty(), amount,
		domain.TransactionTypeWithdrawal, domain.TransactionStatusPending, "", domain.TransactionMetadata{})
}

// ReverseWithdrawal puts a failed withdrawal's amount back on the owner's
// balance.
func (s *LedgerService) ReverseWithdrawal(ctx context.Context, tx pgx.Tx, withdrawal *domain.Transaction) (*domain.Transaction, error) {
	if withdrawal.TransactionType != domain.TransactionTypeWithdrawal {
		return nil, apperror.Validation("only withdrawals can be reversed")
	}
	owner := domain.OwnerRef{Type: domain.OwnerType(withdrawal.From.Type), ID: withdrawal.From.ID}
	if _, err := s.Credit(ctx, tx, owner, withdrawal.Amount); err != nil {
		return nil, err
	}
	return s.record(ctx, tx, domain.GatewayParty(), withdrawal.From, withdrawal.Amount,
		domain.TransactionTypeWithdrawalReversal, domain.TransactionStatusCompleted, "",
		domain.TransactionMetadata{OriginalTxID: &withdrawal.ID})
}

func (s *LedgerService) record(
	ctx context.Context,
	tx pgx.Tx,
	from, to domain.Party,
	amount int64,
	txType domain.TransactionType,
	status domain.TransactionStatus,
	referenceID string,
	meta domain.TransactionMetadata,
) (*domain.Transaction, error) {
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:              uuid.New(),
		From:            from,
		To:              to,
		Amount:          amount,
		Currency:        s.currency,
		TransactionType: txType,
		Status:          status,
		ReferenceID:     referenceID,
		Metadata:        meta,
		CreatedAt:       now,
	}
	if status != domain.TransactionStatusPending {
		txn.ProcessedAt = &now
	}

	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create %s transaction: %w", txType, err))
	}
	return txn, nil
}
