package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	ledger     ports.Ledger
	txRepo     ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	notifRepo  ports.NotificationRepository
	transactor ports.DBTransactor
	idempTTL   time.Duration
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	ledger ports.Ledger,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	notifRepo ports.NotificationRepository,
	transactor ports.DBTransactor,
	idempTTL time.Duration,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		ledger:     ledger,
		txRepo:     txRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		notifRepo:  notifRepo,
		transactor: transactor,
		idempTTL:   idempTTL,
		log:        log,
	}
}

func (s *WalletServiceImpl) GetWallet(ctx context.Context, caller domain.Caller) (*domain.Wallet, error) {
	owner, ok := caller.WalletOwner()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}
	return s.ledger.GetWallet(ctx, owner)
}

// ListTransactions returns a page of the log entries the caller's wallet
// took part in, newest first.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, caller domain.Caller, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	owner, ok := caller.WalletOwner()
	if !ok {
		return nil, 0, apperror.ErrForbiddenRole()
	}

	params.Party = domain.PartyOf(owner)
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// RequestWithdrawal debits the caller's balance and leaves a pending
// withdrawal for the gateway to settle.
func (s *WalletServiceImpl) RequestWithdrawal(ctx context.Context, caller domain.Caller, amount int64) (*domain.Transaction, error) {
	owner, ok := caller.WalletOwner()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.ledger.Withdraw(ctx, dbTx, owner, amount)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("owner", owner.String()).
		Int64("amount", amount).
		Msg("withdrawal requested")

	return txn, nil
}

// Deposit credits a gateway-confirmed top-up. A redelivered callback with
// the same owner and reference returns the original transaction.
func (s *WalletServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	req.ReferenceID = strings.TrimSpace(req.ReferenceID)
	if req.ReferenceID == "" {
		return nil, apperror.Validation("reference_id is required")
	}
	if !req.Owner.Type.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid wallet owner type %q", req.Owner.Type))
	}

	idempKey := domain.BuildDepositKey(req.Owner, req.ReferenceID)

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalCachedTransaction(cached)
	}

	// Layer 2: DB idempotency check
	if txn, err := s.storedDeposit(ctx, idempKey); err != nil || txn != nil {
		return txn, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.ledger.Deposit(ctx, dbTx, req.Owner, req.Amount, req.ReferenceID)
	if err != nil {
		return nil, err
	}

	respJSON, err := json.Marshal(txn)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}

	idempLogEntry := &domain.IdempotencyLog{
		Key:           idempKey,
		TransactionID: txn.ID,
		ResponseJSON:  respJSON,
		CreatedAt:     txn.CreatedAt,
	}
	if err := s.idempRepo.Create(ctx, dbTx, idempLogEntry); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent delivery of the same callback committed first.
			_ = dbTx.Rollback(ctx)
			return s.storedDeposit(ctx, idempKey)
		}
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	payload := MoneyMovementPayload{
		TransactionID: txn.ID,
		Type:          txn.TransactionType,
		Status:        txn.Status,
		Amount:        txn.Amount,
		ReferenceID:   txn.ReferenceID,
	}
	if err := enqueueNotification(ctx, dbTx, s.notifRepo, req.Owner, domain.EventDepositReceived, payload); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if err := s.idempCache.Set(ctx, idempKey, respJSON, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("owner", req.Owner.String()).
		Int64("amount", req.Amount).
		Str("reference_id", req.ReferenceID).
		Msg("deposit credited")

	return txn, nil
}

func (s *WalletServiceImpl) storedDeposit(ctx context.Context, key string) (*domain.Transaction, error) {
	idempLog, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog == nil {
		return nil, nil
	}
	return unmarshalCachedTransaction(idempLog.ResponseJSON)
}

// SettleWithdrawal records the gateway's verdict on a pending withdrawal.
// A failed payout puts the amount back on the owner's balance.
func (s *WalletServiceImpl) SettleWithdrawal(ctx context.Context, transactionID uuid.UUID, success bool) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	if txn.TransactionType != domain.TransactionTypeWithdrawal {
		return nil, apperror.Validation("only withdrawals can be settled")
	}

	to := domain.TransactionStatusCompleted
	if !success {
		to = domain.TransactionStatusFailed
	}
	if !txn.Status.CanMoveTo(to) {
		return nil, apperror.ErrInvalidStateTransition("transaction", string(txn.Status), string(to))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ok, err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, domain.TransactionStatusPending, to)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update transaction status: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidStateTransition("transaction", string(domain.TransactionStatusPending), string(to))
	}

	if !success {
		if _, err := s.ledger.ReverseWithdrawal(ctx, dbTx, txn); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	txn.Status = to
	txn.ProcessedAt = &now

	owner := domain.OwnerRef{Type: domain.OwnerType(txn.From.Type), ID: txn.From.ID}
	payload := MoneyMovementPayload{
		TransactionID: txn.ID,
		Type:          txn.TransactionType,
		Status:        txn.Status,
		Amount:        txn.Amount,
	}
	if err := enqueueNotification(ctx, dbTx, s.notifRepo, owner, domain.EventWithdrawalSettled, payload); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("status", string(to)).
		Int64("amount", txn.Amount).
		Msg("withdrawal settled")

	return txn, nil
}

func unmarshalCachedTransaction(data []byte) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached tx: %w", err))
	}
	return txn, nil
}
