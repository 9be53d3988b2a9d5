package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	accountRepo  ports.AccountRepository
	businessRepo ports.BusinessRepository
	ledger       ports.Ledger
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
	transactor   ports.DBTransactor
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	businessRepo ports.BusinessRepository,
	ledger ports.Ledger,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	transactor ports.DBTransactor,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo:  accountRepo,
		businessRepo: businessRepo,
		ledger:       ledger,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
		transactor:   transactor,
	}
}

// Register creates the account, its business for business accounts, and
// the wallet it will spend from, all in one transaction.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	if !req.Role.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid role %q", req.Role))
	}
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	if req.Role == domain.RoleBusiness && req.BusinessName == "" {
		return nil, apperror.Validation("business_name is required for business accounts")
	}

	// Check username uniqueness
	existing, err := s.accountRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         req.Role,
		DisplayName:  req.DisplayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if account.DisplayName == "" {
		account.DisplayName = req.Username
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	resp := &ports.RegisterResponse{AccountID: account.ID, Role: account.Role}
	owner := domain.UserOwner(account.ID)

	if account.Role == domain.RoleBusiness {
		business := &domain.Business{
			ID:        uuid.New(),
			AccountID: account.ID,
			Name:      req.BusinessName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.businessRepo.Create(ctx, dbTx, business); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create business: %w", err))
		}
		resp.BusinessID = &business.ID
		owner = domain.BusinessOwner(business.ID)
	}

	wallet, err := s.ledger.EnsureWallet(ctx, dbTx, owner)
	if err != nil {
		return nil, err
	}
	resp.Wallet = wallet

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return resp, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Verify password
	valid, err := s.hashSvc.Verify(password, account.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	caller := domain.Caller{AccountID: account.ID, Role: account.Role}
	if account.Role == domain.RoleBusiness {
		business, err := s.businessRepo.GetByAccountID(ctx, account.ID)
		if err != nil {
			return "", time.Time{}, apperror.InternalError(fmt.Errorf("find business: %w", err))
		}
		if business == nil {
			return "", time.Time{}, apperror.ErrNotFound("business")
		}
		caller.BusinessID = &business.ID
	}

	// Generate JWT
	token, expiry, err := s.tokenSvc.Generate(caller)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
