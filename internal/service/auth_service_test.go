package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authDeps struct {
	svc          *AuthServiceImpl
	accountRepo  *mocks.MockAccountRepository
	businessRepo *mocks.MockBusinessRepository
	ledger       *mocks.MockLedger
	hashSvc      *mocks.MockHashService
	tokenSvc     *mocks.MockTokenService
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupAuthService(t *testing.T) *authDeps {
	ctrl := gomock.NewController(t)
	d := &authDeps{
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		businessRepo: mocks.NewMockBusinessRepository(ctrl),
		ledger:       mocks.NewMockLedger(ctrl),
		hashSvc:      mocks.NewMockHashService(ctrl),
		tokenSvc:     mocks.NewMockTokenService(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewAuthService(d.accountRepo, d.businessRepo, d.ledger, d.hashSvc, d.tokenSvc, d.transactor)
	return d
}

func TestAuthService_Register_User(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	req := ports.RegisterRequest{Username: "linh", Password: "StrongP@ss123", Role: domain.RoleUser}

	d.accountRepo.EXPECT().GetByUsername(ctx, "linh").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, a *domain.Account) error {
			assert.Equal(t, "$argon2id$hashed", a.PasswordHash)
			assert.Equal(t, "linh", a.DisplayName)
			return nil
		},
	)
	d.ledger.EXPECT().EnsureWallet(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, owner domain.OwnerRef) (*domain.Wallet, error) {
			assert.Equal(t, domain.OwnerTypeUser, owner.Type)
			return &domain.Wallet{OwnerType: owner.Type, OwnerID: owner.ID}, nil
		},
	)

	resp, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.AccountID)
	assert.Equal(t, domain.RoleUser, resp.Role)
	assert.Nil(t, resp.BusinessID)
	assert.Equal(t, resp.AccountID, resp.Wallet.OwnerID)
}

func TestAuthService_Register_Business(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	req := ports.RegisterRequest{
		Username:     "cafesua",
		Password:     "StrongP@ss123",
		Role:         domain.RoleBusiness,
		BusinessName: " Cafe Sua ",
	}

	var businessID uuid.UUID
	d.accountRepo.EXPECT().GetByUsername(ctx, "cafesua").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	gomock.InOrder(
		d.accountRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil),
		d.businessRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ any, b *domain.Business) error {
				assert.Equal(t, "Cafe Sua", b.Name)
				businessID = b.ID
				return nil
			},
		),
		d.ledger.EXPECT().EnsureWallet(ctx, tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ any, owner domain.OwnerRef) (*domain.Wallet, error) {
				assert.Equal(t, domain.BusinessOwner(businessID), owner)
				return &domain.Wallet{OwnerType: owner.Type, OwnerID: owner.ID}, nil
			},
		),
	)

	resp, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp.BusinessID)
	assert.Equal(t, businessID, *resp.BusinessID)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().GetByUsername(ctx, "linh").Return(&domain.Account{Username: "linh"}, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "linh", Password: "StrongP@ss123", Role: domain.RoleUser})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Register_UsernameTakenConcurrently(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.accountRepo.EXPECT().GetByUsername(ctx, "linh").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("$argon2id$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(fmt.Errorf("insert account: %w", domain.ErrConflict))

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "linh", Password: "StrongP@ss123", Role: domain.RoleUser})
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Register_Validation(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	tests := []struct {
		name string
		req  ports.RegisterRequest
	}{
		{"unknown role", ports.RegisterRequest{Username: "x", Password: "StrongP@ss123", Role: "admin"}},
		{"business without name", ports.RegisterRequest{Username: "x", Password: "StrongP@ss123", Role: domain.RoleBusiness, BusinessName: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.Register(context.Background(), tt.req)
			assertAppError(t, err, "VAL_001")
		})
	}
}

func TestAuthService_Login_User(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), Username: "linh", PasswordHash: "$argon2id$hashed", Role: domain.RoleUser}
	expiry := time.Now().Add(time.Hour)

	d.accountRepo.EXPECT().GetByUsername(ctx, "linh").Return(account, nil)
	d.hashSvc.EXPECT().Verify("StrongP@ss123", account.PasswordHash).Return(true, nil)
	d.tokenSvc.EXPECT().Generate(domain.Caller{AccountID: account.ID, Role: domain.RoleUser}).Return("jwt.token.here", expiry, nil)

	token, exp, err := d.svc.Login(ctx, "linh", "StrongP@ss123")
	require.NoError(t, err)
	assert.Equal(t, "jwt.token.here", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_BusinessCarriesBusinessID(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), Username: "cafesua", PasswordHash: "h", Role: domain.RoleBusiness}
	business := &domain.Business{ID: uuid.New(), AccountID: account.ID}

	d.accountRepo.EXPECT().GetByUsername(ctx, "cafesua").Return(account, nil)
	d.hashSvc.EXPECT().Verify("pw", "h").Return(true, nil)
	d.businessRepo.EXPECT().GetByAccountID(ctx, account.ID).Return(business, nil)
	d.tokenSvc.EXPECT().Generate(gomock.Any()).DoAndReturn(
		func(c domain.Caller) (string, time.Time, error) {
			require.NotNil(t, c.BusinessID)
			assert.Equal(t, business.ID, *c.BusinessID)
			return "tok", time.Now(), nil
		},
	)

	_, _, err := d.svc.Login(ctx, "cafesua", "pw")
	require.NoError(t, err)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	d.accountRepo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, nil)

	_, _, err := d.svc.Login(context.Background(), "ghost", "password")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	account := &domain.Account{ID: uuid.New(), Username: "linh", PasswordHash: "h", Role: domain.RoleUser}
	d.accountRepo.EXPECT().GetByUsername(gomock.Any(), "linh").Return(account, nil)
	d.hashSvc.EXPECT().Verify("wrong", "h").Return(false, nil)

	_, _, err := d.svc.Login(context.Background(), "linh", "wrong")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_RepoError(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	d.accountRepo.EXPECT().GetByUsername(gomock.Any(), "linh").Return(nil, errors.New("connection reset"))

	_, _, err := d.svc.Login(context.Background(), "linh", "pw")
	assertAppError(t, err, "SYS_001")
}
