package domain

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSplitReward_Exact(t *testing.T) {
	tests := []struct {
		total    int64
		user     int64
		platform int64
	}{
		{5000, 3750, 1250},
		{1, 1, 0},
		{3, 3, 0},
		{4, 3, 1},
		{7, 6, 1},
		{999, 750, 249},
		{100000, 75000, 25000},
		{400_000_000_000_000_000, 300_000_000_000_000_000, 100_000_000_000_000_000},
		{math.MaxInt64, 6917529027641081856, 2305843009213693951},
	}

	for _, tt := range tests {
		split := SplitReward(tt.total)
		assert.Equal(t, tt.user, split.UserAmount, "user share of %d", tt.total)
		assert.Equal(t, tt.platform, split.PlatformFee, "fee of %d", tt.total)
		assert.Equal(t, tt.total, split.Total)
	}
}

func TestSplitReward_SumsToTotal(t *testing.T) {
	for total := int64(1); total <= 10_000; total++ {
		split := SplitReward(total)
		if split.UserAmount+split.PlatformFee != total {
			t.Fatalf("split of %d does not sum: %+v", total, split)
		}
		if split.PlatformFee < 0 || split.UserAmount < split.PlatformFee {
			t.Fatalf("unexpected split of %d: %+v", total, split)
		}
	}
}

func TestSplitReward_LargeTotalsStayBounded(t *testing.T) {
	for _, total := range []int64{math.MaxInt64, math.MaxInt64 - 99, 368_934_881_474_191_033, 1 << 62} {
		split := SplitReward(total)
		assert.Equal(t, total, split.UserAmount+split.PlatformFee)
		assert.GreaterOrEqual(t, split.PlatformFee, int64(0))
		assert.LessOrEqual(t, split.UserAmount, total)
		assert.Equal(t, total/4, split.PlatformFee, "fee of %d", total)
	}
}

func TestActionStatus_CanMoveTo(t *testing.T) {
	tests := []struct {
		from ActionStatus
		to   ActionStatus
		want bool
	}{
		{ActionStatusPending, ActionStatusInProgress, true},
		{ActionStatusInProgress, ActionStatusCompleted, true},
		{ActionStatusCompleted, ActionStatusVerified, true},
		{ActionStatusCompleted, ActionStatusRejected, true},
		{ActionStatusPending, ActionStatusCompleted, false},
		{ActionStatusPending, ActionStatusVerified, false},
		{ActionStatusInProgress, ActionStatusRejected, false},
		{ActionStatusVerified, ActionStatusVerified, false},
		{ActionStatusVerified, ActionStatusRejected, false},
		{ActionStatusRejected, ActionStatusVerified, false},
		{ActionStatusPaid, ActionStatusVerified, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanMoveTo(tt.to))
		})
	}
}

func TestActionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ActionStatusPending.IsTerminal())
	assert.False(t, ActionStatusInProgress.IsTerminal())
	assert.False(t, ActionStatusCompleted.IsTerminal())
	assert.True(t, ActionStatusVerified.IsTerminal())
	assert.True(t, ActionStatusRejected.IsTerminal())
	assert.True(t, ActionStatusPaid.IsTerminal())
}

func TestActionStatus_BlocksNewAttempt(t *testing.T) {
	assert.True(t, ActionStatusPending.BlocksNewAttempt())
	assert.True(t, ActionStatusVerified.BlocksNewAttempt())
	assert.False(t, ActionStatusRejected.BlocksNewAttempt())
}

func TestCampaignStatus_CanMoveTo(t *testing.T) {
	tests := []struct {
		from CampaignStatus
		to   CampaignStatus
		want bool
	}{
		{CampaignStatusDraft, CampaignStatusActive, true},
		{CampaignStatusActive, CampaignStatusPaused, true},
		{CampaignStatusPaused, CampaignStatusActive, true},
		{CampaignStatusActive, CampaignStatusCompleted, true},
		{CampaignStatusPaused, CampaignStatusCompleted, true},
		{CampaignStatusActive, CampaignStatusDraft, false},
		{CampaignStatusDraft, CampaignStatusPaused, false},
		{CampaignStatusCompleted, CampaignStatusActive, false},
		{CampaignStatusDraft, CampaignStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanMoveTo(tt.to))
		})
	}
}

func TestCampaign_Budget(t *testing.T) {
	c := &Campaign{Budget: 50000, Spent: 45000, RewardPerAction: 5000}
	assert.Equal(t, int64(5000), c.Remaining())
	assert.True(t, c.CanPayReward())
	assert.Equal(t, int64(10), c.PayoutCapacity())

	c.Spent = 50000
	assert.False(t, c.CanPayReward())

	c = &Campaign{Budget: 4000, RewardPerAction: 5000}
	assert.Equal(t, int64(0), c.PayoutCapacity())
	assert.False(t, c.CanPayReward())
}

func TestTransactionStatus_CanMoveTo(t *testing.T) {
	assert.True(t, TransactionStatusPending.CanMoveTo(TransactionStatusCompleted))
	assert.True(t, TransactionStatusPending.CanMoveTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusCompleted.CanMoveTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusFailed.CanMoveTo(TransactionStatusCompleted))
	assert.False(t, TransactionStatusPending.CanMoveTo(TransactionStatusPending))
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   bool
	}{
		{TransactionStatusPending, false},
		{TransactionStatusCompleted, true},
		{TransactionStatusFailed, true},
	}

	for _, tt := range tests {
		tx := &Transaction{Status: tt.status}
		assert.Equal(t, tt.want, tx.IsTerminal(), string(tt.status))
	}
}

func TestTransactionType_IsExternal(t *testing.T) {
	assert.True(t, TransactionTypeDeposit.IsExternal())
	assert.True(t, TransactionTypeWithdrawal.IsExternal())
	assert.True(t, TransactionTypeWithdrawalReversal.IsExternal())
	assert.False(t, TransactionTypeMissionReward.IsExternal())
	assert.False(t, TransactionTypeCampaignFund.IsExternal())
}

func TestPartyOf(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, Party{Type: PartyUser, ID: id}, PartyOf(UserOwner(id)))
	assert.Equal(t, Party{Type: PartyBusiness, ID: id}, PartyOf(BusinessOwner(id)))
	assert.Equal(t, Party{Type: PartyPlatform, ID: id}, PartyOf(PlatformOwner(id)))

	tx := &Transaction{From: CampaignParty(id), To: PartyOf(UserOwner(id))}
	assert.True(t, tx.Involves(PartyOf(UserOwner(id))))
	assert.False(t, tx.Involves(GatewayParty()))
}

func TestCaller_WalletOwner(t *testing.T) {
	accountID := uuid.New()
	businessID := uuid.New()

	owner, ok := Caller{AccountID: accountID, Role: RoleUser}.WalletOwner()
	assert.True(t, ok)
	assert.Equal(t, UserOwner(accountID), owner)

	owner, ok = Caller{AccountID: accountID, Role: RoleBusiness, BusinessID: &businessID}.WalletOwner()
	assert.True(t, ok)
	assert.Equal(t, BusinessOwner(businessID), owner)

	_, ok = Caller{AccountID: accountID, Role: RoleBusiness}.WalletOwner()
	assert.False(t, ok)

	_, ok = Caller{AccountID: accountID, Role: RoleUser, BusinessID: &businessID}.Business()
	assert.False(t, ok)
}

func TestBuildDepositKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	key := BuildDepositKey(UserOwner(id), "GW-001")
	assert.Equal(t, "deposit:user:550e8400-e29b-41d4-a716-446655440000:GW-001", key)
}

func TestMission_Capacity(t *testing.T) {
	m := &Mission{TotalLimit: 2, AcceptedCount: 1, Steps: []MissionStep{{EstimatedMinutes: 5}, {EstimatedMinutes: 10}}}
	assert.True(t, m.HasCapacity())
	assert.Equal(t, 15, m.TotalMinutes())
	m.AcceptedCount = 2
	assert.False(t, m.HasCapacity())
}

func TestOwnerType_Valid(t *testing.T) {
	assert.True(t, OwnerTypeUser.Valid())
	assert.True(t, OwnerTypePlatform.Valid())
	assert.False(t, OwnerType("campaign").Valid())
	assert.True(t, RoleBusiness.Valid())
	assert.False(t, Role("admin").Valid())
}
