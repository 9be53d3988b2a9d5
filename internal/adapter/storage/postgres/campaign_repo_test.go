package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCampaign() *domain.Campaign {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Campaign{
		ID:              uuid.New(),
		BusinessID:      uuid.New(),
		Title:           "Coffee week",
		CampaignType:    domain.MissionTypeSale,
		Budget:          50000,
		RewardPerAction: 5000,
		TotalActions:    10,
		Requirements:    domain.Requirements{MinPurchase: 30000, Location: "District 1"},
		Tags:            []string{"coffee"},
		Status:          domain.CampaignStatusActive,
		StartDate:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func campaignCols() []string {
	return []string{"id", "business_id", "title", "description", "campaign_type", "budget", "spent",
		"reward_per_action", "total_actions", "completed_actions", "requirements", "tags", "status",
		"start_date", "end_date", "created_at", "updated_at"}
}

func campaignRow(t *testing.T, c *domain.Campaign) *pgxmock.Rows {
	requirements, err := json.Marshal(c.Requirements)
	require.NoError(t, err)
	return pgxmock.NewRows(campaignCols()).AddRow(
		c.ID, c.BusinessID, c.Title, c.Description, c.CampaignType, c.Budget, c.Spent,
		c.RewardPerAction, c.TotalActions, c.CompletedActions, requirements, c.Tags, c.Status,
		c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt,
	)
}

func TestCampaignRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	c := newTestCampaign()
	requirements, err := json.Marshal(c.Requirements)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.BusinessID, c.Title, c.Description, c.CampaignType, c.Budget, c.Spent,
			c.RewardPerAction, c.TotalActions, c.CompletedActions, requirements, c.Tags, c.Status,
			c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), tx, c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	c := newTestCampaign()

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id = \\$1$").
		WithArgs(c.ID).
		WillReturnRows(campaignRow(t, c))

	result, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, c.Budget, result.Budget)
	assert.Equal(t, int64(30000), result.Requirements.MinPurchase)
	assert.Equal(t, []string{"coffee"}, result.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(campaignCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestCampaignRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	c := newTestCampaign()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE id = \\$1 FOR UPDATE").
		WithArgs(c.ID).
		WillReturnRows(campaignRow(t, c))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE campaigns SET status = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2 AND status = \\$3").
		WithArgs(domain.CampaignStatusPaused, id, domain.CampaignStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE campaigns SET status").
		WithArgs(domain.CampaignStatusPaused, id, domain.CampaignStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.UpdateStatus(context.Background(), tx, id, domain.CampaignStatusActive, domain.CampaignStatusPaused)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(context.Background(), tx, id, domain.CampaignStatusActive, domain.CampaignStatusPaused)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_RecordSpend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	c := newTestCampaign()
	updated := *c
	updated.Spent = 5000
	updated.CompletedActions = 1

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE campaigns SET spent = spent \\+ \\$2, completed_actions = completed_actions \\+ 1, .+ WHERE id = \\$1 AND spent \\+ \\$2 <= budget RETURNING").
		WithArgs(c.ID, int64(5000)).
		WillReturnRows(campaignRow(t, &updated))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.RecordSpend(context.Background(), tx, c.ID, 5000)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(5000), result.Spent)
	assert.Equal(t, 1, result.CompletedActions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_RecordSpend_OverBudget(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE campaigns SET spent").
		WithArgs(pgxmock.AnyArg(), int64(5000)).
		WillReturnRows(pgxmock.NewRows(campaignCols()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.RecordSpend(context.Background(), tx, uuid.New(), 5000)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestCampaignRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM campaigns WHERE id").
		WithArgs(id).
		WillReturnError(errors.New("fk violation"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Delete(context.Background(), tx, id)
	assert.ErrorContains(t, err, "delete campaign")
}

func TestCampaignRepo_ListByBusiness(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCampaignRepo(mock)
	c := newTestCampaign()

	mock.ExpectQuery("SELECT .+ FROM campaigns WHERE business_id = \\$1 ORDER BY created_at DESC").
		WithArgs(c.BusinessID).
		WillReturnRows(campaignRow(t, c))

	campaigns, err := repo.ListByBusiness(context.Background(), c.BusinessID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, c.ID, campaigns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
