package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMission(campaignID uuid.UUID, seq int) domain.Mission {
	return domain.Mission{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		Sequence:    seq,
		MissionType: domain.MissionTypeVisit,
		Title:       "Visit the store",
		Reward:      5000,
		Steps: []domain.MissionStep{
			{Order: 1, Title: "Go to the store", EstimatedMinutes: 20},
			{Order: 2, Title: "Take a photo", EstimatedMinutes: 2},
		},
		ValidationMethod: domain.ValidationScreenshot,
		ValidationData:   domain.ValidationData{Method: domain.ValidationScreenshot, Location: "District 1"},
		TotalLimit:       3,
		IsActive:         true,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}

func missionCols() []string {
	return []string{"id", "campaign_id", "sequence", "mission_type", "title", "description", "reward", "steps",
		"validation_method", "validation_data", "total_limit", "accepted_count", "completed_count",
		"is_active", "created_at"}
}

func missionRow(t *testing.T, m domain.Mission) *pgxmock.Rows {
	steps, err := json.Marshal(m.Steps)
	require.NoError(t, err)
	validation, err := json.Marshal(m.ValidationData)
	require.NoError(t, err)
	return pgxmock.NewRows(missionCols()).AddRow(
		m.ID, m.CampaignID, m.Sequence, m.MissionType, m.Title, m.Description, m.Reward, steps,
		m.ValidationMethod, validation, m.TotalLimit, m.AcceptedCount, m.CompletedCount,
		m.IsActive, m.CreatedAt,
	)
}

func TestMissionRepo_CreateBatch_SkipsExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)
	campaignID := uuid.New()
	missions := []domain.Mission{newTestMission(campaignID, 0), newTestMission(campaignID, 1)}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO missions .+ ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(missions[0].ID, campaignID, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(5000), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), 3, 0, 0, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO missions").
		WithArgs(missions[1].ID, campaignID, 1, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(5000), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), 3, 0, 0, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	inserted, err := repo.CreateBatch(context.Background(), tx, missions)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)
	m := newTestMission(uuid.New(), 0)

	mock.ExpectQuery("SELECT .+ FROM missions WHERE id = \\$1").
		WithArgs(m.ID).
		WillReturnRows(missionRow(t, m))

	result, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Steps, 2)
	assert.Equal(t, 22, result.TotalMinutes())
	assert.Equal(t, "District 1", result.ValidationData.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissionRepo_ListByCampaign(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)
	campaignID := uuid.New()
	first, second := newTestMission(campaignID, 0), newTestMission(campaignID, 1)

	rows := missionRow(t, first)
	steps, _ := json.Marshal(second.Steps)
	validation, _ := json.Marshal(second.ValidationData)
	rows.AddRow(second.ID, second.CampaignID, second.Sequence, second.MissionType, second.Title, second.Description,
		second.Reward, steps, second.ValidationMethod, validation, second.TotalLimit, second.AcceptedCount,
		second.CompletedCount, second.IsActive, second.CreatedAt)

	mock.ExpectQuery("SELECT .+ FROM missions WHERE campaign_id = \\$1 ORDER BY sequence").
		WithArgs(campaignID).
		WillReturnRows(rows)

	missions, err := repo.ListByCampaign(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, missions, 2)
	assert.Equal(t, 1, missions[1].Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissionRepo_ReserveSlot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)
	m := newTestMission(uuid.New(), 0)
	m.AcceptedCount = 1

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE missions SET accepted_count = accepted_count \\+ 1 WHERE id = \\$1 AND is_active AND accepted_count < total_limit RETURNING").
		WithArgs(m.ID).
		WillReturnRows(missionRow(t, m))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ReserveSlot(context.Background(), tx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.AcceptedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissionRepo_ReserveSlot_Full(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE missions SET accepted_count").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(missionCols()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ReserveSlot(context.Background(), tx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestMissionRepo_UpdateDetailsByCampaign(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)
	campaignID := uuid.New()
	details := domain.MissionDetails{
		Title:          "Check in at Cafe Sua",
		Description:    "Grand opening",
		ValidationData: domain.ValidationData{Method: domain.ValidationScreenshot, Location: "District 3"},
	}
	validation, err := json.Marshal(details.ValidationData)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE missions SET title = \\$1, description = \\$2, validation_data = \\$3\\s+WHERE campaign_id = \\$4").
		WithArgs("Check in at Cafe Sua", "Grand opening", validation, campaignID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	updated, err := repo.UpdateDetailsByCampaign(context.Background(), tx, campaignID, details)
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissionRepo_Mutations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMissionRepo(mock)
	campaignID := uuid.New()
	missionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE missions SET is_active = \\$1 WHERE campaign_id = \\$2").
		WithArgs(true, campaignID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec("UPDATE missions SET completed_count = completed_count \\+ 1 WHERE id = \\$1").
		WithArgs(missionID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE missions SET accepted_count = accepted_count - 1 WHERE id = \\$1 AND accepted_count > 0").
		WithArgs(missionID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM missions WHERE campaign_id = \\$1").
		WithArgs(campaignID).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.SetActiveByCampaign(context.Background(), tx, campaignID, true))
	require.NoError(t, repo.IncrementCompleted(context.Background(), tx, missionID))
	require.NoError(t, repo.ReleaseSlot(context.Background(), tx, missionID))
	deleted, err := repo.DeleteByCampaign(context.Background(), tx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
