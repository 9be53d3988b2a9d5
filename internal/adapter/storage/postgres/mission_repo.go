package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const missionColumns = `id, campaign_id, sequence, mission_type, title, description, reward, steps,
		validation_method, validation_data, total_limit, accepted_count, completed_count,
		is_active, created_at`

// MissionRepo implements ports.MissionRepository.
type MissionRepo struct {
	pool Pool
}

func NewMissionRepo(pool Pool) *MissionRepo {
	return &MissionRepo{pool: pool}
}

// CreateBatch inserts the missions one statement at a time. Existing ids
// are skipped so a retried generation does not duplicate rows.
func (r *MissionRepo) CreateBatch(ctx context.Context, tx pgx.Tx, missions []domain.Mission) (int64, error) {
	query := `INSERT INTO missions (` + missionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`

	var inserted int64
	for i := range missions {
		m := &missions[i]
		steps, err := json.Marshal(m.Steps)
		if err != nil {
			return inserted, fmt.Errorf("marshal mission steps: %w", err)
		}
		validation, err := json.Marshal(m.ValidationData)
		if err != nil {
			return inserted, fmt.Errorf("marshal mission validation data: %w", err)
		}

		tag, err := tx.Exec(ctx, query,
			m.ID, m.CampaignID, m.Sequence, m.MissionType, m.Title, m.Description, m.Reward, steps,
			m.ValidationMethod, validation, m.TotalLimit, m.AcceptedCount, m.CompletedCount,
			m.IsActive, m.CreatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert mission %d: %w", m.Sequence, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (r *MissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = $1`

	m, err := scanMission(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get mission by id: %w", err)
	}
	return m, nil
}

func (r *MissionRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE campaign_id = $1 ORDER BY sequence`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	defer rows.Close()

	var missions []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mission row: %w", err)
		}
		missions = append(missions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mission rows: %w", err)
	}
	return missions, nil
}

func (r *MissionRepo) SetActiveByCampaign(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, active bool) error {
	_, err := tx.Exec(ctx, `UPDATE missions SET is_active = $1 WHERE campaign_id = $2`, active, campaignID)
	if err != nil {
		return fmt.Errorf("set missions active: %w", err)
	}
	return nil
}

// ReserveSlot takes one acceptance slot. The row lock it acquires
// serializes concurrent accepts of the same mission.
func (r *MissionRepo) ReserveSlot(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Mission, error) {
	query := `UPDATE missions SET accepted_count = accepted_count + 1
		WHERE id = $1 AND is_active AND accepted_count < total_limit
		RETURNING ` + missionColumns

	m, err := scanMission(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("reserve mission slot: %w", err)
	}
	return m, nil
}

// ReleaseSlot gives back a slot taken by an action that was rejected.
func (r *MissionRepo) ReleaseSlot(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE missions SET accepted_count = accepted_count - 1
		WHERE id = $1 AND accepted_count > 0`, id)
	if err != nil {
		return fmt.Errorf("release mission slot: %w", err)
	}
	return nil
}

func (r *MissionRepo) IncrementCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE missions SET completed_count = completed_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment mission completed: %w", err)
	}
	return nil
}

func (r *MissionRepo) UpdateDetailsByCampaign(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, details domain.MissionDetails) (int64, error) {
	validation, err := json.Marshal(details.ValidationData)
	if err != nil {
		return 0, fmt.Errorf("marshal mission validation data: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE missions SET title = $1, description = $2, validation_data = $3
		WHERE campaign_id = $4`, details.Title, details.Description, validation, campaignID)
	if err != nil {
		return 0, fmt.Errorf("update mission details: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MissionRepo) DeleteByCampaign(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM missions WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("delete missions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMission(row pgx.Row) (*domain.Mission, error) {
	m := &domain.Mission{}
	var steps, validation []byte
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.Sequence, &m.MissionType, &m.Title, &m.Description, &m.Reward, &steps,
		&m.ValidationMethod, &validation, &m.TotalLimit, &m.AcceptedCount, &m.CompletedCount,
		&m.IsActive, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &m.Steps); err != nil {
			return nil, fmt.Errorf("decode mission steps: %w", err)
		}
	}
	if len(validation) > 0 {
		if err := json.Unmarshal(validation, &m.ValidationData); err != nil {
			return nil, fmt.Errorf("decode mission validation data: %w", err)
		}
	}
	return m, nil
}
