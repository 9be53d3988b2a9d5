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

const campaignColumns = `id, business_id, title, description, campaign_type, budget, spent,
		reward_per_action, total_actions, completed_actions, requirements, tags, status,
		start_date, end_date, created_at, updated_at`

// CampaignRepo implements ports.CampaignRepository.
type CampaignRepo struct {
	pool Pool
}

func NewCampaignRepo(pool Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

// Create inserts a campaign within a database transaction.
func (r *CampaignRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Campaign) error {
	requirements, err := json.Marshal(c.Requirements)
	if err != nil {
		return fmt.Errorf("marshal campaign requirements: %w", err)
	}

	query := `INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.BusinessID, c.Title, c.Description, c.CampaignType, c.Budget, c.Spent,
		c.RewardPerAction, c.TotalActions, c.CompletedActions, requirements, c.Tags, c.Status,
		c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return c, nil
}

// GetByIDForUpdate locks the campaign row until the transaction ends.
func (r *CampaignRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 FOR UPDATE`

	c, err := scanCampaign(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get campaign for update: %w", err)
	}
	return c, nil
}

// UpdateDetails writes the editable, non-financial fields.
func (r *CampaignRepo) UpdateDetails(ctx context.Context, tx pgx.Tx, c *domain.Campaign) error {
	requirements, err := json.Marshal(c.Requirements)
	if err != nil {
		return fmt.Errorf("marshal campaign requirements: %w", err)
	}

	query := `UPDATE campaigns
		SET title = $1, description = $2, requirements = $3, tags = $4, end_date = $5, updated_at = NOW()
		WHERE id = $6`

	_, err = tx.Exec(ctx, query, c.Title, c.Description, requirements, c.Tags, c.EndDate, c.ID)
	if err != nil {
		return fmt.Errorf("update campaign details: %w", err)
	}
	return nil
}

// UpdateStatus only succeeds while the stored status still equals from.
func (r *CampaignRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.CampaignStatus) (bool, error) {
	query := `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update campaign status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordSpend is the budget guard: the row is only touched when the new
// spent amount stays within budget.
func (r *CampaignRepo) RecordSpend(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (*domain.Campaign, error) {
	query := `UPDATE campaigns
		SET spent = spent + $2, completed_actions = completed_actions + 1, updated_at = NOW()
		WHERE id = $1 AND spent + $2 <= budget
		RETURNING ` + campaignColumns

	c, err := scanCampaign(tx.QueryRow(ctx, query, id, amount))
	if err != nil {
		return nil, fmt.Errorf("record campaign spend: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE business_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}
	return campaigns, nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var requirements []byte
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.Title, &c.Description, &c.CampaignType, &c.Budget, &c.Spent,
		&c.RewardPerAction, &c.TotalActions, &c.CompletedActions, &requirements, &c.Tags, &c.Status,
		&c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &c.Requirements); err != nil {
			return nil, fmt.Errorf("decode campaign requirements: %w", err)
		}
	}
	return c, nil
}
