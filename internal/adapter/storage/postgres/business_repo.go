package postgres

import (
	"context"
	"errors"
	"fmt"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const businessColumns = `id, account_id, name, campaign_count, created_at, updated_at`

// BusinessRepo implements ports.BusinessRepository.
type BusinessRepo struct {
	pool Pool
}

func NewBusinessRepo(pool Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

func (r *BusinessRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Business) error {
	query := `INSERT INTO businesses (` + businessColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, b.ID, b.AccountID, b.Name, b.CampaignCount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

func (r *BusinessRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	return r.getOne(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
}

func (r *BusinessRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Business, error) {
	return r.getOne(ctx, `SELECT `+businessColumns+` FROM businesses WHERE account_id = $1`, accountID)
}

// AdjustCampaignCount adds delta to the business's campaign counter.
func (r *BusinessRepo) AdjustCampaignCount(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	query := `UPDATE businesses SET campaign_count = campaign_count + $1, updated_at = NOW()
		WHERE id = $2 AND campaign_count + $1 >= 0`

	tag, err := tx.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("adjust campaign count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjust campaign count: business %s not updated", id)
	}
	return nil
}

func (r *BusinessRepo) getOne(ctx context.Context, query string, arg any) (*domain.Business, error) {
	b := &domain.Business{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(&b.ID, &b.AccountID, &b.Name, &b.CampaignCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}
