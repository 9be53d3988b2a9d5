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

const actionColumns = `id, user_id, mission_id, campaign_id, status, amount, proof_data,
		started_at, submitted_at, reviewed_at, created_at, updated_at`

// actionTimestamps names the column stamped when an action enters a status.
var actionTimestamps = map[domain.ActionStatus]string{
	domain.ActionStatusInProgress: "started_at",
	domain.ActionStatusCompleted:  "submitted_at",
	domain.ActionStatusVerified:   "reviewed_at",
	domain.ActionStatusRejected:   "reviewed_at",
}

// ActionRepo implements ports.ActionRepository.
type ActionRepo struct {
	pool Pool
}

func NewActionRepo(pool Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

// Create inserts an action. A second open action for the same user and
// mission returns domain.ErrConflict.
func (r *ActionRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.UserAction) error {
	proof, err := marshalProof(a.ProofData)
	if err != nil {
		return err
	}

	query := `INSERT INTO user_actions (` + actionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, query,
		a.ID, a.UserID, a.MissionID, a.CampaignID, a.Status, a.Amount, proof,
		a.StartedAt, a.SubmittedAt, a.ReviewedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user action: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert user action: %w", err)
	}
	return nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserAction, error) {
	query := `SELECT ` + actionColumns + ` FROM user_actions WHERE id = $1`

	a, err := scanAction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get user action by id: %w", err)
	}
	return a, nil
}

func (r *ActionRepo) HasBlocking(ctx context.Context, tx pgx.Tx, userID, missionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM user_actions WHERE user_id = $1 AND mission_id = $2 AND status <> 'rejected'
	)`

	var exists bool
	if err := tx.QueryRow(ctx, query, userID, missionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check open action: %w", err)
	}
	return exists, nil
}

// Transition moves the action only when it is still in t.From. Proof
// patches are merged into the stored JSON rather than replacing it.
func (r *ActionRepo) Transition(ctx context.Context, tx pgx.Tx, t domain.ActionTransition) (*domain.UserAction, error) {
	patch, err := marshalProof(t.ProofPatch)
	if err != nil {
		return nil, err
	}

	stamp := ""
	if col, ok := actionTimestamps[t.To]; ok {
		stamp = col + " = NOW(), "
	}

	query := `UPDATE user_actions
		SET status = $1, proof_data = COALESCE(proof_data, '{}'::jsonb) || $2::jsonb, ` + stamp + `updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING ` + actionColumns

	a, err := scanAction(tx.QueryRow(ctx, query, t.To, patch, t.ActionID, t.From))
	if err != nil {
		return nil, fmt.Errorf("transition user action: %w", err)
	}
	return a, nil
}

func (r *ActionRepo) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[domain.ActionStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM user_actions WHERE campaign_id = $1 GROUP BY status`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count actions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ActionStatus]int64)
	for rows.Next() {
		var status domain.ActionStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action counts: %w", err)
	}
	return counts, nil
}

func marshalProof(proof map[string]any) ([]byte, error) {
	if proof == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(proof)
	if err != nil {
		return nil, fmt.Errorf("marshal proof data: %w", err)
	}
	return b, nil
}

func scanAction(row pgx.Row) (*domain.UserAction, error) {
	a := &domain.UserAction{}
	var proof []byte
	err := row.Scan(
		&a.ID, &a.UserID, &a.MissionID, &a.CampaignID, &a.Status, &a.Amount, &proof,
		&a.StartedAt, &a.SubmittedAt, &a.ReviewedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(proof) > 0 {
		if err := json.Unmarshal(proof, &a.ProofData); err != nil {
			return nil, fmt.Errorf("decode proof data: %w", err)
		}
	}
	return a, nil
}
