package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, from_type, from_id, to_type, to_id, amount, currency,
		transaction_type, status, reference_id, metadata, created_at, processed_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal transaction metadata: %w", err)
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.From.Type, t.From.ID, t.To.Type, t.To.ID,
		t.Amount, t.Currency, t.TransactionType, t.Status,
		t.ReferenceID, metadata, t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// UpdateStatus moves a transaction from one status to another only if it is
// still in the expected source status.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	query := `UPDATE transactions SET status = $1, processed_at = $2 WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List fetches the transactions a party took part in, newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	conditions := []string{"((from_type = $1 AND from_id = $2) OR (to_type = $1 AND to_id = $2))"}
	args := []any{params.Party.Type, params.Party.ID}
	argIdx := 3

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("transaction_type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// CampaignTotals sums the completed entries that moved money into or out of
// a campaign budget.
func (r *TransactionRepo) CampaignTotals(ctx context.Context, campaignID uuid.UUID) (*ports.CampaignTotals, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'campaign_fund'), 0)::BIGINT AS funded,
		COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'campaign_refund'), 0)::BIGINT AS refunded,
		COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'mission_reward'), 0)::BIGINT AS user_payouts,
		COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'platform_commission'), 0)::BIGINT AS platform_fees,
		COUNT(*) FILTER (WHERE transaction_type = 'mission_reward') AS rewards
		FROM transactions
		WHERE status = 'completed'
		  AND ((from_type = 'campaign' AND from_id = $1) OR (to_type = 'campaign' AND to_id = $1))`

	totals := &ports.CampaignTotals{}
	err := r.pool.QueryRow(ctx, query, campaignID).Scan(
		&totals.Funded, &totals.Refunded, &totals.UserPayouts, &totals.PlatformFees, &totals.Rewards,
	)
	if err != nil {
		return nil, fmt.Errorf("campaign totals: %w", err)
	}
	return totals, nil
}

// scanTransaction returns nil, nil when the row does not exist.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var metadata []byte
	err := row.Scan(
		&t.ID, &t.From.Type, &t.From.ID, &t.To.Type, &t.To.ID,
		&t.Amount, &t.Currency, &t.TransactionType, &t.Status,
		&t.ReferenceID, &metadata, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return t, nil
}
