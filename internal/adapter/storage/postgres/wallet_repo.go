package postgres

import (
	"context"
	"errors"
	"fmt"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, owner_type, owner_id, balance, frozen_balance, currency, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a wallet. An existing wallet for the same owner is kept.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_type, owner_id) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		w.ID, w.OwnerType, w.OwnerID, w.Balance, w.FrozenBalance,
		w.Currency, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByOwner fetches a wallet without locking.
func (r *WalletRepo) GetByOwner(ctx context.Context, owner domain.OwnerRef) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_type = $1 AND owner_id = $2`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, owner.Type, owner.ID))
	if err != nil {
		return nil, fmt.Errorf("get wallet by owner: %w", err)
	}
	return w, nil
}

// GetByOwnerForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_type = $1 AND owner_id = $2 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, owner.Type, owner.ID))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// Adjust adds delta to the wallet in one statement. The WHERE clause is the
// non-negativity guard; the row lock taken by UPDATE serializes concurrent
// adjustments of the same wallet.
func (r *WalletRepo) Adjust(ctx context.Context, tx pgx.Tx, owner domain.OwnerRef, delta domain.WalletDelta) (*domain.Wallet, error) {
	query := `UPDATE wallets
		SET balance = balance + $3, frozen_balance = frozen_balance + $4, updated_at = NOW()
		WHERE owner_type = $1 AND owner_id = $2
		  AND balance + $3 >= 0 AND frozen_balance + $4 >= 0
		RETURNING ` + walletColumns

	w, err := scanWallet(tx.QueryRow(ctx, query, owner.Type, owner.ID, delta.Balance, delta.Frozen))
	if err != nil {
		return nil, fmt.Errorf("adjust wallet %s: %w", owner, err)
	}
	return w, nil
}

// SumHoldings returns balance+frozen_balance summed over every wallet.
func (r *WalletRepo) SumHoldings(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(balance + frozen_balance), 0)::BIGINT FROM wallets`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum wallet holdings: %w", err)
	}
	return total, nil
}

// scanWallet returns nil, nil when the row does not exist.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerType, &w.OwnerID, &w.Balance, &w.FrozenBalance,
		&w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
