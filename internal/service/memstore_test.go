package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memStore is an in-memory stand-in for Postgres used by the end-to-end
// ledger tests. Transactions are serialized on txMu and roll back to a
// snapshot taken at Begin. Reads outside a transaction only take dataMu.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	wallets       map[domain.OwnerRef]domain.Wallet
	transactions  map[uuid.UUID]domain.Transaction
	txOrder       []uuid.UUID
	campaigns     map[uuid.UUID]domain.Campaign
	missions      map[uuid.UUID]domain.Mission
	actions       map[uuid.UUID]domain.UserAction
	businesses    map[uuid.UUID]domain.Business
	notifications map[uuid.UUID]domain.Notification
	idempotency   map[string]domain.IdempotencyLog
}

type memSnapshot struct {
	wallets       map[domain.OwnerRef]domain.Wallet
	transactions  map[uuid.UUID]domain.Transaction
	txOrder       []uuid.UUID
	campaigns     map[uuid.UUID]domain.Campaign
	missions      map[uuid.UUID]domain.Mission
	actions       map[uuid.UUID]domain.UserAction
	businesses    map[uuid.UUID]domain.Business
	notifications map[uuid.UUID]domain.Notification
	idempotency   map[string]domain.IdempotencyLog
}

func newMemStore() *memStore {
	return &memStore{
		wallets:       map[domain.OwnerRef]domain.Wallet{},
		transactions:  map[uuid.UUID]domain.Transaction{},
		campaigns:     map[uuid.UUID]domain.Campaign{},
		missions:      map[uuid.UUID]domain.Mission{},
		actions:       map[uuid.UUID]domain.UserAction{},
		businesses:    map[uuid.UUID]domain.Business{},
		notifications: map[uuid.UUID]domain.Notification{},
		idempotency:   map[string]domain.IdempotencyLog{},
	}
}

func (s *memStore) snapshot() memSnapshot {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return memSnapshot{
		wallets:       maps.Clone(s.wallets),
		transactions:  maps.Clone(s.transactions),
		txOrder:       append([]uuid.UUID(nil), s.txOrder...),
		campaigns:     maps.Clone(s.campaigns),
		missions:      maps.Clone(s.missions),
		actions:       maps.Clone(s.actions),
		businesses:    maps.Clone(s.businesses),
		notifications: maps.Clone(s.notifications),
		idempotency:   maps.Clone(s.idempotency),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.wallets = snap.wallets
	s.transactions = snap.transactions
	s.txOrder = snap.txOrder
	s.campaigns = snap.campaigns
	s.missions = snap.missions
	s.actions = snap.actions
	s.businesses = snap.businesses
	s.notifications = snap.notifications
	s.idempotency = snap.idempotency
}

// with runs fn under the data lock.
func (s *memStore) with(fn func()) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	fn()
}

// --- transactor ---

type memTx struct {
	pgx.Tx
	store *memStore
	snap  memSnapshot
	done  bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.txMu.Unlock()
	return nil
}

type memTransactor struct{ store *memStore }

func (m memTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	m.store.txMu.Lock()
	return &memTx{store: m.store, snap: m.store.snapshot()}, nil
}

// --- wallets ---

type memWalletRepo struct{ s *memStore }

func (r memWalletRepo) Create(_ context.Context, _ pgx.Tx, w *domain.Wallet) error {
	r.s.with(func() {
		if _, ok := r.s.wallets[w.Owner()]; !ok {
			r.s.wallets[w.Owner()] = *w
		}
	})
	return nil
}

func (r memWalletRepo) GetByOwner(_ context.Context, owner domain.OwnerRef) (*domain.Wallet, error) {
	var out *domain.Wallet
	r.s.with(func() {
		if w, ok := r.s.wallets[owner]; ok {
			out = &w
		}
	})
	return out, nil
}

func (r memWalletRepo) GetByOwnerForUpdate(ctx context.Context, _ pgx.Tx, owner domain.OwnerRef) (*domain.Wallet, error) {
	return r.GetByOwner(ctx, owner)
}

func (r memWalletRepo) Adjust(_ context.Context, _ pgx.Tx, owner domain.OwnerRef, delta domain.WalletDelta) (*domain.Wallet, error) {
	var out *domain.Wallet
	r.s.with(func() {
		w, ok := r.s.wallets[owner]
		if !ok || w.Balance+delta.Balance < 0 || w.FrozenBalance+delta.Frozen < 0 {
			return
		}
		w.Balance += delta.Balance
		w.FrozenBalance += delta.Frozen
		w.UpdatedAt = time.Now().UTC()
		r.s.wallets[owner] = w
		out = &w
	})
	return out, nil
}

func (r memWalletRepo) SumHoldings(_ context.Context) (int64, error) {
	var total int64
	r.s.with(func() {
		for _, w := range r.s.wallets {
			total += w.Holdings()
		}
	})
	return total, nil
}

// --- transactions ---

type memTxRepo struct{ s *memStore }

func (r memTxRepo) Create(_ context.Context, _ pgx.Tx, txn *domain.Transaction) error {
	r.s.with(func() {
		r.s.transactions[txn.ID] = *txn
		r.s.txOrder = append(r.s.txOrder, txn.ID)
	})
	return nil
}

func (r memTxRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	r.s.with(func() {
		if t, ok := r.s.transactions[id]; ok {
			out = &t
		}
	})
	return out, nil
}

func (r memTxRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	var ok bool
	r.s.with(func() {
		t, found := r.s.transactions[id]
		if !found || t.Status != from {
			return
		}
		now := time.Now().UTC()
		t.Status = to
		t.ProcessedAt = &now
		r.s.transactions[id] = t
		ok = true
	})
	return ok, nil
}

func (r memTxRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var matched []domain.Transaction
	r.s.with(func() {
		for i := len(r.s.txOrder) - 1; i >= 0; i-- {
			t := r.s.transactions[r.s.txOrder[i]]
			if t.Involves(params.Party) {
				matched = append(matched, t)
			}
		}
	})
	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := min(start+params.PageSize, len(matched))
	return matched[start:end], total, nil
}

func (r memTxRepo) CampaignTotals(_ context.Context, campaignID uuid.UUID) (*ports.CampaignTotals, error) {
	totals := &ports.CampaignTotals{}
	r.s.with(func() {
		for _, t := range r.s.transactions {
			if t.Metadata.CampaignID == nil || *t.Metadata.CampaignID != campaignID || t.Status != domain.TransactionStatusCompleted {
				continue
			}
			switch t.TransactionType {
			case domain.TransactionTypeCampaignFund:
				totals.Funded += t.Amount
			case domain.TransactionTypeCampaignRefund:
				totals.Refunded += t.Amount
			case domain.TransactionTypeMissionReward:
				totals.UserPayouts += t.Amount
				totals.Rewards++
			case domain.TransactionTypePlatformCommission:
				totals.PlatformFees += t.Amount
			}
		}
	})
	return totals, nil
}

// --- campaigns ---

type memCampaignRepo struct{ s *memStore }

func (r memCampaignRepo) Create(_ context.Context, _ pgx.Tx, c *domain.Campaign) error {
	r.s.with(func() { r.s.campaigns[c.ID] = *c })
	return nil
}

func (r memCampaignRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var out *domain.Campaign
	r.s.with(func() {
		if c, ok := r.s.campaigns[id]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r memCampaignRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Campaign, error) {
	return r.GetByID(ctx, id)
}

func (r memCampaignRepo) UpdateDetails(_ context.Context, _ pgx.Tx, c *domain.Campaign) error {
	r.s.with(func() { r.s.campaigns[c.ID] = *c })
	return nil
}

func (r memCampaignRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, from, to domain.CampaignStatus) (bool, error) {
	var ok bool
	r.s.with(func() {
		c, found := r.s.campaigns[id]
		if !found || c.Status != from {
			return
		}
		c.Status = to
		r.s.campaigns[id] = c
		ok = true
	})
	return ok, nil
}

func (r memCampaignRepo) RecordSpend(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (*domain.Campaign, error) {
	var out *domain.Campaign
	r.s.with(func() {
		c, found := r.s.campaigns[id]
		if !found || c.Spent+amount > c.Budget {
			return
		}
		c.Spent += amount
		c.CompletedActions++
		r.s.campaigns[id] = c
		out = &c
	})
	return out, nil
}

func (r memCampaignRepo) Delete(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	r.s.with(func() { delete(r.s.campaigns, id) })
	return nil
}

func (r memCampaignRepo) ListByBusiness(_ context.Context, businessID uuid.UUID) ([]domain.Campaign, error) {
	var out []domain.Campaign
	r.s.with(func() {
		for _, c := range r.s.campaigns {
			if c.BusinessID == businessID {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- missions ---

type memMissionRepo struct{ s *memStore }

func (r memMissionRepo) CreateBatch(_ context.Context, _ pgx.Tx, missions []domain.Mission) (int64, error) {
	var created int64
	r.s.with(func() {
		for _, m := range missions {
			if _, ok := r.s.missions[m.ID]; ok {
				continue
			}
			r.s.missions[m.ID] = m
			created++
		}
	})
	return created, nil
}

func (r memMissionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Mission, error) {
	var out *domain.Mission
	r.s.with(func() {
		if m, ok := r.s.missions[id]; ok {
			out = &m
		}
	})
	return out, nil
}

func (r memMissionRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]domain.Mission, error) {
	var out []domain.Mission
	r.s.with(func() {
		for _, m := range r.s.missions {
			if m.CampaignID == campaignID {
				out = append(out, m)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r memMissionRepo) SetActiveByCampaign(_ context.Context, _ pgx.Tx, campaignID uuid.UUID, active bool) error {
	r.s.with(func() {
		for id, m := range r.s.missions {
			if m.CampaignID == campaignID {
				m.IsActive = active
				r.s.missions[id] = m
			}
		}
	})
	return nil
}

func (r memMissionRepo) ReserveSlot(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Mission, error) {
	var out *domain.Mission
	r.s.with(func() {
		m, ok := r.s.missions[id]
		if !ok || !m.IsActive || !m.HasCapacity() {
			return
		}
		m.AcceptedCount++
		r.s.missions[id] = m
		out = &m
	})
	return out, nil
}

func (r memMissionRepo) ReleaseSlot(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	r.s.with(func() {
		if m, ok := r.s.missions[id]; ok && m.AcceptedCount > 0 {
			m.AcceptedCount--
			r.s.missions[id] = m
		}
	})
	return nil
}

func (r memMissionRepo) IncrementCompleted(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	r.s.with(func() {
		if m, ok := r.s.missions[id]; ok {
			m.CompletedCount++
			r.s.missions[id] = m
		}
	})
	return nil
}

func (r memMissionRepo) UpdateDetailsByCampaign(_ context.Context, _ pgx.Tx, campaignID uuid.UUID, d domain.MissionDetails) (int64, error) {
	var n int64
	r.s.with(func() {
		for id, m := range r.s.missions {
			if m.CampaignID == campaignID {
				m.Title = d.Title
				m.Description = d.Description
				m.ValidationData = d.ValidationData
				r.s.missions[id] = m
				n++
			}
		}
	})
	return n, nil
}

func (r memMissionRepo) DeleteByCampaign(_ context.Context, _ pgx.Tx, campaignID uuid.UUID) (int64, error) {
	var n int64
	r.s.with(func() {
		for id, m := range r.s.missions {
			if m.CampaignID == campaignID {
				delete(r.s.missions, id)
				n++
			}
		}
	})
	return n, nil
}

// --- actions ---

type memActionRepo struct{ s *memStore }

func (r memActionRepo) blocking(userID, missionID uuid.UUID) bool {
	for _, a := range r.s.actions {
		if a.UserID == userID && a.MissionID == missionID && a.Status.BlocksNewAttempt() {
			return true
		}
	}
	return false
}

func (r memActionRepo) Create(_ context.Context, _ pgx.Tx, a *domain.UserAction) error {
	var err error
	r.s.with(func() {
		if r.blocking(a.UserID, a.MissionID) {
			err = fmt.Errorf("insert user action: %w", domain.ErrConflict)
			return
		}
		r.s.actions[a.ID] = *a
	})
	return err
}

func (r memActionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.UserAction, error) {
	var out *domain.UserAction
	r.s.with(func() {
		if a, ok := r.s.actions[id]; ok {
			out = &a
		}
	})
	return out, nil
}

func (r memActionRepo) HasBlocking(_ context.Context, _ pgx.Tx, userID, missionID uuid.UUID) (bool, error) {
	var found bool
	r.s.with(func() { found = r.blocking(userID, missionID) })
	return found, nil
}

func (r memActionRepo) Transition(_ context.Context, _ pgx.Tx, t domain.ActionTransition) (*domain.UserAction, error) {
	var out *domain.UserAction
	r.s.with(func() {
		a, ok := r.s.actions[t.ActionID]
		if !ok || a.Status != t.From {
			return
		}
		now := time.Now().UTC()
		a.Status = t.To
		a.UpdatedAt = now
		switch t.To {
		case domain.ActionStatusInProgress:
			a.StartedAt = &now
		case domain.ActionStatusCompleted:
			a.SubmittedAt = &now
		case domain.ActionStatusVerified, domain.ActionStatusRejected:
			a.ReviewedAt = &now
		}
		if t.ProofPatch != nil {
			merged := maps.Clone(a.ProofData)
			if merged == nil {
				merged = map[string]any{}
			}
			maps.Copy(merged, t.ProofPatch)
			a.ProofData = merged
		}
		r.s.actions[t.ActionID] = a
		out = &a
	})
	return out, nil
}

func (r memActionRepo) CountByStatus(_ context.Context, campaignID uuid.UUID) (map[domain.ActionStatus]int64, error) {
	counts := map[domain.ActionStatus]int64{}
	r.s.with(func() {
		for _, a := range r.s.actions {
			if a.CampaignID == campaignID {
				counts[a.Status]++
			}
		}
	})
	return counts, nil
}

// --- businesses, notifications, idempotency ---

type memBusinessRepo struct{ s *memStore }

func (r memBusinessRepo) Create(_ context.Context, _ pgx.Tx, b *domain.Business) error {
	r.s.with(func() { r.s.businesses[b.ID] = *b })
	return nil
}

func (r memBusinessRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Business, error) {
	var out *domain.Business
	r.s.with(func() {
		if b, ok := r.s.businesses[id]; ok {
			out = &b
		}
	})
	return out, nil
}

func (r memBusinessRepo) GetByAccountID(_ context.Context, accountID uuid.UUID) (*domain.Business, error) {
	var out *domain.Business
	r.s.with(func() {
		for _, b := range r.s.businesses {
			if b.AccountID == accountID {
				out = &b
				return
			}
		}
	})
	return out, nil
}

func (r memBusinessRepo) AdjustCampaignCount(_ context.Context, _ pgx.Tx, id uuid.UUID, delta int) error {
	r.s.with(func() {
		if b, ok := r.s.businesses[id]; ok {
			b.CampaignCount += delta
			r.s.businesses[id] = b
		}
	})
	return nil
}

type memNotificationRepo struct{ s *memStore }

func (r memNotificationRepo) Create(_ context.Context, _ pgx.Tx, n *domain.Notification) error {
	r.s.with(func() { r.s.notifications[n.ID] = *n })
	return nil
}

func (r memNotificationRepo) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	r.s.with(func() {
		for _, n := range r.s.notifications {
			if n.Status == domain.NotificationStatusPending && !n.NextAttemptAt.After(now) {
				out = append(out, n)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memNotificationRepo) Update(_ context.Context, n *domain.Notification) error {
	r.s.with(func() { r.s.notifications[n.ID] = *n })
	return nil
}

type memIdempotencyRepo struct{ s *memStore }

func (r memIdempotencyRepo) Create(_ context.Context, _ pgx.Tx, l *domain.IdempotencyLog) error {
	var err error
	r.s.with(func() {
		if _, ok := r.s.idempotency[l.Key]; ok {
			err = fmt.Errorf("insert idempotency log: %w", domain.ErrConflict)
			return
		}
		r.s.idempotency[l.Key] = *l
	})
	return err
}

func (r memIdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	var out *domain.IdempotencyLog
	r.s.with(func() {
		if l, ok := r.s.idempotency[key]; ok {
			out = &l
		}
	})
	return out, nil
}

// memCache never holds anything, so every lookup falls through to the DB layer.
type memCache struct{}

func (memCache) Get(context.Context, string) ([]byte, error)              { return nil, nil }
func (memCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
