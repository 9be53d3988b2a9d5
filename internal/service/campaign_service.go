package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// campaignCloser completes a campaign: it releases the unspent budget to
// the business, deactivates the missions and notifies the business. Both
// the manual status change and auto-completion after a payout use it.
type campaignCloser struct {
	campaignRepo ports.CampaignRepository
	missionRepo  ports.MissionRepository
	notifRepo    ports.NotificationRepository
	ledger       ports.Ledger
}

// complete must run under the campaign's row lock. c is updated in place.
func (cl campaignCloser) complete(ctx context.Context, tx pgx.Tx, c *domain.Campaign) error {
	from := c.Status
	if !from.CanMoveTo(domain.CampaignStatusCompleted) {
		return apperror.ErrInvalidStateTransition("campaign", string(from), string(domain.CampaignStatusCompleted))
	}

	ok, err := cl.campaignRepo.UpdateStatus(ctx, tx, c.ID, from, domain.CampaignStatusCompleted)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("complete campaign: %w", err))
	}
	if !ok {
		return apperror.ErrInvalidStateTransition("campaign", string(from), string(domain.CampaignStatusCompleted))
	}

	refunded := c.Remaining()
	if _, err := cl.ledger.RefundCampaign(ctx, tx, c, refunded); err != nil {
		return err
	}

	if err := cl.missionRepo.SetActiveByCampaign(ctx, tx, c.ID, false); err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate missions: %w", err))
	}

	payload := CampaignCompletedPayload{
		CampaignID:       c.ID,
		Budget:           c.Budget,
		Spent:            c.Spent,
		Refunded:         refunded,
		CompletedActions: c.CompletedActions,
	}
	if err := enqueueNotification(ctx, tx, cl.notifRepo, domain.BusinessOwner(c.BusinessID),
		domain.EventCampaignCompleted, payload); err != nil {
		return err
	}

	c.Status = domain.CampaignStatusCompleted
	return nil
}

// CampaignServiceImpl implements ports.CampaignService.
type CampaignServiceImpl struct {
	campaignRepo ports.CampaignRepository
	missionRepo  ports.MissionRepository
	businessRepo ports.BusinessRepository
	ledger       ports.Ledger
	factory      *MissionFactory
	transactor   ports.DBTransactor
	closer       campaignCloser
	minBudget    int64
	log          zerolog.Logger
}

// NewCampaignService creates a new CampaignServiceImpl.
func NewCampaignService(
	campaignRepo ports.CampaignRepository,
	missionRepo ports.MissionRepository,
	businessRepo ports.BusinessRepository,
	notifRepo ports.NotificationRepository,
	ledger ports.Ledger,
	factory *MissionFactory,
	transactor ports.DBTransactor,
	minBudget int64,
	log zerolog.Logger,
) *CampaignServiceImpl {
	return &CampaignServiceImpl{
		campaignRepo: campaignRepo,
		missionRepo:  missionRepo,
		businessRepo: businessRepo,
		ledger:       ledger,
		factory:      factory,
		transactor:   transactor,
		closer: campaignCloser{
			campaignRepo: campaignRepo,
			missionRepo:  missionRepo,
			notifRepo:    notifRepo,
			ledger:       ledger,
		},
		minBudget: minBudget,
		log:       log,
	}
}

// CreateCampaign freezes the budget, stores the campaign and its missions
// and bumps the business's campaign count in one database transaction.
func (s *CampaignServiceImpl) CreateCampaign(ctx context.Context, caller domain.Caller, params ports.CreateCampaignParams) (*domain.Campaign, error) {
	businessID, ok := caller.Business()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}

	now := time.Now().UTC()
	if params.StartDate.IsZero() {
		params.StartDate = now
	}
	if err := s.validateCreate(params); err != nil {
		return nil, err
	}

	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get business: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}

	status := domain.CampaignStatusActive
	if params.Draft {
		status = domain.CampaignStatusDraft
	}

	c := &domain.Campaign{
		ID:              uuid.New(),
		BusinessID:      businessID,
		Title:           strings.TrimSpace(params.Title),
		Description:     params.Description,
		CampaignType:    params.CampaignType,
		Budget:          params.Budget,
		RewardPerAction: params.RewardPerAction,
		TotalActions:    params.TotalActions,
		Requirements:    params.Requirements,
		Tags:            params.Tags,
		Status:          status,
		StartDate:       params.StartDate,
		EndDate:         params.EndDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Freeze first: an underfunded business fails before anything is written.
	if _, err := s.ledger.FundCampaign(ctx, dbTx, c); err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, dbTx, c); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create campaign: %w", err))
	}

	missions := s.factory.Generate(c, now)
	if len(missions) > 0 {
		if _, err := s.missionRepo.CreateBatch(ctx, dbTx, missions); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create missions: %w", err))
		}
	}

	if err := s.businessRepo.AdjustCampaignCount(ctx, dbTx, businessID, 1); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("increment campaign count: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("campaign_id", c.ID.String()).
		Str("business_id", businessID.String()).
		Int64("budget", c.Budget).
		Int("missions", len(missions)).
		Str("status", string(c.Status)).
		Msg("campaign created")

	return c, nil
}

func (s *CampaignServiceImpl) validateCreate(params ports.CreateCampaignParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return apperror.Validation("title is required")
	}
	if params.Budget < s.minBudget {
		return apperror.Validation(fmt.Sprintf("budget must be at least %d", s.minBudget))
	}
	if params.RewardPerAction <= 0 {
		return apperror.Validation("reward_per_action must be greater than zero")
	}
	if params.TotalActions <= 0 {
		return apperror.Validation("total_actions must be greater than zero")
	}
	if params.TotalActions > MaxPayoutCapacity {
		return apperror.Validation(fmt.Sprintf("total_actions must be at most %d", MaxPayoutCapacity))
	}
	if params.Budget/params.RewardPerAction > MaxPayoutCapacity {
		return apperror.Validation(fmt.Sprintf("budget allows more than %d rewards; raise reward_per_action", MaxPayoutCapacity))
	}
	if params.EndDate != nil && !params.EndDate.After(params.StartDate) {
		return apperror.Validation("end_date must be after start_date")
	}
	return nil
}

// DeleteCampaign removes a draft campaign and returns its unspent budget.
func (s *CampaignServiceImpl) DeleteCampaign(ctx context.Context, campaignID uuid.UUID, caller domain.Caller) error {
	businessID, ok := caller.Business()
	if !ok {
		return apperror.ErrForbiddenRole()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.lockOwned(ctx, dbTx, campaignID, businessID)
	if err != nil {
		return err
	}
	if c.Status != domain.CampaignStatusDraft {
		return apperror.ErrInvalidStateTransition("campaign", string(c.Status), "deleted")
	}

	refunded := c.Remaining()
	if _, err := s.ledger.RefundCampaign(ctx, dbTx, c, refunded); err != nil {
		return err
	}

	if _, err := s.missionRepo.DeleteByCampaign(ctx, dbTx, c.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete missions: %w", err))
	}
	if err := s.campaignRepo.Delete(ctx, dbTx, c.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete campaign: %w", err))
	}
	if err := s.businessRepo.AdjustCampaignCount(ctx, dbTx, businessID, -1); err != nil {
		return apperror.InternalError(fmt.Errorf("decrement campaign count: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("campaign_id", c.ID.String()).
		Int64("refunded", refunded).
		Msg("campaign deleted")

	return nil
}

// UpdateCampaign applies detail edits (draft only) and status changes.
func (s *CampaignServiceImpl) UpdateCampaign(ctx context.Context, campaignID uuid.UUID, caller domain.Caller, patch ports.CampaignPatch) (*domain.Campaign, error) {
	businessID, ok := caller.Business()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}
	if patch.Budget != nil || patch.RewardPerAction != nil {
		return nil, apperror.Validation("budget and reward_per_action cannot change after funding")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.lockOwned(ctx, dbTx, campaignID, businessID)
	if err != nil {
		return nil, err
	}

	if hasDetailChanges(patch) {
		if err := s.applyDetails(ctx, dbTx, c, patch); err != nil {
			return nil, err
		}
	}

	if patch.Status != nil && *patch.Status != c.Status {
		if err := s.changeStatus(ctx, dbTx, c, *patch.Status); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("campaign_id", c.ID.String()).
		Str("status", string(c.Status)).
		Msg("campaign updated")

	return c, nil
}

func hasDetailChanges(p ports.CampaignPatch) bool {
	return p.Title != nil || p.Description != nil || p.Requirements != nil || p.Tags != nil || p.EndDate != nil
}

func (s *CampaignServiceImpl) applyDetails(ctx context.Context, tx pgx.Tx, c *domain.Campaign, patch ports.CampaignPatch) error {
	if c.Status != domain.CampaignStatusDraft {
		return apperror.ErrNotEditable("campaign", string(c.Status))
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return apperror.Validation("title is required")
		}
		c.Title = title
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Requirements != nil {
		c.Requirements = *patch.Requirements
	}
	if patch.Tags != nil {
		c.Tags = patch.Tags
	}
	if patch.EndDate != nil {
		if !patch.EndDate.After(c.StartDate) {
			return apperror.Validation("end_date must be after start_date")
		}
		c.EndDate = patch.EndDate
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.campaignRepo.UpdateDetails(ctx, tx, c); err != nil {
		return apperror.InternalError(fmt.Errorf("update campaign: %w", err))
	}

	// Budget and reward are immutable, so the generated rows keep their ids
	// and limits and only the derived texts change.
	if _, err := s.missionRepo.UpdateDetailsByCampaign(ctx, tx, c.ID, s.factory.Details(c)); err != nil {
		return apperror.InternalError(fmt.Errorf("update missions: %w", err))
	}
	return nil
}

func (s *CampaignServiceImpl) changeStatus(ctx context.Context, tx pgx.Tx, c *domain.Campaign, to domain.CampaignStatus) error {
	if !c.Status.CanMoveTo(to) {
		return apperror.ErrInvalidStateTransition("campaign", string(c.Status), string(to))
	}
	if to == domain.CampaignStatusCompleted {
		return s.closer.complete(ctx, tx, c)
	}

	ok, err := s.campaignRepo.UpdateStatus(ctx, tx, c.ID, c.Status, to)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("update campaign status: %w", err))
	}
	if !ok {
		return apperror.ErrInvalidStateTransition("campaign", string(c.Status), string(to))
	}

	if err := s.missionRepo.SetActiveByCampaign(ctx, tx, c.ID, to == domain.CampaignStatusActive); err != nil {
		return apperror.InternalError(fmt.Errorf("update missions: %w", err))
	}

	c.Status = to
	return nil
}

// lockOwned loads the campaign FOR UPDATE and checks it belongs to businessID.
func (s *CampaignServiceImpl) lockOwned(ctx context.Context, tx pgx.Tx, campaignID, businessID uuid.UUID) (*domain.Campaign, error) {
	c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock campaign: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("campaign")
	}
	if !c.IsOwnedBy(businessID) {
		return nil, apperror.ErrUnauthorized("campaign")
	}
	return c, nil
}

func (s *CampaignServiceImpl) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get campaign: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("campaign")
	}
	return c, nil
}

// ListCampaigns returns the caller's own campaigns, newest first.
func (s *CampaignServiceImpl) ListCampaigns(ctx context.Context, caller domain.Caller) ([]domain.Campaign, error) {
	businessID, ok := caller.Business()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}

	campaigns, err := s.campaignRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list campaigns: %w", err))
	}
	return campaigns, nil
}

func (s *CampaignServiceImpl) ListMissions(ctx context.Context, campaignID uuid.UUID) ([]domain.Mission, error) {
	if _, err := s.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	missions, err := s.missionRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list missions: %w", err))
	}
	return missions, nil
}
