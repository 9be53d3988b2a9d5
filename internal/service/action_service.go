package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ActionServiceImpl implements ports.ActionService.
type ActionServiceImpl struct {
	actionRepo   ports.ActionRepository
	missionRepo  ports.MissionRepository
	campaignRepo ports.CampaignRepository
	notifRepo    ports.NotificationRepository
	ledger       ports.Ledger
	transactor   ports.DBTransactor
	closer       campaignCloser
	now          func() time.Time
	log          zerolog.Logger
}

// NewActionService creates a new ActionServiceImpl.
func NewActionService(
	actionRepo ports.ActionRepository,
	missionRepo ports.MissionRepository,
	campaignRepo ports.CampaignRepository,
	notifRepo ports.NotificationRepository,
	ledger ports.Ledger,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ActionServiceImpl {
	return &ActionServiceImpl{
		actionRepo:   actionRepo,
		missionRepo:  missionRepo,
		campaignRepo: campaignRepo,
		notifRepo:    notifRepo,
		ledger:       ledger,
		transactor:   transactor,
		closer: campaignCloser{
			campaignRepo: campaignRepo,
			missionRepo:  missionRepo,
			notifRepo:    notifRepo,
			ledger:       ledger,
		},
		now: func() time.Time { return time.Now().UTC() },
		log: log,
	}
}

// AcceptMission takes a slot on the mission and opens a pending action.
func (s *ActionServiceImpl) AcceptMission(ctx context.Context, caller domain.Caller, missionID uuid.UUID) (*domain.UserAction, error) {
	if caller.Role != domain.RoleUser {
		return nil, apperror.ErrForbiddenRole()
	}

	mission, err := s.missionRepo.GetByID(ctx, missionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get mission: %w", err))
	}
	if mission == nil {
		return nil, apperror.ErrNotFound("mission")
	}

	campaign, err := s.campaignRepo.GetByID(ctx, mission.CampaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get campaign: %w", err))
	}
	if campaign == nil {
		return nil, apperror.ErrNotFound("campaign")
	}

	now := s.now()
	if !acceptingActions(campaign, now) {
		return nil, apperror.ErrCampaignNotActive()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	blocking, err := s.actionRepo.HasBlocking(ctx, dbTx, caller.AccountID, missionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check open actions: %w", err))
	}
	if blocking {
		return nil, apperror.ErrDuplicateAction()
	}

	reserved, err := s.missionRepo.ReserveSlot(ctx, dbTx, missionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reserve slot: %w", err))
	}
	if reserved == nil {
		return nil, apperror.ErrMissionFull()
	}

	action := &domain.UserAction{
		ID:         uuid.New(),
		UserID:     caller.AccountID,
		MissionID:  missionID,
		CampaignID: mission.CampaignID,
		Status:     domain.ActionStatusPending,
		Amount:     mission.Reward,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.actionRepo.Create(ctx, dbTx, action); err != nil {
		// Lost a race with a concurrent accept by the same user.
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperror.ErrDuplicateAction()
		}
		return nil, apperror.InternalError(fmt.Errorf("create action: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("action_id", action.ID.String()).
		Str("mission_id", missionID.String()).
		Str("user_id", caller.AccountID.String()).
		Msg("mission accepted")

	return action, nil
}

func acceptingActions(c *domain.Campaign, now time.Time) bool {
	if c.Status != domain.CampaignStatusActive {
		return false
	}
	if now.Before(c.StartDate) {
		return false
	}
	return c.EndDate == nil || !now.After(*c.EndDate)
}

// StartAction moves the caller's action from pending to in_progress.
func (s *ActionServiceImpl) StartAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID) (*domain.UserAction, error) {
	return s.advanceOwn(ctx, caller, domain.ActionTransition{
		ActionID: actionID,
		From:     domain.ActionStatusPending,
		To:       domain.ActionStatusInProgress,
	})
}

// SubmitAction stores the proof and moves the action to completed, where
// it waits for the business to review it.
func (s *ActionServiceImpl) SubmitAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID, proof map[string]any) (*domain.UserAction, error) {
	if len(proof) == 0 {
		return nil, apperror.Validation("proof is required")
	}
	return s.advanceOwn(ctx, caller, domain.ActionTransition{
		ActionID:   actionID,
		From:       domain.ActionStatusInProgress,
		To:         domain.ActionStatusCompleted,
		ProofPatch: proof,
	})
}

func (s *ActionServiceImpl) advanceOwn(ctx context.Context, caller domain.Caller, t domain.ActionTransition) (*domain.UserAction, error) {
	action, err := s.getAction(ctx, t.ActionID)
	if err != nil {
		return nil, err
	}
	if action.UserID != caller.AccountID {
		return nil, apperror.ErrUnauthorized("action")
	}
	if action.Status != t.From {
		return nil, apperror.ErrInvalidStateTransition("action", string(action.Status), string(t.To))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	updated, err := s.actionRepo.Transition(ctx, dbTx, t)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("transition action: %w", err))
	}
	if updated == nil {
		return nil, apperror.ErrInvalidStateTransition("action", string(t.From), string(t.To))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Debug().
		Str("action_id", updated.ID.String()).
		Str("status", string(updated.Status)).
		Msg("action advanced")

	return updated, nil
}

// VerifyAction approves a completed action and pays its reward. The status
// compare-and-swap is the first write, so a concurrent second verification
// of the same action fails there and pays nothing.
func (s *ActionServiceImpl) VerifyAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID) (*ports.VerificationResult, error) {
	businessID, ok := caller.Business()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}

	action, err := s.getAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != domain.ActionStatusCompleted {
		return nil, apperror.ErrInvalidStateTransition("action", string(action.Status), string(domain.ActionStatusVerified))
	}

	campaign, err := s.getOwnedCampaign(ctx, action.CampaignID, businessID)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	verified, err := s.actionRepo.Transition(ctx, dbTx, domain.ActionTransition{
		ActionID: actionID,
		From:     domain.ActionStatusCompleted,
		To:       domain.ActionStatusVerified,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("transition action: %w", err))
	}
	if verified == nil {
		return nil, apperror.ErrInvalidStateTransition("action", string(domain.ActionStatusCompleted), string(domain.ActionStatusVerified))
	}

	// Atomic increment under the campaign row lock; nil when the reward no
	// longer fits the budget.
	campaign, err = s.campaignRepo.RecordSpend(ctx, dbTx, campaign.ID, campaign.RewardPerAction)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record spend: %w", err))
	}
	if campaign == nil {
		return nil, apperror.ErrBudgetExhausted()
	}
	// A completed campaign already released its remaining budget.
	if campaign.Status == domain.CampaignStatusCompleted {
		return nil, apperror.ErrBudgetExhausted()
	}

	payout, err := s.ledger.PayReward(ctx, dbTx, campaign, verified)
	if err != nil {
		return nil, err
	}

	if err := s.missionRepo.IncrementCompleted(ctx, dbTx, verified.MissionID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("increment mission completed: %w", err))
	}

	payload := ActionReviewedPayload{
		ActionID:    verified.ID,
		MissionID:   verified.MissionID,
		CampaignID:  verified.CampaignID,
		Status:      verified.Status,
		UserAmount:  payout.Split.UserAmount,
		PlatformFee: payout.Split.PlatformFee,
		Total:       payout.Split.Total,
	}
	if err := enqueueNotification(ctx, dbTx, s.notifRepo, domain.UserOwner(verified.UserID),
		domain.EventActionVerified, payload); err != nil {
		return nil, err
	}

	if !campaign.CanPayReward() {
		if err := s.closer.complete(ctx, dbTx, campaign); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("action_id", verified.ID.String()).
		Str("campaign_id", campaign.ID.String()).
		Int64("user_amount", payout.Split.UserAmount).
		Int64("platform_fee", payout.Split.PlatformFee).
		Str("campaign_status", string(campaign.Status)).
		Msg("action verified")

	return &ports.VerificationResult{
		Action:   verified,
		Payment:  payout.Split,
		Campaign: campaign,
	}, nil
}

// RejectAction declines a completed action. No money moves; the mission
// slot is given back and the user may try again.
func (s *ActionServiceImpl) RejectAction(ctx context.Context, caller domain.Caller, actionID uuid.UUID, reason string) (*domain.UserAction, error) {
	businessID, ok := caller.Business()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("reason is required")
	}

	action, err := s.getAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != domain.ActionStatusCompleted {
		return nil, apperror.ErrInvalidStateTransition("action", string(action.Status), string(domain.ActionStatusRejected))
	}
	if _, err := s.getOwnedCampaign(ctx, action.CampaignID, businessID); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rejected, err := s.actionRepo.Transition(ctx, dbTx, domain.ActionTransition{
		ActionID:   actionID,
		From:       domain.ActionStatusCompleted,
		To:         domain.ActionStatusRejected,
		ProofPatch: map[string]any{"rejection_reason": reason},
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("transition action: %w", err))
	}
	if rejected == nil {
		return nil, apperror.ErrInvalidStateTransition("action", string(domain.ActionStatusCompleted), string(domain.ActionStatusRejected))
	}

	if err := s.missionRepo.ReleaseSlot(ctx, dbTx, rejected.MissionID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("release mission slot: %w", err))
	}

	payload := ActionReviewedPayload{
		ActionID:   rejected.ID,
		MissionID:  rejected.MissionID,
		CampaignID: rejected.CampaignID,
		Status:     rejected.Status,
		Reason:     reason,
	}
	if err := enqueueNotification(ctx, dbTx, s.notifRepo, domain.UserOwner(rejected.UserID),
		domain.EventActionRejected, payload); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("action_id", rejected.ID.String()).
		Str("reason", reason).
		Msg("action rejected")

	return rejected, nil
}

func (s *ActionServiceImpl) getAction(ctx context.Context, id uuid.UUID) (*domain.UserAction, error) {
	action, err := s.actionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get action: %w", err))
	}
	if action == nil {
		return nil, apperror.ErrNotFound("action")
	}
	return action, nil
}

func (s *ActionServiceImpl) getOwnedCampaign(ctx context.Context, campaignID, businessID uuid.UUID) (*domain.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get campaign: %w", err))
	}
	if campaign == nil {
		return nil, apperror.ErrNotFound("campaign")
	}
	if !campaign.IsOwnedBy(businessID) {
		return nil, apperror.ErrUnauthorized("campaign")
	}
	return campaign, nil
}
