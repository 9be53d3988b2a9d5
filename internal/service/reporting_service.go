package service

import (
	"context"
	"fmt"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	campaignRepo ports.CampaignRepository
	missionRepo  ports.MissionRepository
	actionRepo   ports.ActionRepository
	txRepo       ports.TransactionRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	campaignRepo ports.CampaignRepository,
	missionRepo ports.MissionRepository,
	actionRepo ports.ActionRepository,
	txRepo ports.TransactionRepository,
) ports.ReportingService {
	return &reportingService{
		campaignRepo: campaignRepo,
		missionRepo:  missionRepo,
		actionRepo:   actionRepo,
		txRepo:       txRepo,
	}
}

// GetCampaignStats returns budget usage, per-mission counters, action
// counts by status and payout totals from the log. Only the owning
// business may read them.
func (s *reportingService) GetCampaignStats(ctx context.Context, caller domain.Caller, campaignID uuid.UUID) (*ports.CampaignStats, error) {
	businessID, ok := caller.Business()
	if !ok {
		return nil, apperror.ErrForbiddenRole()
	}

	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get campaign: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("campaign")
	}
	if !c.IsOwnedBy(businessID) {
		return nil, apperror.ErrUnauthorized("campaign")
	}

	missions, err := s.missionRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list missions: %w", err))
	}

	byStatus, err := s.actionRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count actions: %w", err))
	}

	totals, err := s.txRepo.CampaignTotals(ctx, campaignID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("campaign totals: %w", err))
	}

	stats := &ports.CampaignStats{
		CampaignID:       c.ID,
		Status:           c.Status,
		Budget:           c.Budget,
		Spent:            c.Spent,
		Remaining:        c.Remaining(),
		CompletedActions: c.CompletedActions,
		MissionCount:     len(missions),
		Missions:         make([]ports.MissionStats, 0, len(missions)),
		ActionsByStatus:  byStatus,
	}
	if stats.ActionsByStatus == nil {
		stats.ActionsByStatus = map[domain.ActionStatus]int64{}
	}
	if totals != nil {
		stats.UserPayouts = totals.UserPayouts
		stats.PlatformFees = totals.PlatformFees
	}

	for _, m := range missions {
		stats.Missions = append(stats.Missions, ports.MissionStats{
			MissionID:      m.ID,
			Title:          m.Title,
			TotalLimit:     m.TotalLimit,
			AcceptedCount:  m.AcceptedCount,
			CompletedCount: m.CompletedCount,
			IsActive:       m.IsActive,
		})
	}

	return stats, nil
}
