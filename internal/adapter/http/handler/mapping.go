package handler

import (
	"time"

	"mission-rewards-ledger/internal/adapter/http/dto"
	"mission-rewards-ledger/internal/adapter/http/middleware"
	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"
	"mission-rewards-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requireCaller returns the authenticated caller or writes a 401.
func requireCaller(c *gin.Context) (domain.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return domain.Caller{}, false
	}
	return caller, true
}

// idParam parses the :id path parameter or writes a 400.
func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:            w.ID.String(),
		OwnerType:     string(w.OwnerType),
		OwnerID:       w.OwnerID.String(),
		Balance:       w.Balance,
		FrozenBalance: w.FrozenBalance,
		Currency:      w.Currency,
	}
}

func toPartyResponse(p domain.Party) dto.PartyResponse {
	return dto.PartyResponse{Type: string(p.Type), ID: p.ID.String()}
}

func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:              tx.ID.String(),
		From:            toPartyResponse(tx.From),
		To:              toPartyResponse(tx.To),
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		TransactionType: string(tx.TransactionType),
		Status:          string(tx.Status),
		ReferenceID:     tx.ReferenceID,
		Metadata:        metadataMap(tx.Metadata),
		CreatedAt:       formatTime(tx.CreatedAt),
		ProcessedAt:     formatTimePtr(tx.ProcessedAt),
	}
}

func metadataMap(m domain.TransactionMetadata) map[string]any {
	out := make(map[string]any)
	if m.CampaignID != nil {
		out["campaign_id"] = m.CampaignID.String()
	}
	if m.MissionID != nil {
		out["mission_id"] = m.MissionID.String()
	}
	if m.ActionID != nil {
		out["action_id"] = m.ActionID.String()
	}
	if m.OriginalTxID != nil {
		out["original_transaction_id"] = m.OriginalTxID.String()
	}
	if m.Reason != "" {
		out["reason"] = m.Reason
	}
	if m.FeePercentage != 0 {
		out["fee_percentage"] = m.FeePercentage
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toRequirements(r domain.Requirements) dto.RequirementsPayload {
	return dto.RequirementsPayload{
		MinPurchase:  r.MinPurchase,
		Location:     r.Location,
		ProductSKU:   r.ProductSKU,
		ReferralCode: r.ReferralCode,
		ProofHint:    r.ProofHint,
	}
}

func fromRequirements(p dto.RequirementsPayload) domain.Requirements {
	return domain.Requirements{
		MinPurchase:  p.MinPurchase,
		Location:     p.Location,
		ProductSKU:   p.ProductSKU,
		ReferralCode: p.ReferralCode,
		ProofHint:    p.ProofHint,
	}
}

func toCampaignResponse(cp *domain.Campaign) dto.CampaignResponse {
	tags := cp.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.CampaignResponse{
		ID:               cp.ID.String(),
		BusinessID:       cp.BusinessID.String(),
		Title:            cp.Title,
		Description:      cp.Description,
		CampaignType:     string(cp.CampaignType),
		Budget:           cp.Budget,
		Spent:            cp.Spent,
		Remaining:        cp.Remaining(),
		RewardPerAction:  cp.RewardPerAction,
		TotalActions:     cp.TotalActions,
		CompletedActions: cp.CompletedActions,
		Requirements:     toRequirements(cp.Requirements),
		Tags:             tags,
		Status:           string(cp.Status),
		StartDate:        formatTime(cp.StartDate),
		EndDate:          formatTimePtr(cp.EndDate),
		CreatedAt:        formatTime(cp.CreatedAt),
	}
}

func toMissionResponse(m *domain.Mission) dto.MissionResponse {
	steps := make([]dto.MissionStepResponse, 0, len(m.Steps))
	for _, s := range m.Steps {
		steps = append(steps, dto.MissionStepResponse{
			Order:            s.Order,
			Title:            s.Title,
			EstimatedMinutes: s.EstimatedMinutes,
		})
	}
	return dto.MissionResponse{
		ID:               m.ID.String(),
		CampaignID:       m.CampaignID.String(),
		Sequence:         m.Sequence,
		MissionType:      string(m.MissionType),
		Title:            m.Title,
		Description:      m.Description,
		Reward:           m.Reward,
		Steps:            steps,
		TotalMinutes:     m.TotalMinutes(),
		ValidationMethod: string(m.ValidationMethod),
		Instructions:     m.ValidationData.Instructions,
		TotalLimit:       m.TotalLimit,
		AcceptedCount:    m.AcceptedCount,
		CompletedCount:   m.CompletedCount,
		IsActive:         m.IsActive,
	}
}

func toActionResponse(a *domain.UserAction) dto.ActionResponse {
	return dto.ActionResponse{
		ID:          a.ID.String(),
		UserID:      a.UserID.String(),
		MissionID:   a.MissionID.String(),
		CampaignID:  a.CampaignID.String(),
		Status:      string(a.Status),
		Amount:      a.Amount,
		ProofData:   a.ProofData,
		StartedAt:   formatTimePtr(a.StartedAt),
		SubmittedAt: formatTimePtr(a.SubmittedAt),
		ReviewedAt:  formatTimePtr(a.ReviewedAt),
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

func toVerificationResponse(r *ports.VerificationResult) dto.VerificationResponse {
	return dto.VerificationResponse{
		Action: toActionResponse(r.Action),
		Payment: dto.PaymentResponse{
			UserAmount:  r.Payment.UserAmount,
			PlatformFee: r.Payment.PlatformFee,
			Total:       r.Payment.Total,
		},
		Campaign: toCampaignResponse(r.Campaign),
	}
}

func toStatsResponse(s *ports.CampaignStats) dto.CampaignStatsResponse {
	missions := make([]dto.MissionStatsResponse, 0, len(s.Missions))
	for _, m := range s.Missions {
		missions = append(missions, dto.MissionStatsResponse{
			MissionID:      m.MissionID.String(),
			Title:          m.Title,
			TotalLimit:     m.TotalLimit,
			AcceptedCount:  m.AcceptedCount,
			CompletedCount: m.CompletedCount,
			IsActive:       m.IsActive,
		})
	}
	byStatus := make(map[string]int64, len(s.ActionsByStatus))
	for status, n := range s.ActionsByStatus {
		byStatus[string(status)] = n
	}
	return dto.CampaignStatsResponse{
		CampaignID:       s.CampaignID.String(),
		Status:           string(s.Status),
		Budget:           s.Budget,
		Spent:            s.Spent,
		Remaining:        s.Remaining,
		CompletedActions: s.CompletedActions,
		MissionCount:     s.MissionCount,
		Missions:         missions,
		ActionsByStatus:  byStatus,
		UserPayouts:      s.UserPayouts,
		PlatformFees:     s.PlatformFees,
	}
}
