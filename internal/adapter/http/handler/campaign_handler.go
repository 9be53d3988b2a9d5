package handler

import (
	"mission-rewards-ledger/internal/adapter/http/dto"
	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"
	"mission-rewards-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CampaignHandler handles campaign lifecycle and reporting endpoints.
type CampaignHandler struct {
	campaignSvc  ports.CampaignService
	reportingSvc ports.ReportingService
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(campaignSvc ports.CampaignService, reportingSvc ports.ReportingService) *CampaignHandler {
	return &CampaignHandler{
		campaignSvc:  campaignSvc,
		reportingSvc: reportingSvc,
	}
}

// Create handles POST /api/v1/campaigns.
func (h *CampaignHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	params := ports.CreateCampaignParams{
		CampaignType:    domain.MissionType(req.CampaignType),
		Title:           req.Title,
		Description:     req.Description,
		Budget:          req.Budget,
		RewardPerAction: req.RewardPerAction,
		TotalActions:    req.TotalActions,
		Requirements:    fromRequirements(req.Requirements),
		Tags:            req.Tags,
		EndDate:         req.EndDate,
		Draft:           req.Draft,
	}
	if req.StartDate != nil {
		params.StartDate = *req.StartDate
	}

	campaign, err := h.campaignSvc.CreateCampaign(c.Request.Context(), caller, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toCampaignResponse(campaign))
}

// List handles GET /api/v1/campaigns: the caller's own campaigns.
func (h *CampaignHandler) List(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	campaigns, err := h.campaignSvc.ListCampaigns(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.CampaignResponse, 0, len(campaigns))
	for i := range campaigns {
		items = append(items, toCampaignResponse(&campaigns[i]))
	}
	response.OK(c, items)
}

// Get handles GET /api/v1/campaigns/:id.
func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	campaign, err := h.campaignSvc.GetCampaign(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toCampaignResponse(campaign))
}

// Update handles PATCH /api/v1/campaigns/:id.
func (h *CampaignHandler) Update(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	patch := ports.CampaignPatch{
		Title:           req.Title,
		Description:     req.Description,
		Tags:            req.Tags,
		EndDate:         req.EndDate,
		Budget:          req.Budget,
		RewardPerAction: req.RewardPerAction,
	}
	if req.Requirements != nil {
		r := fromRequirements(*req.Requirements)
		patch.Requirements = &r
	}
	if req.Status != nil {
		status := domain.CampaignStatus(*req.Status)
		patch.Status = &status
	}

	campaign, err := h.campaignSvc.UpdateCampaign(c.Request.Context(), id, caller, patch)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toCampaignResponse(campaign))
}

// Delete handles DELETE /api/v1/campaigns/:id.
func (h *CampaignHandler) Delete(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.campaignSvc.DeleteCampaign(c.Request.Context(), id, caller); err != nil {
		response.Error(c, err)
		return
	}

	response.Deleted(c, id.String())
}

// ListMissions handles GET /api/v1/campaigns/:id/missions.
func (h *CampaignHandler) ListMissions(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	missions, err := h.campaignSvc.ListMissions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.MissionResponse, 0, len(missions))
	for i := range missions {
		items = append(items, toMissionResponse(&missions[i]))
	}
	response.OK(c, items)
}

// GetStats handles GET /api/v1/campaigns/:id/stats.
func (h *CampaignHandler) GetStats(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	stats, err := h.reportingSvc.GetCampaignStats(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toStatsResponse(stats))
}
