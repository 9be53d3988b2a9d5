package handler

import (
	"mission-rewards-ledger/internal/adapter/http/dto"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"
	"mission-rewards-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ActionHandler drives user actions through accept, start, submit and review.
type ActionHandler struct {
	actionSvc ports.ActionService
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(actionSvc ports.ActionService) *ActionHandler {
	return &ActionHandler{actionSvc: actionSvc}
}

// Accept handles POST /api/v1/missions/:id/accept.
func (h *ActionHandler) Accept(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	missionID, ok := idParam(c)
	if !ok {
		return
	}

	action, err := h.actionSvc.AcceptMission(c.Request.Context(), caller, missionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toActionResponse(action))
}

// Start handles POST /api/v1/actions/:id/start.
func (h *ActionHandler) Start(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	actionID, ok := idParam(c)
	if !ok {
		return
	}

	action, err := h.actionSvc.StartAction(c.Request.Context(), caller, actionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toActionResponse(action))
}

// Submit handles POST /api/v1/actions/:id/submit.
func (h *ActionHandler) Submit(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	actionID, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.SubmitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	action, err := h.actionSvc.SubmitAction(c.Request.Context(), caller, actionID, req.Proof)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toActionResponse(action))
}

// Verify handles POST /api/v1/actions/:id/verify. Verification pays the
// reward in the same unit of work.
func (h *ActionHandler) Verify(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	actionID, ok := idParam(c)
	if !ok {
		return
	}

	result, err := h.actionSvc.VerifyAction(c.Request.Context(), caller, actionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toVerificationResponse(result))
}

// Reject handles POST /api/v1/actions/:id/reject.
func (h *ActionHandler) Reject(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	actionID, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.RejectActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	action, err := h.actionSvc.RejectAction(c.Request.Context(), caller, actionID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toActionResponse(action))
}
