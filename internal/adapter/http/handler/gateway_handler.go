package handler

import (
	"mission-rewards-ledger/internal/adapter/http/dto"
	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/pkg/apperror"
	"mission-rewards-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GatewayHandler receives signed callbacks from the payment gateway.
type GatewayHandler struct {
	walletSvc ports.WalletService
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(walletSvc ports.WalletService) *GatewayHandler {
	return &GatewayHandler{walletSvc: walletSvc}
}

// Deposit handles POST /api/v1/gateway/deposits. Redelivery of the same
// reference returns the original transaction.
func (h *GatewayHandler) Deposit(c *gin.Context) {
	var req dto.DepositCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	tx, err := h.walletSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		Owner:       domain.OwnerRef{Type: domain.OwnerType(req.OwnerType), ID: ownerID},
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(tx))
}

// SettleWithdrawal handles POST /api/v1/gateway/withdrawals/:id/settle.
func (h *GatewayHandler) SettleWithdrawal(c *gin.Context) {
	txID, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.SettleWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	tx, err := h.walletSvc.SettleWithdrawal(c.Request.Context(), txID, *req.Success)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransactionResponse(tx))
}
