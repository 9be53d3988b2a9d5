package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
}

// auditRoutes is keyed by method and gin route pattern.
var auditRoutes = map[string]auditRoute{
	"POST /api/v1/auth/register":                  {domain.AuditActionRegister, "account"},
	"POST /api/v1/auth/login":                     {domain.AuditActionLogin, "session"},
	"POST /api/v1/campaigns":                      {domain.AuditActionCreateCampaign, "campaign"},
	"PATCH /api/v1/campaigns/:id":                 {domain.AuditActionUpdateCampaign, "campaign"},
	"DELETE /api/v1/campaigns/:id":                {domain.AuditActionDeleteCampaign, "campaign"},
	"POST /api/v1/missions/:id/accept":            {domain.AuditActionAcceptMission, "mission"},
	"POST /api/v1/actions/:id/start":              {domain.AuditActionStartAction, "action"},
	"POST /api/v1/actions/:id/submit":             {domain.AuditActionSubmitAction, "action"},
	"POST /api/v1/actions/:id/verify":             {domain.AuditActionVerifyAction, "action"},
	"POST /api/v1/actions/:id/reject":             {domain.AuditActionRejectAction, "action"},
	"POST /api/v1/wallets/withdrawals":            {domain.AuditActionWithdraw, "wallet"},
	"POST /api/v1/gateway/deposits":               {domain.AuditActionDeposit, "wallet"},
	"POST /api/v1/gateway/withdrawals/:id/settle": {domain.AuditActionSettleWithdrawal, "transaction"},
}

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and route patterns to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var accountID *uuid.UUID
		if v, exists := c.Get(CtxAccountID); exists {
			if id, ok := v.(uuid.UUID); ok {
				accountID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AccountID:    accountID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(routePattern, method string) (domain.AuditAction, string) {
	r, ok := auditRoutes[method+" "+routePattern]
	if !ok {
		return "", ""
	}
	return r.action, r.resourceType
}
