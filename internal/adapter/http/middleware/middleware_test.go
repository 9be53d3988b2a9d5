package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/internal/core/ports/mocks"
	"mission-rewards-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testGatewayCfg = GatewayAuthConfig{
	Secret:            "gw_secret",
	NonceTTL:          120 * time.Second,
	MaxTimestampDrift: 60 * time.Second,
}

func gatewayRouter(sigSvc ports.SignatureService, nonceStore ports.NonceStore) *gin.Engine {
	router := gin.New()
	router.POST("/test", GatewayAuth(testGatewayCfg, sigSvc, nonceStore, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	return router
}

func signedRequest(body string, ts int64, nonce, sig string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(body))
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	return req
}

func TestGatewayAuth_MissingHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := gatewayRouter(mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayAuth_ExpiredTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := gatewayRouter(mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("", time.Now().Add(-120*time.Second).Unix(), "nonce123", "sig"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGatewayAuth_ReplayedNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nonceStore := mocks.NewMockNonceStore(ctrl)
	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "gateway", "nonce-dup", testGatewayCfg.NonceTTL).Return(false, nil)

	router := gatewayRouter(mocks.NewMockSignatureService(ctrl), nonceStore)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("{}", time.Now().Unix(), "nonce-dup", "sig"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SEC_003", resp["error_code"])
}

func TestGatewayAuth_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	nowTs := time.Now().Unix()

	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "gateway", "nonce-1", gomock.Any()).Return(true, nil)
	sigSvc.EXPECT().BuildCanonicalString("POST", "/test", nowTs, "nonce-1", "{}").Return("canonical")
	sigSvc.EXPECT().Verify("gw_secret", "canonical", "forged").Return(false)

	w := httptest.NewRecorder()
	gatewayRouter(sigSvc, nonceStore).ServeHTTP(w, signedRequest("{}", nowTs, "nonce-1", "forged"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayAuth_NonceStoreDownStillVerifiesSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	nowTs := time.Now().Unix()

	nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	sigSvc.EXPECT().BuildCanonicalString(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("canonical")
	sigSvc.EXPECT().Verify("gw_secret", "canonical", "valid_sig").Return(true)

	w := httptest.NewRecorder()
	gatewayRouter(sigSvc, nonceStore).ServeHTTP(w, signedRequest("{}", nowTs, "nonce-2", "valid_sig"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGatewayAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)

	nowTs := time.Now().Unix()
	body := `{"owner_type":"business","amount":50000}`

	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "gateway", "nonce-ok", testGatewayCfg.NonceTTL).Return(true, nil)
	sigSvc.EXPECT().BuildCanonicalString("POST", "/test", nowTs, "nonce-ok", body).Return("canonical")
	sigSvc.EXPECT().Verify("gw_secret", "canonical", "valid_sig").Return(true)

	var readBack string
	router := gin.New()
	router.POST("/test", GatewayAuth(testGatewayCfg, sigSvc, nonceStore, zerolog.Nop()), func(c *gin.Context) {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(c.Request.Body)
		readBack = buf.String()
		c.JSON(200, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(body, nowTs, "nonce-ok", "valid_sig"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, readBack, "body must be readable after verification")
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("bad_token").Return(nil, errors.New("token is malformed"))

	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	accountID := uuid.New()
	businessID := uuid.New()
	tokenSvc.EXPECT().Validate("valid_token").Return(&ports.TokenClaims{
		AccountID:  accountID,
		Role:       domain.RoleBusiness,
		BusinessID: &businessID,
	}, nil)

	var captured domain.Caller
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		captured, _ = CallerFrom(c)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer valid_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, accountID, captured.AccountID)
	assert.Equal(t, domain.RoleBusiness, captured.Role)
	require.NotNil(t, captured.BusinessID)
	assert.Equal(t, businessID, *captured.BusinessID)
}

func TestCallerFrom_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CallerFrom(c)
	assert.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role domain.Role
		code int
	}{
		{"allowed", domain.RoleBusiness, http.StatusOK},
		{"wrong role", domain.RoleUser, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", func(c *gin.Context) {
				c.Set(CtxAccountID, uuid.New())
				c.Set(CtxRole, tt.role)
			}, RequireRole(domain.RoleBusiness), func(c *gin.Context) {
				c.JSON(200, gin.H{"ok": true})
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestRequireRole_NoCaller(t *testing.T) {
	router := gin.New()
	router.GET("/test", RequireRole(domain.RoleUser), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		seen = c.GetString(response.RequestIDKey)
		response.OK(c, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-123", resp["request_id"])
}

func TestRequestID_Generated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
	assert.NoError(t, err)
}

func TestRecovery_PanicRecovered(t *testing.T) {
	log := zerolog.Nop()

	router := gin.New()
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp["error_code"])
}
