package rest_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/chainrep/identity-engine/internal/api/middleware"
	"github.com/chainrep/identity-engine/internal/api/rest"
	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/health"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/mocks"
	"github.com/chainrep/identity-engine/internal/scanner"
)

const addrAlice = "0x1111111111111111111111111111111111111111"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func newRouter(t *testing.T) (*gin.Engine, *mocks.MockService) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)

	router := gin.New()
	handler := rest.NewHandler(mockService)
	rest.SetupRoutes(router, handler, middleware.AuthConfig{APIKeys: []string{"test-key"}})
	return router, mockService
}

func doRequest(router *gin.Engine, method, path string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorized {
		req.Header.Set("Authorization", "ApiKey test-key")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     health.Status
		expectCode int
	}{
		{
			name:       "ready",
			status:     health.Status{ConfigValid: true, Initialized: true, Ready: true},
			expectCode: http.StatusOK,
		},
		{
			name:       "not ready",
			status:     health.Status{ConfigValid: true, Initialized: false, Ready: false},
			expectCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := newRouter(t)
			mockService.EXPECT().Status().Return(tt.status)

			w := doRequest(router, http.MethodGet, "/health", false)
			assert.Equal(t, tt.expectCode, w.Code)
			assert.Contains(t, w.Body.String(), `"ready"`)
		})
	}
}

func TestGetStatus(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().Status().Return(health.Status{
		ConfigValid:       true,
		Initialized:       true,
		Ready:             true,
		ListenerCount:     6,
		ResyncRecommended: true,
	})

	w := doRequest(router, http.MethodGet, "/api/v1/status", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"listener_count":6`)
	assert.Contains(t, w.Body.String(), `"resync_recommended":true`)
}

func TestVerifyIdentity(t *testing.T) {
	router, mockService := newRouter(t)

	dbToken, ledgerToken := uint64(9), uint64(3)
	mockService.EXPECT().
		VerifyAddressTokenID(gomock.Any(), addrAlice).
		Return(&scanner.VerifyResult{
			Correct:       false,
			DBTokenID:     &dbToken,
			LedgerTokenID: &ledgerToken,
		}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/identities/"+addrAlice+"/verify", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"correct":false`)
	assert.Contains(t, w.Body.String(), `"db_token_id":9`)
	assert.Contains(t, w.Body.String(), `"ledger_token_id":3`)
}

func TestVerifyIdentity_InvalidAddress(t *testing.T) {
	router, _ := newRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/identities/not-an-address/verify", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFixIdentity(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		FixAddressTokenID(gomock.Any(), addrAlice).
		Return(true, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/identities/"+addrAlice+"/fix", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fixed":true`)
}

func TestFixIdentity_RequiresAuth(t *testing.T) {
	router, _ := newRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/identities/"+addrAlice+"/fix", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFixIdentity_NotReady(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		FixAddressTokenID(gomock.Any(), addrAlice).
		Return(false, domain.ErrNotReady)

	w := doRequest(router, http.MethodPost, "/api/v1/identities/"+addrAlice+"/fix", true)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestTriggerSync(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		SyncAllIdentities(gomock.Any()).
		Return(&scanner.Summary{Fixed: 2, Unchanged: 10, Errors: 1}, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/sync", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fixed":2,"unchanged":10,"errors":1}`, w.Body.String())
}

func TestTriggerSync_NotReady(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		SyncAllIdentities(gomock.Any()).
		Return(nil, domain.ErrNotReady)

	w := doRequest(router, http.MethodPost, "/api/v1/sync", true)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReinitialize(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		Reinitialize(gomock.Any()).
		Return(true, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/reinitialize", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ready":true}`, w.Body.String())
}

func TestReinitialize_Failure(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		Reinitialize(gomock.Any()).
		Return(false, errors.New("dial tcp: connection refused"))

	w := doRequest(router, http.MethodPost, "/api/v1/reinitialize", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetLedgerIdentity(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		LedgerIdentity(gomock.Any(), addrAlice).
		Return(&domain.IdentitySnapshot{
			TokenID:         3,
			Owner:           addrAlice,
			ReputationScore: 50,
			Verified:        true,
		}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/identities/"+addrAlice+"/ledger", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token_id":3`)
}

func TestGetLedgerIdentity_NotFound(t *testing.T) {
	router, mockService := newRouter(t)
	mockService.EXPECT().
		LedgerIdentity(gomock.Any(), addrAlice).
		Return(nil, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/identities/"+addrAlice+"/ledger", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
