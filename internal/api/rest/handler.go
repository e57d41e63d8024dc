package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/health"
	"github.com/chainrep/identity-engine/internal/scanner"
)

// Service is the engine surface the REST layer exposes
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_service.go -package=mocks -mock_names=Service=MockService
type Service interface {
	// Status returns the current health snapshot
	Status() health.Status

	// Reinitialize re-dials the ledger and restarts ingestion
	Reinitialize(ctx context.Context) (bool, error)

	// VerifyAddressTokenID compares the stored token mapping for an address
	// against the ledger's
	VerifyAddressTokenID(ctx context.Context, address string) (*scanner.VerifyResult, error)

	// FixAddressTokenID repairs one address's record to match the ledger
	FixAddressTokenID(ctx context.Context, address string) (bool, error)

	// SyncAllIdentities runs a full ledger rescan and repair
	SyncAllIdentities(ctx context.Context) (*scanner.Summary, error)

	// LedgerIdentity returns the ledger's snapshot for an address, or nil
	LedgerIdentity(ctx context.Context, address string) (*domain.IdentitySnapshot, error)
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// HealthCheck returns the readiness of the engine
	// GET /health
	HealthCheck(c *gin.Context)

	// GetStatus returns the full health snapshot
	// GET /api/v1/status
	GetStatus(c *gin.Context)

	// Reinitialize tears down and re-dials the ledger client
	// POST /api/v1/reinitialize
	Reinitialize(c *gin.Context)

	// VerifyIdentity compares an address's stored token ID against the ledger
	// GET /api/v1/identities/:address/verify
	VerifyIdentity(c *gin.Context)

	// FixIdentity repairs an address's stored record from the ledger
	// POST /api/v1/identities/:address/fix
	FixIdentity(c *gin.Context)

	// TriggerSync runs a full ledger rescan
	// POST /api/v1/sync
	TriggerSync(c *gin.Context)

	// GetLedgerIdentity returns the ledger's authoritative view of an address
	// GET /api/v1/identities/:address/ledger
	GetLedgerIdentity(c *gin.Context)
}

type handler struct {
	service Service
}

// NewHandler creates a new REST API handler
func NewHandler(service Service) Handler {
	return &handler{service: service}
}

// HealthCheck reports readiness: 200 when the engine can serve write
// operations, 503 otherwise. The body carries the full tri-state snapshot
// either way.
func (h *handler) HealthCheck(c *gin.Context) {
	status := h.service.Status()

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}

// GetStatus returns the full health snapshot
func (h *handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status())
}

// Reinitialize re-dials the ledger and restarts the ingestion loop
func (h *handler) Reinitialize(c *gin.Context) {
	ready, err := h.service.Reinitialize(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to reinitialize ledger client")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ready": ready})
}

// VerifyIdentity compares an address's stored token ID against the ledger
func (h *handler) VerifyIdentity(c *gin.Context) {
	address, ok := h.requireAddress(c)
	if !ok {
		return
	}

	result, err := h.service.VerifyAddressTokenID(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			respondNotReady(c)
			return
		}
		respondInternalError(c, err, "Failed to verify identity",
			zap.String("address", address))
		return
	}

	c.JSON(http.StatusOK, result)
}

// FixIdentity repairs an address's stored record from the ledger
func (h *handler) FixIdentity(c *gin.Context) {
	address, ok := h.requireAddress(c)
	if !ok {
		return
	}

	fixed, err := h.service.FixAddressTokenID(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			respondNotReady(c)
			return
		}
		respondInternalError(c, err, "Failed to fix identity",
			zap.String("address", address))
		return
	}

	c.JSON(http.StatusOK, gin.H{"fixed": fixed})
}

// TriggerSync runs a full ledger rescan and repair
func (h *handler) TriggerSync(c *gin.Context) {
	summary, err := h.service.SyncAllIdentities(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			respondNotReady(c)
			return
		}
		respondInternalError(c, err, "Full sync failed")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetLedgerIdentity returns the ledger's authoritative view of an address
func (h *handler) GetLedgerIdentity(c *gin.Context) {
	address, ok := h.requireAddress(c)
	if !ok {
		return
	}

	snapshot, err := h.service.LedgerIdentity(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			respondNotReady(c)
			return
		}
		respondInternalError(c, err, "Failed to read ledger identity",
			zap.String("address", address))
		return
	}
	if snapshot == nil {
		respondNotFound(c, "No identity minted for address")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *handler) requireAddress(c *gin.Context) (string, bool) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		respondBadRequest(c, "Invalid address")
		return "", false
	}
	return domain.NormalizeAddress(address), true
}
