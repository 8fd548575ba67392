package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/logger"
)

// ProductResolver resolves barcodes to product records
type ProductResolver interface {
	Resolve(ctx context.Context, barcode string) (*domain.ResolutionResult, error)
}

// ScanSessions manages armed scan sessions
type ScanSessions interface {
	Arm(ctx context.Context) string
	Observe(ctx context.Context, sessionID, code string) (domain.ConfirmationEvent, bool, error)
	Disarm(ctx context.Context, sessionID string) bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver ProductResolver
	scans    ScanSessions
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver ProductResolver, scans ScanSessions) *Handler {
	return &Handler{
		resolver: resolver,
		scans:    scans,
	}
}

type productResponse struct {
	Found     bool            `json:"found"`
	Barcode   string          `json:"barcode"`
	Source    domain.Source   `json:"source"`
	Record    json.RawMessage `json:"record"`
	Persisted *bool           `json:"persisted,omitempty"`
}

type observationRequest struct {
	Code string `json:"code"`
}

type observationResponse struct {
	Confirmed bool   `json:"confirmed"`
	Barcode   string `json:"barcode,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "unpackeat-backend",
		"version": "1.0.0",
	})
}

// GetProduct resolves the barcode from the path or the "barcode" query parameter
func (h *Handler) GetProduct(c *gin.Context) {
	barcode := c.Param("barcode")
	if barcode == "" {
		barcode = c.Query("barcode")
	}

	ctx := c.Request.Context()
	result, err := h.resolver.Resolve(ctx, barcode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Barcode is required"})
		case errors.Is(err, domain.ErrResolutionFailed):
			c.JSON(http.StatusNotFound, gin.H{"error": domain.NotFoundMessage(strings.TrimSpace(barcode))})
		default:
			logger.Error(ctx, "product lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again later."})
		}
		return
	}

	resp := productResponse{
		Found:   result.Found,
		Barcode: result.Record.Barcode,
		Source:  result.Source,
		Record:  result.Record.Payload,
	}
	if result.Source == domain.SourceRemoteService {
		persisted := result.PersistErr == nil
		resp.Persisted = &persisted
	}

	c.JSON(http.StatusOK, resp)
}

// CreateScanSession arms a new scan session
func (h *Handler) CreateScanSession(c *gin.Context) {
	id := h.scans.Arm(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"sessionId": id})
}

// ObserveScan feeds one detection into a scan session
func (h *Handler) ObserveScan(c *gin.Context) {
	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	event, confirmed, err := h.scans.Observe(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrScanSessionClosed) {
			c.JSON(http.StatusGone, gin.H{"error": "scan session closed"})
			return
		}
		logger.Error(c.Request.Context(), "scan observation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again later."})
		return
	}

	if !confirmed {
		c.JSON(http.StatusOK, observationResponse{})
		return
	}

	c.JSON(http.StatusOK, observationResponse{
		Confirmed: true,
		Barcode:   event.Barcode,
		Redirect:  "/api/v1/products/" + url.PathEscape(event.Barcode),
	})
}

// DeleteScanSession disarms a scan session
func (h *Handler) DeleteScanSession(c *gin.Context) {
	if !h.scans.Disarm(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
