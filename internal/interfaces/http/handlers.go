package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/reimbursement-bot/internal/repository"
	"github.com/garyjia/reimbursement-bot/internal/session"
)

// SessionAdmin exposes the live session registry to the admin API
type SessionAdmin interface {
	Snapshot() []session.Info
	Delete(requesterID string) error
}

// RequestHistory lists completed reimbursement requests
type RequestHistory interface {
	List(limit, offset int) ([]*repository.CompletedRequest, error)
	ListByRequester(requesterID string) ([]*repository.CompletedRequest, error)
}

// Exporter renders completed requests as a spreadsheet
type Exporter interface {
	Write(w io.Writer, requests []*repository.CompletedRequest) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	sessions SessionAdmin
	history  RequestHistory
	exporter Exporter
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(sessions SessionAdmin, history RequestHistory, exporter Exporter, logger *zap.Logger) *Handlers {
	return &Handlers{
		sessions: sessions,
		history:  history,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListRequestsRequest represents query parameters for listing requests
type ListRequestsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListSessions handles GET /api/v1/sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.sessions.Snapshot(),
	})
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *Handlers) DeleteSession(c *gin.Context) {
	requesterID := c.Param("id")

	if err := h.sessions.Delete(requesterID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "session not found",
			})
			return
		}
		h.logger.Error("Failed to delete session",
			zap.String("requester_id", requesterID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to delete session",
		})
		return
	}

	h.logger.Info("Session deleted via admin API",
		zap.String("requester_id", requesterID))
	c.JSON(http.StatusOK, Response{Success: true})
}

// ListRequests handles GET /api/v1/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var req ListRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	requests, err := h.history.List(req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve requests",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    requests,
	})
}

// ListRequesterRequests handles GET /api/v1/sessions/:id/requests. It lists
// the completed history of one requester, alongside whatever live session
// they may have.
func (h *Handlers) ListRequesterRequests(c *gin.Context) {
	requesterID := c.Param("id")

	requests, err := h.history.ListByRequester(requesterID)
	if err != nil {
		h.logger.Error("Failed to list requests for requester",
			zap.String("requester_id", requesterID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve requests",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    requests,
	})
}

// ExportRequests handles GET /api/v1/requests/export
func (h *Handlers) ExportRequests(c *gin.Context) {
	// Export is unbounded; the history endpoint pages, the export does not
	requests, err := h.history.List(10000, 0)
	if err != nil {
		h.logger.Error("Failed to load requests for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve requests",
		})
		return
	}

	fileName := fmt.Sprintf("completed-requests-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exporter.Write(c.Writer, requests); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
}
