package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/models"
	"github.com/vendorops/attendance/internal/reconcile"
	"github.com/vendorops/attendance/internal/workflow"
	"github.com/vendorops/attendance/pkg/utils"
)

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ReconcileRequest triggers a batch run over an optional scope.
type ReconcileRequest struct {
	VendorIDs []int64 `json:"vendor_ids"`
	From      string  `json:"from"` // YYYY-MM-DD, optional
	To        string  `json:"to"`   // YYYY-MM-DD, optional
}

// ExplanationRequest carries a vendor's explanation for a mismatch.
type ExplanationRequest struct {
	VendorID int64  `json:"vendor_id" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// ResolveRequest carries a manager's decision on a mismatch.
type ResolveRequest struct {
	ManagerID int64  `json:"manager_id" binding:"required"`
	Decision  string `json:"decision" binding:"required"`
	Comment   string `json:"comment"`
}

// MismatchResponse is one mismatch record in API responses.
type MismatchResponse struct {
	ID             int64                 `json:"id"`
	VendorID       int64                 `json:"vendor_id"`
	Date           string                `json:"date"`
	DeclaredKind   string                `json:"declared_kind,omitempty"`
	SwipePresence  string                `json:"swipe_presence"`
	Category       string                `json:"category"`
	Severity       string                `json:"severity"`
	Payload        models.FindingPayload `json:"payload"`
	Summary        string                `json:"summary"`
	Explanation    string                `json:"explanation,omitempty"`
	ExplainedAt    *time.Time            `json:"explained_at,omitempty"`
	WorkflowState  string                `json:"workflow_state"`
	ManagerComment string                `json:"manager_comment,omitempty"`
	ApproverID     int64                 `json:"approver_id,omitempty"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"`
	RunID          string                `json:"run_id"`
	CreatedAt      time.Time             `json:"created_at"`
}

func toMismatchResponse(m *models.MismatchRecord) MismatchResponse {
	return MismatchResponse{
		ID:             m.ID,
		VendorID:       m.VendorID,
		Date:           models.DateKey(m.Date),
		DeclaredKind:   string(m.DeclaredKind),
		SwipePresence:  string(m.SwipePresence),
		Category:       string(m.Category),
		Severity:       string(m.Severity),
		Payload:        m.Payload,
		Summary:        m.Payload.Summary(),
		Explanation:    m.Explanation,
		ExplainedAt:    m.ExplainedAt,
		WorkflowState:  string(m.WorkflowState),
		ManagerComment: m.ManagerComment,
		ApproverID:     m.ApproverID,
		ResolvedAt:     m.ResolvedAt,
		RunID:          m.RunID,
		CreatedAt:      m.CreatedAt,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	scope := reconcile.Scope{VendorIDs: req.VendorIDs}
	var err error
	if req.From != "" {
		if scope.From, err = utils.ParseDate(req.From); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	}
	if req.To != "" {
		if scope.To, err = utils.ParseDate(req.To); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	}

	result, err := s.runner.Run(c.Request.Context(), scope)
	if err != nil {
		s.logger.Error("Reconciliation run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func (s *Server) handleListMismatches(c *gin.Context) {
	filter := models.MismatchFilter{Limit: 50}

	if v := c.Query("vendor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid vendor_id"})
			return
		}
		filter.VendorID = &id
	}
	if v := c.Query("state"); v != "" {
		state := models.WorkflowState(v)
		if !state.IsValid() {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid state"})
			return
		}
		filter.State = &state
	}
	if v := c.Query("category"); v != "" {
		category := models.MismatchCategory(v)
		if !category.IsValid() {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid category"})
			return
		}
		filter.Category = &category
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	records, err := s.lifecycle.ListMismatches(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}

	responses := make([]MismatchResponse, 0, len(records))
	for _, m := range records {
		responses = append(responses, toMismatchResponse(m))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

func (s *Server) handleGetMismatch(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	record, err := s.lifecycle.GetMismatch(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toMismatchResponse(record)})
}

func (s *Server) handleSubmitExplanation(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	var req ExplanationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "vendor_id and text are required"})
		return
	}

	if err := s.lifecycle.SubmitExplanation(c.Request.Context(), id, req.VendorID, req.Text); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (s *Server) handleResolveMismatch(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "manager_id and decision are required"})
		return
	}

	decision := workflow.Decision(req.Decision)
	if !decision.IsValid() {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "decision must be APPROVE or REJECT"})
		return
	}

	record, err := s.lifecycle.Resolve(c.Request.Context(), id, req.ManagerID, decision, req.Comment)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toMismatchResponse(record)})
}

func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid mismatch id"})
		return 0, false
	}
	return id, true
}

// writeError maps the workflow error taxonomy onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrInvalidState):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
