package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neorisk-server/internal/conversation"
	"github.com/neorisk-server/internal/domain"
	"github.com/neorisk-server/internal/middleware"
)

// ConfigResponse describes the loaded risk table
type ConfigResponse struct {
	Version            string                    `json:"version"`
	MinScore           int                       `json:"min_score"`
	MaxScore           int                       `json:"max_score"`
	Parameters         []*domain.ParameterSpec   `json:"parameters"`
	RiskLevels         []domain.RiskLevel        `json:"risk_levels"`
	ProbabilityFormula domain.ProbabilityFormula `json:"probability_formula"`
}

// ChatMessageRequest is one user turn
type ChatMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	cfg := s.assessor.Config()
	status, code, store := "healthy", http.StatusOK, "ok"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.shell.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("Session store health check failed")
		status, code, store = "degraded", http.StatusServiceUnavailable, "unavailable"
	}

	c.JSON(code, gin.H{
		"status":         status,
		"timestamp":      time.Now().UTC(),
		"uptime":         time.Since(s.startedAt).Round(time.Second).String(),
		"config_version": cfg.Version,
		"session_store":  store,
	})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, NewConfigResponse(s.assessor.Config()))
}

// NewConfigResponse lists parameters in canonical order
func NewConfigResponse(cfg *domain.RiskConfig) ConfigResponse {
	params := make([]*domain.ParameterSpec, 0, domain.ParameterCount)
	for _, key := range domain.ParameterOrder {
		if spec, err := cfg.Parameter(key); err == nil {
			params = append(params, spec)
		}
	}
	return ConfigResponse{
		Version:            cfg.Version,
		MinScore:           cfg.MinScore(),
		MaxScore:           cfg.MaxScore(),
		Parameters:         params,
		RiskLevels:         cfg.RiskLevels,
		ProbabilityFormula: cfg.ProbabilityFormula,
	}
}

func (s *Server) handleAssess(c *gin.Context) {
	var req domain.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Malformed assessment payload", err)
		return
	}

	result, err := s.assessor.Assess(c.Request.Context(), req.Input())
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateChat(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"chat_id": uuid.New().String()})
}

func (s *Server) handleChatMessage(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chat_id"))

	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Malformed chat message", err)
		return
	}

	reply, err := s.shell.HandleMessage(c.Request.Context(), chatID, req.Text)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, reply)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// writeDomainError maps engine errors onto status codes
func (s *Server) writeDomainError(c *gin.Context, err error) {
	var outOfRange *domain.ValueOutOfRangeError

	switch {
	case errors.As(err, &outOfRange):
		s.abortWithError(c, http.StatusUnprocessableEntity, domain.ErrValueOutOfRange, "Value out of acceptable range", err)
	case domain.IsInputError(err):
		s.abortWithError(c, http.StatusUnprocessableEntity, domain.ErrValidation, "Invalid assessment input", err)
	case domain.IsConfigurationDefect(err):
		s.logger.WithError(err).WithField("correlation_id", middleware.GetCorrelationID(c)).
			Error("Risk configuration integrity error")
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrConfiguration, "Risk configuration error", err)
	case errors.Is(err, conversation.ErrSessionStoreUnavailable):
		s.abortWithError(c, http.StatusServiceUnavailable, domain.ErrInternalServer, "Session store unavailable", err)
	default:
		s.logger.WithError(err).Error("Unexpected assessment failure")
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Internal server error", err)
	}
}

func (s *Server) abortWithError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, middleware.GetCorrelationID(c)))
}
