package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mofo-asi/internal/domain"
	"mofo-asi/internal/queue"
	"mofo-asi/internal/service"
	"mofo-asi/internal/source"
)

// Subsystems reporta que dependencias opcionales quedaron configuradas.
type Subsystems struct {
	Postgres  bool `json:"postgres"`
	Redis     bool `json:"redis"`
	LLM       bool `json:"llm"`
	Neural    bool `json:"neural_source"`
	Social    bool `json:"social_source"`
	Directory bool `json:"agent_directory"`
}

// DateHandler expone la superficie HTTP del motor de citas.
type DateHandler struct {
	orchestrator *service.Orchestrator
	fusion       *service.FusionService
	jobs         *queue.Manager
	neural       source.NeuralSource
	social       source.SocialSource
	subsystems   Subsystems
	logger       *zap.Logger
}

func NewDateHandler(
	orchestrator *service.Orchestrator,
	fusion *service.FusionService,
	jobs *queue.Manager,
	neural source.NeuralSource,
	social source.SocialSource,
	subsystems Subsystems,
	logger *zap.Logger,
) *DateHandler {
	return &DateHandler{
		orchestrator: orchestrator,
		fusion:       fusion,
		jobs:         jobs,
		neural:       neural,
		social:       social,
		subsystems:   subsystems,
		logger:       logger,
	}
}

type startDateRequest struct {
	ParticipantA domain.Participant `json:"participant_a" binding:"required"`
	ParticipantB domain.Participant `json:"participant_b" binding:"required"`
}

// StartDate inicia una cita virtual entre dos participantes.
func (h *DateHandler) StartDate(c *gin.Context) {
	var req startDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.ParticipantA.UserID == "" || req.ParticipantB.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "both participants need a user_id"})
		return
	}

	id, err := h.orchestrator.StartSession(c.Request.Context(), req.ParticipantA, req.ParticipantB)
	if err != nil {
		if errors.Is(err, service.ErrParticipantBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "participant already in an active date"})
			return
		}
		h.logger.Error("start date failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start date"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

// GetDate devuelve la vista de solo lectura de una sesion.
func (h *DateHandler) GetDate(c *gin.Context) {
	session, err := h.orchestrator.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("get date failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetDateResult devuelve el resultado de compatibilidad de una cita.
func (h *DateHandler) GetDateResult(c *gin.Context) {
	result, err := h.orchestrator.SessionResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrResultNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": "session not completed yet"})
		default:
			h.logger.Error("get result failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load result"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteDate fuerza el cierre de una cita y devuelve el resultado.
func (h *DateHandler) CompleteDate(c *gin.Context) {
	result, err := h.orchestrator.CompleteSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("complete date failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete session"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type fuseRequest struct {
	UserID       string                `json:"user_id" binding:"required"`
	Sample       *domain.SignalSample  `json:"sample,omitempty"`
	SocialHandle string                `json:"social_handle,omitempty"`
	Neural       *domain.TraitEstimate `json:"neural,omitempty"`
	Social       *domain.TraitEstimate `json:"social,omitempty"`
}

// FusePersonality combina las fuentes disponibles en un perfil. Acepta
// estimaciones ya calculadas o materia prima (captura de señal, handle
// social) para resolver contra las fuentes configuradas.
func (h *DateHandler) FusePersonality(c *gin.Context) {
	var req fuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	neural := req.Neural
	if neural == nil && req.Sample != nil && h.neural != nil {
		est, err := h.neural.Extract(c.Request.Context(), *req.Sample)
		if err != nil {
			h.logger.Warn("neural extraction failed", zap.String("user_id", req.UserID), zap.Error(err))
		} else {
			neural = est
		}
	}

	social := req.Social
	if social == nil && req.SocialHandle != "" && h.social != nil {
		est, err := h.social.Extract(c.Request.Context(), req.SocialHandle)
		if err != nil {
			h.logger.Warn("social extraction failed", zap.String("user_id", req.UserID), zap.Error(err))
		} else {
			social = est
		}
	}

	profile := h.fusion.Fuse(c.Request.Context(), req.UserID, neural, social)
	c.JSON(http.StatusOK, profile)
}

type matchRequest struct {
	UserID     string                    `json:"user_id" binding:"required"`
	Profile    domain.PersonalityProfile `json:"profile"`
	Candidates []domain.Participant      `json:"candidates,omitempty"`
	Limit      int                       `json:"limit,omitempty"`
}

// RequestMatches encola un trabajo de matching; el resultado llega por el
// bus de eventos (y el espejo redis si esta configurado).
func (h *DateHandler) RequestMatches(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	job, err := h.jobs.Enqueue(c.Request.Context(), domain.MatchingPayload{
		UserID:     req.UserID,
		Profile:    req.Profile,
		Candidates: req.Candidates,
		Limit:      req.Limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid matching payload"})
		case errors.Is(err, queue.ErrQueueFull):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "matching queue full, retry later"})
		default:
			h.logger.Error("enqueue matching failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue job"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "queue": job.Queue})
}

// Status reporta la salud del servicio y sus subsistemas.
func (h *DateHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": h.orchestrator.ActiveSessions(),
		"queues":          h.jobs.Depths(),
		"subsystems":      h.subsystems,
	})
}
