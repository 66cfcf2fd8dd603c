package domain

import (
	"errors"
	"strings"
	"time"
)

// Colas con nombre del gestor de trabajos asincronicos.
const (
	QueueAgentCreation  = "agent-creation"
	QueueSignalAnalysis = "signal-analysis"
	QueueMatching       = "matching"
	QueueConversation   = "conversation-generation"
)

const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

var ErrInvalidPayload = errors.New("invalid job payload")

// JobPayload es la variante tipada por cola. La validacion ocurre en el
// borde de la cola; aguas abajo el payload ya es confiable.
type JobPayload interface {
	Queue() string
	Validate() error
}

// Job es una unidad de trabajo con nombre. Se procesa exactamente una vez y
// termina en completed o failed; no hay reintentos automaticos.
type Job struct {
	ID         string     `json:"id"`
	Queue      string     `json:"queue"`
	Payload    JobPayload `json:"payload"`
	Status     string     `json:"status"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// AgentCreationPayload pide registrar un agente personalizado para un usuario.
type AgentCreationPayload struct {
	UserID        string             `json:"user_id"`
	WorldID       string             `json:"world_id,omitempty"`
	WalletAddress string             `json:"wallet_address,omitempty"`
	SocialHandle  string             `json:"social_handle,omitempty"`
	Profile       PersonalityProfile `json:"profile"`
}

func (p AgentCreationPayload) Queue() string { return QueueAgentCreation }

func (p AgentCreationPayload) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidPayload
	}
	return nil
}

// SignalAnalysisPayload pide extraer y fusionar personalidad desde una
// captura neural (y opcionalmente un handle social).
type SignalAnalysisPayload struct {
	Sample       SignalSample `json:"sample"`
	SocialHandle string       `json:"social_handle,omitempty"`
}

func (p SignalAnalysisPayload) Queue() string { return QueueSignalAnalysis }

func (p SignalAnalysisPayload) Validate() error {
	if strings.TrimSpace(p.Sample.UserID) == "" {
		return ErrInvalidPayload
	}
	return nil
}

// MatchingPayload pide rankear candidatos contra el perfil de un usuario.
// Sin candidatos explicitos, el worker los resuelve desde el almacen de
// perfiles por cercania de rasgos.
type MatchingPayload struct {
	UserID     string             `json:"user_id"`
	Profile    PersonalityProfile `json:"profile"`
	Candidates []Participant      `json:"candidates,omitempty"`
	Limit      int                `json:"limit,omitempty"`
}

func (p MatchingPayload) Queue() string { return QueueMatching }

func (p MatchingPayload) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidPayload
	}
	return nil
}

// ConversationPayload pide generar un mensaje fuera del loop de una sesion
// (por ejemplo, para previsualizaciones del hub).
type ConversationPayload struct {
	Profile  PersonalityProfile `json:"profile"`
	Previous *ConversationTurn  `json:"previous,omitempty"`
	Intent   string             `json:"intent"`
}

func (p ConversationPayload) Queue() string { return QueueConversation }

func (p ConversationPayload) Validate() error {
	if p.Intent != IntentGreeting && p.Intent != IntentResponse {
		return ErrInvalidPayload
	}
	return nil
}
