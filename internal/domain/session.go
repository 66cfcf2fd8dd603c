package domain

import "time"

const (
	SessionStatusInitializing = "initializing"
	SessionStatusActive       = "active"
	SessionStatusCompleted    = "completed"
)

// Vocabulario cerrado de emociones detectadas por turno.
const (
	EmotionNeutral      = "neutral"
	EmotionJoy          = "joy"
	EmotionLove         = "love"
	EmotionCurious      = "curious"
	EmotionGrateful     = "grateful"
	EmotionSad          = "sad"
	EmotionAnger        = "anger"
	EmotionAffectionate = "affectionate"
)

const (
	IntentGreeting = "greeting"
	IntentResponse = "response"
)

// Participant es un lado de la cita: identidad externa, direccion del agente
// para ruteo de mensajes y su perfil ya fusionado.
type Participant struct {
	UserID       string             `json:"user_id"`
	AgentAddress string             `json:"agent_address"`
	Profile      PersonalityProfile `json:"profile"`
}

// ConversationTurn es un mensaje del log. Inmutable una vez agregado.
type ConversationTurn struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion"`
	Intent    string    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationTopic es un disparador de conversacion sembrado al inicio.
type ConversationTopic struct {
	Topic           string `json:"topic"`
	Prompt          string `json:"prompt"`
	ExpectedMinutes int    `json:"expected_minutes"`
}

// SessionMetrics acumula señales de comportamiento durante la cita.
type SessionMetrics struct {
	MessageCount       int             `json:"message_count"`
	ResponseTimes      []time.Duration `json:"response_times,omitempty"`
	EmotionalAlignment []float64       `json:"emotional_alignment,omitempty"`
	EngagementScore    float64         `json:"engagement_score"`
}

// DatingSession representa una cita virtual completa.
// Invariantes: Result es nil hasta Status=completed; len(Conversation) nunca
// supera MaxTurns; las transiciones de estado son monotonicas.
type DatingSession struct {
	ID           string               `json:"id"`
	ParticipantA Participant          `json:"participant_a"`
	ParticipantB Participant          `json:"participant_b"`
	Topics       []ConversationTopic  `json:"topics,omitempty"`
	Conversation []ConversationTurn   `json:"conversation"`
	Metrics      SessionMetrics       `json:"metrics"`
	Status       string               `json:"status"`
	StartTime    time.Time            `json:"start_time"`
	EndTime      *time.Time           `json:"end_time,omitempty"`
	Duration     time.Duration        `json:"duration"`
	MaxTurns     int                  `json:"max_turns"`
	Result       *CompatibilityResult `json:"result,omitempty"`
}

// Other devuelve el participante opuesto a la direccion dada.
func (s DatingSession) Other(agentAddress string) Participant {
	if s.ParticipantA.AgentAddress == agentAddress {
		return s.ParticipantB
	}
	return s.ParticipantA
}

// LastTurn devuelve el ultimo mensaje del log, si existe.
func (s DatingSession) LastTurn() (ConversationTurn, bool) {
	if len(s.Conversation) == 0 {
		return ConversationTurn{}, false
	}
	return s.Conversation[len(s.Conversation)-1], true
}

// Clone devuelve una copia profunda apta como vista de solo lectura.
func (s DatingSession) Clone() DatingSession {
	out := s
	out.Topics = append([]ConversationTopic(nil), s.Topics...)
	out.Conversation = append([]ConversationTurn(nil), s.Conversation...)
	out.Metrics.ResponseTimes = append([]time.Duration(nil), s.Metrics.ResponseTimes...)
	out.Metrics.EmotionalAlignment = append([]float64(nil), s.Metrics.EmotionalAlignment...)
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.Result != nil {
		r := s.Result.Clone()
		out.Result = &r
	}
	return out
}
