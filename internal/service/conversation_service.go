package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mofo-asi/internal/domain"
	"mofo-asi/internal/llm"
)

const (
	baseResponseDelay = 3 * time.Second
	generateTimeout   = 20 * time.Second
)

// Mensajes de respaldo por intencion: el simulador siempre avanza aunque
// el generador externo este caido.
var fallbackMessages = map[string]string{
	domain.IntentGreeting: "Hello! It's nice to meet you. How are you doing today?",
	domain.IntentResponse: "That's interesting! Tell me more about that.",
}

// ConversationService genera turnos de conversacion con timing natural.
type ConversationService struct {
	generator llm.MessageGenerator
	clock     Clock
	logger    *zap.Logger
}

func NewConversationService(generator llm.MessageGenerator, clock Clock, logger *zap.Logger) *ConversationService {
	return &ConversationService{generator: generator, clock: clock, logger: logger}
}

// GenerateTurn produce el siguiente mensaje del emisor dado. Un fallo del
// generador degrada a la plantilla del intent, nunca a un error.
func (s *ConversationService) GenerateTurn(ctx context.Context, sender domain.Participant, previous *domain.ConversationTurn, intent string) domain.ConversationTurn {
	content := s.generateContent(ctx, sender.Profile, previous, intent)
	return domain.ConversationTurn{
		Sender:    sender.AgentAddress,
		Content:   content,
		Emotion:   DetectEmotion(content),
		Intent:    intent,
		Timestamp: s.clock.Now(),
	}
}

func (s *ConversationService) generateContent(ctx context.Context, profile domain.PersonalityProfile, previous *domain.ConversationTurn, intent string) string {
	if s.generator == nil {
		return fallbackFor(intent)
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	msg, err := s.generator.Generate(genCtx, profile, previous, intent)
	if err != nil || msg.Content == "" {
		s.logger.Warn("message generator unavailable, using fallback",
			zap.String("intent", intent),
			zap.Error(err),
		)
		return fallbackFor(intent)
	}
	return msg.Content
}

func fallbackFor(intent string) string {
	if msg, ok := fallbackMessages[intent]; ok {
		return msg
	}
	return fallbackMessages[domain.IntentResponse]
}

// ResponseDelay simula el tiempo de tipeo: extravertidos responden mas
// rapido, los concienzudos se toman un poco mas.
func ResponseDelay(p domain.PersonalityProfile) time.Duration {
	factor := (1 - p.Extraversion*0.3) * (1 + p.Conscientiousness*0.2)
	return time.Duration(float64(baseResponseDelay) * factor)
}

// ShouldConclude evalua las condiciones de cierre natural de una cita.
// El tope duro de turnos lo impone el orquestador por separado.
func ShouldConclude(session domain.DatingSession, analysis ConversationAnalysis) bool {
	if len(session.Conversation) > 40 {
		return true
	}
	if analysis.EngagementScore < 0.3 && len(session.Conversation) > 10 {
		return true
	}
	if last, ok := session.LastTurn(); ok && IsFarewell(last.Content) {
		return true
	}
	return false
}
