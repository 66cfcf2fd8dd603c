package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mofo-asi/internal/domain"
	"mofo-asi/internal/events"
	"mofo-asi/internal/notify"
	"mofo-asi/internal/repository"
)

var (
	ErrParticipantBusy  = errors.New("participant already in an active session")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrResultNotReady   = errors.New("session result not ready")
)

const (
	defaultMaxTurns = 50
	sessionDuration = 15 * time.Minute
	monitorInterval = 30 * time.Second
)

// sessionRuntime es el estado vivo de una cita: la sesion mutable mas los
// timers pendientes. Solo el orquestador lo toca, siempre bajo mu.
type sessionRuntime struct {
	mu        sync.Mutex
	session   *domain.DatingSession
	turnTimer Timer
	monitor   Timer
	timeout   Timer
	completed bool
}

// Orchestrator conduce citas virtuales de punta a punta: creacion, loop de
// turnos, monitoreo y completacion con resultado de compatibilidad.
type Orchestrator struct {
	conversation  *ConversationService
	compatibility *CompatibilityService
	sessions      repository.SessionRepository
	results       repository.ResultRepository
	directory     notify.AgentDirectory
	bus           events.Bus
	clock         Clock
	logger        *zap.Logger

	concludeFn func(domain.DatingSession, ConversationAnalysis) bool

	mu       sync.Mutex
	runtimes map[string]*sessionRuntime
	byUser   map[string]string
}

func NewOrchestrator(
	conversation *ConversationService,
	compatibility *CompatibilityService,
	sessions repository.SessionRepository,
	results repository.ResultRepository,
	directory notify.AgentDirectory,
	bus events.Bus,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	if directory == nil {
		directory = notify.NoopDirectory{}
	}
	return &Orchestrator{
		conversation:  conversation,
		compatibility: compatibility,
		sessions:      sessions,
		results:       results,
		directory:     directory,
		bus:           bus,
		clock:         clock,
		logger:        logger,
		concludeFn:    ShouldConclude,
		runtimes:      make(map[string]*sessionRuntime),
		byUser:        make(map[string]string),
	}
}

// StartSession crea e inicia una cita entre dos participantes. Falla con
// ErrParticipantBusy si alguno ya tiene una sesion activa. El saludo inicial
// de A se genera de forma sincronica; el resto del intercambio corre por
// timers del reloj inyectado.
func (o *Orchestrator) StartSession(ctx context.Context, a, b domain.Participant) (string, error) {
	o.mu.Lock()
	if _, busy := o.byUser[a.UserID]; busy {
		o.mu.Unlock()
		return "", fmt.Errorf("user %s: %w", a.UserID, ErrParticipantBusy)
	}
	if _, busy := o.byUser[b.UserID]; busy {
		o.mu.Unlock()
		return "", fmt.Errorf("user %s: %w", b.UserID, ErrParticipantBusy)
	}

	now := o.clock.Now()
	session := &domain.DatingSession{
		ID:           uuid.NewString(),
		ParticipantA: a,
		ParticipantB: b,
		Topics:       GenerateStarters(a, b),
		Status:       domain.SessionStatusInitializing,
		StartTime:    now,
		MaxTurns:     defaultMaxTurns,
	}
	rt := &sessionRuntime{session: session}
	o.runtimes[session.ID] = rt
	o.byUser[a.UserID] = session.ID
	o.byUser[b.UserID] = session.ID
	o.mu.Unlock()

	o.logger.Info("virtual date starting",
		zap.String("session_id", session.ID),
		zap.String("participant_a", a.UserID),
		zap.String("participant_b", b.UserID),
	)

	rt.mu.Lock()
	session.Status = domain.SessionStatusActive

	// A abre con el saludo; B queda agendado para responder.
	greeting := o.conversation.GenerateTurn(ctx, a, nil, domain.IntentGreeting)
	session.Conversation = append(session.Conversation, greeting)
	session.Metrics.MessageCount = len(session.Conversation)
	snapshot := session.Clone()
	rt.mu.Unlock()

	// La sesion se persiste antes de armar timers: si el almacen falla, la
	// registracion se deshace completa y ningun callback queda pendiente.
	if err := o.sessions.Create(ctx, &snapshot); err != nil {
		o.mu.Lock()
		delete(o.runtimes, session.ID)
		delete(o.byUser, a.UserID)
		delete(o.byUser, b.UserID)
		o.mu.Unlock()
		return "", fmt.Errorf("store session: %w", err)
	}

	rt.mu.Lock()
	rt.timeout = o.clock.AfterFunc(sessionDuration, func() {
		if _, err := o.CompleteSession(context.Background(), session.ID); err != nil && !errors.Is(err, ErrSessionCompleted) {
			o.logger.Warn("timeout completion failed", zap.String("session_id", session.ID), zap.Error(err))
		}
	})
	rt.monitor = o.clock.AfterFunc(monitorInterval, func() { o.monitorTick(session.ID) })
	o.scheduleResponseLocked(rt, b, greeting)
	rt.mu.Unlock()

	o.bus.Publish(ctx, events.Event{
		Name: events.EventSessionStarted,
		Data: events.SessionStarted{SessionID: session.ID, ParticipantA: a.UserID, ParticipantB: b.UserID},
	})
	o.directory.NotifySessionStarted(ctx, session.ID, a.AgentAddress, b.AgentAddress)

	return session.ID, nil
}

// scheduleResponseLocked agenda la respuesta de responder al mensaje dado.
// Requiere rt.mu tomado.
func (o *Orchestrator) scheduleResponseLocked(rt *sessionRuntime, responder domain.Participant, previous domain.ConversationTurn) {
	delay := ResponseDelay(responder.Profile)
	rt.turnTimer = o.clock.AfterFunc(delay, func() {
		o.executeTurn(rt, responder, previous)
	})
}

func (o *Orchestrator) executeTurn(rt *sessionRuntime, responder domain.Participant, previous domain.ConversationTurn) {
	sessionID := ""
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("turn loop panic", zap.String("session_id", sessionID), zap.Any("panic", r))
			if sessionID != "" {
				_, _ = o.CompleteSession(context.Background(), sessionID)
			}
		}
	}()

	rt.mu.Lock()
	session := rt.session
	sessionID = session.ID
	if rt.completed || session.Status != domain.SessionStatusActive {
		rt.mu.Unlock()
		return
	}
	if len(session.Conversation) >= session.MaxTurns {
		rt.mu.Unlock()
		if _, err := o.CompleteSession(context.Background(), sessionID); err != nil && !errors.Is(err, ErrSessionCompleted) {
			o.logger.Warn("turn-cap completion failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return
	}
	rt.mu.Unlock()

	// Generacion fuera del lock: puede tardar lo que tarde el LLM.
	turn := o.conversation.GenerateTurn(context.Background(), responder, &previous, domain.IntentResponse)

	rt.mu.Lock()
	if rt.completed || session.Status != domain.SessionStatusActive || len(session.Conversation) >= session.MaxTurns {
		rt.mu.Unlock()
		return
	}
	session.Conversation = append(session.Conversation, turn)
	session.Metrics.MessageCount = len(session.Conversation)
	session.Metrics.ResponseTimes = append(session.Metrics.ResponseTimes, ResponseDelay(responder.Profile))

	if len(session.Conversation) < session.MaxTurns {
		next := session.Other(responder.AgentAddress)
		o.scheduleResponseLocked(rt, next, turn)
	}
	// El almacen recibe una copia tomada bajo el lock: la sesion viva sigue
	// mutando por timers y no puede compartirse fuera del runtime.
	snapshot := session.Clone()
	rt.mu.Unlock()

	if err := o.sessions.Update(context.Background(), &snapshot); err != nil {
		o.logger.Warn("session update failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// monitorTick analiza la conversacion, publica progreso y decide si la cita
// llego a su conclusion natural. Se rearma solo mientras la sesion siga viva.
func (o *Orchestrator) monitorTick(sessionID string) {
	o.mu.Lock()
	rt, ok := o.runtimes[sessionID]
	o.mu.Unlock()
	if !ok {
		return
	}

	rt.mu.Lock()
	if rt.completed || rt.session.Status != domain.SessionStatusActive {
		rt.mu.Unlock()
		return
	}
	snapshot := rt.session.Clone()
	rt.mu.Unlock()

	analysis := AnalyzeConversation(snapshot.Conversation)

	rt.mu.Lock()
	if !rt.completed {
		rt.session.Metrics.EngagementScore = analysis.EngagementScore
		rt.session.Metrics.EmotionalAlignment = append(rt.session.Metrics.EmotionalAlignment, analysis.EmotionalAlignment)
	}
	rt.mu.Unlock()

	o.bus.Publish(context.Background(), events.Event{
		Name: events.EventSessionProgress,
		Data: events.SessionProgress{
			SessionID:          sessionID,
			MessageCount:       len(snapshot.Conversation),
			EngagementScore:    analysis.EngagementScore,
			EmotionalAlignment: analysis.EmotionalAlignment,
		},
	})

	if o.concludeFn(snapshot, analysis) {
		if _, err := o.CompleteSession(context.Background(), sessionID); err != nil && !errors.Is(err, ErrSessionCompleted) {
			o.logger.Warn("natural completion failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return
	}

	rt.mu.Lock()
	if !rt.completed {
		rt.monitor = o.clock.AfterFunc(monitorInterval, func() { o.monitorTick(sessionID) })
	}
	rt.mu.Unlock()
}

// CompleteSession cierra la cita y construye el resultado. Es idempotente:
// una segunda llamada devuelve el resultado cacheado sin recomputar nada.
func (o *Orchestrator) CompleteSession(ctx context.Context, sessionID string) (domain.CompatibilityResult, error) {
	o.mu.Lock()
	rt, ok := o.runtimes[sessionID]
	o.mu.Unlock()
	if !ok {
		return domain.CompatibilityResult{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	rt.mu.Lock()
	if rt.completed {
		result := rt.session.Result.Clone()
		rt.mu.Unlock()
		return result, nil
	}
	rt.completed = true

	// Nada puede disparar despues de este punto.
	if rt.turnTimer != nil {
		rt.turnTimer.Stop()
	}
	if rt.monitor != nil {
		rt.monitor.Stop()
	}
	if rt.timeout != nil {
		rt.timeout.Stop()
	}

	session := rt.session
	now := o.clock.Now()
	session.Status = domain.SessionStatusCompleted
	session.EndTime = &now
	session.Duration = now.Sub(session.StartTime)

	analysis := AnalyzeConversation(session.Conversation)
	result := o.compatibility.SessionCompatibility(*session, analysis)
	session.Result = &result
	session.Metrics.EngagementScore = analysis.EngagementScore
	snapshot := session.Clone()
	rt.mu.Unlock()

	o.mu.Lock()
	delete(o.byUser, session.ParticipantA.UserID)
	delete(o.byUser, session.ParticipantB.UserID)
	o.mu.Unlock()

	if err := o.sessions.Update(ctx, &snapshot); err != nil {
		o.logger.Warn("completed session update failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if o.results != nil {
		if err := o.results.Save(ctx, sessionID, result); err != nil {
			o.logger.Warn("result archive failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	o.logger.Info("virtual date completed",
		zap.String("session_id", sessionID),
		zap.Float64("overall", result.Overall),
		zap.String("recommendation", result.Recommendation),
	)
	o.bus.Publish(ctx, events.Event{
		Name: events.EventSessionCompleted,
		Data: events.SessionCompleted{SessionID: sessionID, Result: result},
	})
	o.directory.NotifySessionCompleted(ctx, sessionID, result.Overall)

	return result.Clone(), nil
}

// GetSession devuelve una vista de solo lectura de la sesion.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*domain.DatingSession, error) {
	o.mu.Lock()
	rt, ok := o.runtimes[sessionID]
	o.mu.Unlock()
	if ok {
		rt.mu.Lock()
		snapshot := rt.session.Clone()
		rt.mu.Unlock()
		return &snapshot, nil
	}

	session, err := o.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return session, err
}

// SessionResult devuelve el resultado de compatibilidad de una cita. Si la
// sesion ya no vive en memoria, consulta el archivo persistente de resultados.
func (o *Orchestrator) SessionResult(ctx context.Context, sessionID string) (domain.CompatibilityResult, error) {
	session, err := o.GetSession(ctx, sessionID)
	if err == nil {
		if session.Result == nil {
			return domain.CompatibilityResult{}, fmt.Errorf("session %s: %w", sessionID, ErrResultNotReady)
		}
		return session.Result.Clone(), nil
	}
	if !errors.Is(err, ErrSessionNotFound) || o.results == nil {
		return domain.CompatibilityResult{}, err
	}

	result, rerr := o.results.Get(ctx, sessionID)
	if errors.Is(rerr, repository.ErrResultNotFound) {
		return domain.CompatibilityResult{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return result, rerr
}

// ActiveSessions cuenta las citas en curso (para el endpoint de estado).
func (o *Orchestrator) ActiveSessions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, rt := range o.runtimes {
		rt.mu.Lock()
		if !rt.completed {
			count++
		}
		rt.mu.Unlock()
	}
	return count
}
