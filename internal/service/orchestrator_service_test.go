package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"mofo-asi/internal/domain"
	"mofo-asi/internal/events"
	"mofo-asi/internal/llm"
	"mofo-asi/internal/repository"
)

func testParticipants() (domain.Participant, domain.Participant) {
	profile := domain.PersonalityProfile{
		Openness:          0.6,
		Conscientiousness: 0.5,
		Extraversion:      0.5,
		Agreeableness:     0.6,
		Neuroticism:       0.3,
	}
	a := domain.Participant{UserID: "ana", AgentAddress: "agent-ana", Profile: profile}
	b := domain.Participant{UserID: "bruno", AgentAddress: "agent-bruno", Profile: profile}
	return a, b
}

func newTestOrchestrator(clock Clock, gen llm.MessageGenerator, bus events.Bus) *Orchestrator {
	logger := zap.NewNop()
	return NewOrchestrator(
		NewConversationService(gen, clock, logger),
		NewCompatibilityService(logger),
		repository.NewInMemorySessionRepository(),
		nil,
		nil,
		bus,
		clock,
		logger,
	)
}

func TestStartSessionAbreConSaludo(t *testing.T) {
	clock := newFakeClock()
	bus := events.NewInMemoryBus()
	ch, cancel := bus.Subscribe(events.EventSessionStarted)
	defer cancel()

	gen := &llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Hi! Great to finally meet you."}}
	o := newTestOrchestrator(clock, gen, bus)
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	session, err := o.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != domain.SessionStatusActive {
		t.Fatalf("status = %q", session.Status)
	}
	if len(session.Conversation) != 1 {
		t.Fatalf("turnos iniciales = %d, se esperaba solo el saludo", len(session.Conversation))
	}
	if got := session.Conversation[0]; got.Intent != domain.IntentGreeting || got.Sender != a.AgentAddress {
		t.Fatalf("saludo mal formado: %+v", got)
	}
	if len(session.Topics) != 4 {
		t.Fatalf("topicos sembrados = %d", len(session.Topics))
	}

	select {
	case evt := <-ch:
		data := evt.Data.(events.SessionStarted)
		if data.SessionID != id {
			t.Fatalf("evento de otra sesion: %+v", data)
		}
	case <-time.After(time.Second):
		t.Fatalf("no llego session:started")
	}
}

func TestStartSessionRechazaParticipanteOcupado(t *testing.T) {
	clock := newFakeClock()
	o := newTestOrchestrator(clock, &llm.MockGenerator{}, events.NewInMemoryBus())
	a, b := testParticipants()

	if _, err := o.StartSession(context.Background(), a, b); err != nil {
		t.Fatalf("primera sesion: %v", err)
	}

	c := domain.Participant{UserID: "carla", AgentAddress: "agent-carla", Profile: a.Profile}
	_, err := o.StartSession(context.Background(), a, c)
	if !errors.Is(err, ErrParticipantBusy) {
		t.Fatalf("se esperaba ErrParticipantBusy, se obtuvo %v", err)
	}
}

func TestParticipantesSeLiberanAlCompletar(t *testing.T) {
	clock := newFakeClock()
	o := newTestOrchestrator(clock, &llm.MockGenerator{}, events.NewInMemoryBus())
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := o.CompleteSession(context.Background(), id); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	if _, err := o.StartSession(context.Background(), a, b); err != nil {
		t.Fatalf("tras completar deberia poder iniciar de nuevo: %v", err)
	}
}

func TestLosTurnosAvanzanConElReloj(t *testing.T) {
	clock := newFakeClock()
	gen := &llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Totally agree, that sounds lovely."}}
	o := newTestOrchestrator(clock, gen, events.NewInMemoryBus())
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// Delay por perfil neutro: ~2.8s. Con 10s deberian entrar varios turnos.
	clock.Advance(10 * time.Second)

	session, err := o.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(session.Conversation) < 3 {
		t.Fatalf("turnos tras 10s = %d, se esperaban al menos 3", len(session.Conversation))
	}
	// Los emisores alternan.
	for i := 1; i < len(session.Conversation); i++ {
		if session.Conversation[i].Sender == session.Conversation[i-1].Sender {
			t.Fatalf("turnos consecutivos del mismo emisor en %d", i)
		}
	}
}

func TestTopeDuroDeTurnos(t *testing.T) {
	clock := newFakeClock()
	gen := &llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Totally agree, that sounds lovely."}}
	o := newTestOrchestrator(clock, gen, events.NewInMemoryBus())
	// Analizador que nunca concluye: el tope de turnos debe sostenerse solo.
	o.concludeFn = func(domain.DatingSession, ConversationAnalysis) bool { return false }

	a, b := testParticipants()
	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	clock.Advance(16 * time.Minute)

	session, err := o.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(session.Conversation) > 50 {
		t.Fatalf("turnos = %d, nunca deberia superar 50", len(session.Conversation))
	}
	if session.Status != domain.SessionStatusCompleted {
		t.Fatalf("status tras el timeout = %q", session.Status)
	}
}

func TestCompletacionIdempotente(t *testing.T) {
	clock := newFakeClock()
	gen := &llm.MockGenerator{Response: llm.GeneratedMessage{Content: "What a nice thought!"}}
	o := newTestOrchestrator(clock, gen, events.NewInMemoryBus())
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	clock.Advance(10 * time.Second)

	first, err := o.CompleteSession(context.Background(), id)
	if err != nil {
		t.Fatalf("primera completacion: %v", err)
	}
	second, err := o.CompleteSession(context.Background(), id)
	if err != nil {
		t.Fatalf("segunda completacion: %v", err)
	}
	if first.Overall != second.Overall || first.Summary != second.Summary {
		t.Fatalf("la segunda llamada recomputo el resultado:\n%+v\n%+v", first, second)
	}

	// Nada se agrega despues de completar.
	before, _ := o.GetSession(context.Background(), id)
	clock.Advance(5 * time.Minute)
	after, _ := o.GetSession(context.Background(), id)
	if len(after.Conversation) != len(before.Conversation) {
		t.Fatalf("se agregaron turnos tras completar: %d -> %d", len(before.Conversation), len(after.Conversation))
	}
}

func TestTimeoutCompletaYCancelaMonitoreo(t *testing.T) {
	clock := newFakeClock()
	bus := events.NewInMemoryBus()
	gen := &llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Totally agree, that sounds lovely."}}
	o := newTestOrchestrator(clock, gen, bus)
	o.concludeFn = func(domain.DatingSession, ConversationAnalysis) bool { return false }

	a, b := testParticipants()
	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	clock.Advance(15 * time.Minute)

	session, _ := o.GetSession(context.Background(), id)
	if session.Status != domain.SessionStatusCompleted {
		t.Fatalf("la sesion deberia completarse en el tope de 15m, status = %q", session.Status)
	}

	// Ya completada: no deben quedar ticks de progreso pendientes.
	ch, cancel := bus.Subscribe(events.EventSessionProgress)
	defer cancel()
	clock.Advance(5 * time.Minute)
	select {
	case evt := <-ch:
		t.Fatalf("tick de monitoreo despues de completar: %+v", evt)
	default:
	}
}

func TestSesionCompletaSoloConPlantillas(t *testing.T) {
	clock := newFakeClock()
	bus := events.NewInMemoryBus()
	ch, cancel := bus.Subscribe(events.EventSessionCompleted)
	defer cancel()

	gen := &llm.MockGenerator{Err: errors.New("llm caido")}
	o := newTestOrchestrator(clock, gen, bus)
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	clock.Advance(16 * time.Minute)

	session, err := o.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %q", session.Status)
	}
	if len(session.Conversation) < 2 {
		t.Fatalf("turnos = %d, el fallback deberia sostener el intercambio", len(session.Conversation))
	}
	for i, turn := range session.Conversation {
		if turn.Content != fallbackMessages[domain.IntentGreeting] &&
			turn.Content != fallbackMessages[domain.IntentResponse] {
			t.Fatalf("turno %d no es de plantilla: %q", i, turn.Content)
		}
	}
	if session.Result == nil {
		t.Fatalf("sesion completada sin resultado")
	}

	select {
	case evt := <-ch:
		data := evt.Data.(events.SessionCompleted)
		if data.SessionID != id {
			t.Fatalf("evento de otra sesion: %+v", data)
		}
	case <-time.After(time.Second):
		t.Fatalf("no llego session:completed")
	}
}

func TestGetSessionInexistente(t *testing.T) {
	o := newTestOrchestrator(newFakeClock(), &llm.MockGenerator{}, events.NewInMemoryBus())
	if _, err := o.GetSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("se esperaba ErrSessionNotFound, se obtuvo %v", err)
	}
	if _, err := o.CompleteSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("se esperaba ErrSessionNotFound, se obtuvo %v", err)
	}
}

type fakeResultArchive struct {
	saved map[string]domain.CompatibilityResult
}

func (r *fakeResultArchive) Save(_ context.Context, sessionID string, result domain.CompatibilityResult) error {
	if r.saved == nil {
		r.saved = make(map[string]domain.CompatibilityResult)
	}
	r.saved[sessionID] = result
	return nil
}

func (r *fakeResultArchive) Get(_ context.Context, sessionID string) (domain.CompatibilityResult, error) {
	result, ok := r.saved[sessionID]
	if !ok {
		return domain.CompatibilityResult{}, repository.ErrResultNotFound
	}
	return result, nil
}

func TestSessionResultAntesYDespuesDeCompletar(t *testing.T) {
	clock := newFakeClock()
	logger := zap.NewNop()
	archive := &fakeResultArchive{}
	o := NewOrchestrator(
		NewConversationService(&llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Hi!"}}, clock, logger),
		NewCompatibilityService(logger),
		repository.NewInMemorySessionRepository(),
		archive,
		nil,
		events.NewInMemoryBus(),
		clock,
		logger,
	)
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	if _, err := o.SessionResult(context.Background(), id); !errors.Is(err, ErrResultNotReady) {
		t.Fatalf("sesion activa: se esperaba ErrResultNotReady, se obtuvo %v", err)
	}

	completed, err := o.CompleteSession(context.Background(), id)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	got, err := o.SessionResult(context.Background(), id)
	if err != nil {
		t.Fatalf("SessionResult tras completar: %v", err)
	}
	if got.Overall != completed.Overall || got.Recommendation != completed.Recommendation {
		t.Fatalf("resultado distinto al de completacion: %+v vs %+v", got, completed)
	}

	if archived, ok := archive.saved[id]; !ok || archived.Overall != completed.Overall {
		t.Fatalf("el resultado no quedo archivado: %+v", archive.saved)
	}

	if _, err := o.SessionResult(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("sesion inexistente: se esperaba ErrSessionNotFound, se obtuvo %v", err)
	}
}

// capturaSesionesRepo retiene los punteros que recibe, para verificar que el
// orquestador entrega copias y no su estado vivo.
type capturaSesionesRepo struct {
	created *domain.DatingSession
	updated *domain.DatingSession
}

func (r *capturaSesionesRepo) Create(_ context.Context, s *domain.DatingSession) error {
	r.created = s
	return nil
}

func (r *capturaSesionesRepo) Update(_ context.Context, s *domain.DatingSession) error {
	r.updated = s
	return nil
}

func (r *capturaSesionesRepo) Get(_ context.Context, _ string) (*domain.DatingSession, error) {
	return nil, repository.ErrSessionNotFound
}

func (r *capturaSesionesRepo) ListActive(_ context.Context) ([]*domain.DatingSession, error) {
	return nil, nil
}

func TestPersistenciaRecibeCopiasNoElEstadoVivo(t *testing.T) {
	clock := newFakeClock()
	logger := zap.NewNop()
	repo := &capturaSesionesRepo{}
	o := NewOrchestrator(
		NewConversationService(&llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Tell me more about your day."}}, clock, logger),
		NewCompatibilityService(logger),
		repo,
		nil,
		nil,
		events.NewInMemoryBus(),
		clock,
		logger,
	)
	a, b := testParticipants()

	if _, err := o.StartSession(context.Background(), a, b); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if repo.created == nil || len(repo.created.Conversation) != 1 {
		t.Fatalf("la copia inicial deberia tener solo el saludo: %+v", repo.created)
	}

	clock.Advance(10 * time.Second)
	captured := repo.updated
	if captured == nil {
		t.Fatalf("no hubo Update tras avanzar el reloj")
	}
	turnos := len(captured.Conversation)
	mensajes := captured.Metrics.MessageCount

	// Mas turnos no deben mover las copias ya entregadas al almacen.
	clock.Advance(10 * time.Second)
	if len(repo.updated.Conversation) <= turnos {
		t.Fatalf("el intercambio no avanzo tras el segundo avance")
	}
	if len(captured.Conversation) != turnos || captured.Metrics.MessageCount != mensajes {
		t.Fatalf("el almacen comparte estado vivo: turnos %d -> %d", turnos, len(captured.Conversation))
	}
	if len(repo.created.Conversation) != 1 {
		t.Fatalf("la copia de creacion siguio mutando: %d turnos", len(repo.created.Conversation))
	}
}

func TestLecturasConcurrentesDuranteElIntercambio(t *testing.T) {
	clock := newFakeClock()
	bus := events.NewInMemoryBus()
	gen := &llm.MockGenerator{Response: llm.GeneratedMessage{Content: "What do you enjoy doing on weekends?"}}
	o := newTestOrchestrator(clock, gen, bus)
	a, b := testParticipants()

	id, err := o.StartSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			if s, gerr := o.GetSession(context.Background(), id); gerr == nil {
				_ = len(s.Conversation)
				_ = s.Metrics.MessageCount
			}
			_ = o.ActiveSessions()
		}
	}()

	for i := 0; i < 10; i++ {
		clock.Advance(3 * time.Second)
	}
	<-done

	session, err := o.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(session.Conversation) < 2 {
		t.Fatalf("turnos = %d, el intercambio no avanzo", len(session.Conversation))
	}
}

type fallaCreacionRepo struct{}

func (fallaCreacionRepo) Create(_ context.Context, _ *domain.DatingSession) error {
	return errors.New("almacen caido")
}

func (fallaCreacionRepo) Get(_ context.Context, _ string) (*domain.DatingSession, error) {
	return nil, repository.ErrSessionNotFound
}

func (fallaCreacionRepo) Update(_ context.Context, _ *domain.DatingSession) error {
	return repository.ErrSessionNotFound
}

func (fallaCreacionRepo) ListActive(_ context.Context) ([]*domain.DatingSession, error) {
	return nil, nil
}

func TestStartSessionDeshaceRegistroSiElAlmacenFalla(t *testing.T) {
	clock := newFakeClock()
	logger := zap.NewNop()
	o := NewOrchestrator(
		NewConversationService(&llm.MockGenerator{Response: llm.GeneratedMessage{Content: "Hi!"}}, clock, logger),
		NewCompatibilityService(logger),
		fallaCreacionRepo{},
		nil,
		nil,
		events.NewInMemoryBus(),
		clock,
		logger,
	)
	a, b := testParticipants()

	if _, err := o.StartSession(context.Background(), a, b); err == nil {
		t.Fatalf("StartSession deberia fallar con el almacen caido")
	}
	if got := o.ActiveSessions(); got != 0 {
		t.Fatalf("sesiones activas tras el fallo = %d", got)
	}
	if got := clock.pendingTimers(); got != 0 {
		t.Fatalf("timers armados tras el fallo = %d", got)
	}

	// Los participantes quedan libres: un reintento no choca con la reserva.
	if _, err := o.StartSession(context.Background(), a, b); errors.Is(err, ErrParticipantBusy) {
		t.Fatalf("participantes aun reservados tras el fallo: %v", err)
	}
}
