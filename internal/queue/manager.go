package queue

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
)

var (
	ErrQueueFull    = errors.New("queue full")
	ErrQueueUnknown = errors.New("unknown queue")
	ErrQueueClosed  = errors.New("queue manager closed")
)

const defaultQueueDepth = 64

// Handler procesa un trabajo ya validado y devuelve un resultado opaco para
// el evento terminal.
type Handler func(ctx context.Context, job *domain.Job) (interface{}, error)

type namedQueue struct {
	name    string
	jobs    chan *domain.Job
	handler Handler
}

// Manager es el gestor de colas con nombre. Cada cola tiene su propio worker
// y profundidad acotada: una cola bloqueada nunca frena a las demas, y una
// cola llena rechaza el encolado en vez de acumular sin limite.
type Manager struct {
	mu      sync.Mutex
	queues  map[string]*namedQueue
	bus     events.Bus
	logger  *zap.Logger
	depth   int
	wg      sync.WaitGroup
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewManager construye el gestor. depth <= 0 usa la profundidad por defecto.
func NewManager(bus events.Bus, logger *zap.Logger, depth int) *Manager {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		queues:  make(map[string]*namedQueue),
		bus:     bus,
		logger:  logger,
		depth:   depth,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Register crea la cola y arranca su worker. Registrar dos veces el mismo
// nombre reemplaza el handler solo si la cola aun no existe; si existe, es
// un error de programacion y se ignora con un log.
func (m *Manager) Register(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if _, ok := m.queues[name]; ok {
		m.logger.Warn("queue already registered", zap.String("queue", name))
		return
	}

	q := &namedQueue{
		name:    name,
		jobs:    make(chan *domain.Job, m.depth),
		handler: handler,
	}
	m.queues[name] = q

	m.wg.Add(1)
	go m.run(q)
}

// Enqueue valida el payload en el borde y lo deposita en su cola. El Job
// devuelto queda en estado pending; el desenlace llega por el bus de eventos.
func (m *Manager) Enqueue(ctx context.Context, payload domain.JobPayload) (*domain.Job, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", payload.Queue(), err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q, ok := m.queues[payload.Queue()]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("enqueue %s: %w", payload.Queue(), ErrQueueUnknown)
	}

	job := &domain.Job{
		ID:         uuid.NewString(),
		Queue:      q.name,
		Payload:    payload,
		Status:     domain.JobStatusPending,
		EnqueuedAt: time.Now().UTC(),
	}

	select {
	case q.jobs <- job:
		// El worker muta el estado del job; el que encola recibe una copia
		// y sigue el desenlace por los eventos terminales.
		accepted := *job
		return &accepted, nil
	default:
		return nil, fmt.Errorf("enqueue %s: %w", q.name, ErrQueueFull)
	}
}

func (m *Manager) run(q *namedQueue) {
	defer m.wg.Done()
	for job := range q.jobs {
		m.process(q, job)
	}
}

func (m *Manager) process(q *namedQueue, job *domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("job handler panic",
				zap.String("queue", q.name),
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
			)
			m.finishFailed(job, fmt.Errorf("handler panic: %v", r))
		}
	}()

	result, err := q.handler(m.baseCtx, job)
	if err != nil {
		m.finishFailed(job, err)
		return
	}

	job.Status = domain.JobStatusCompleted
	m.bus.Publish(m.baseCtx, events.Event{
		Name: events.EventJobCompleted,
		Data: events.JobCompleted{Queue: q.name, JobID: job.ID, Result: result},
	})
}

func (m *Manager) finishFailed(job *domain.Job, err error) {
	job.Status = domain.JobStatusFailed
	m.logger.Warn("job failed",
		zap.String("queue", job.Queue),
		zap.String("job_id", job.ID),
		zap.Error(err),
	)
	m.bus.Publish(m.baseCtx, events.Event{
		Name: events.EventJobFailed,
		Data: events.JobFailed{Queue: job.Queue, JobID: job.ID, Error: err.Error()},
	})
}

// Close deja de aceptar trabajos, drena lo encolado y espera a los workers.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, q := range m.queues {
		close(q.jobs)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.cancel()
}

// Depths reporta la ocupacion actual de cada cola (para el endpoint de estado).
func (m *Manager) Depths() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.queues))
	for name, q := range m.queues {
		out[name] = len(q.jobs)
	}
	return out
}
