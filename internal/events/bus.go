package events

import (
	"context"
	"sync"
	"time"

	"mofo-asi/internal/domain"
)

// Nombres de eventos emitidos hacia la capa UI/API excluida.
const (
	EventProfileFused     = "profile:fused"
	EventSessionStarted   = "session:started"
	EventSessionProgress  = "session:progress"
	EventSessionCompleted = "session:completed"
	EventJobCompleted     = "job:completed"
	EventJobFailed        = "job:failed"
	EventMatchesFound     = "matches:found"
)

// Event es un hecho ya ocurrido; Data lleva uno de los payloads tipados
// de este paquete.
type Event struct {
	Name string      `json:"name"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// Bus publica eventos a suscriptores in-process. Publish nunca bloquea al
// emisor: un suscriptor lento pierde eventos en vez de frenar una sesion.
type Bus interface {
	Publish(ctx context.Context, evt Event)
	Subscribe(names ...string) (<-chan Event, func())
}

// Payloads tipados por evento.

type ProfileFused struct {
	UserID    string                    `json:"user_id"`
	Profile   domain.PersonalityProfile `json:"profile"`
	FusedFrom []string                  `json:"fused_from,omitempty"`
}

type SessionStarted struct {
	SessionID    string `json:"session_id"`
	ParticipantA string `json:"participant_a"`
	ParticipantB string `json:"participant_b"`
}

type SessionProgress struct {
	SessionID          string  `json:"session_id"`
	MessageCount       int     `json:"message_count"`
	EngagementScore    float64 `json:"engagement_score"`
	EmotionalAlignment float64 `json:"emotional_alignment"`
}

type SessionCompleted struct {
	SessionID string                     `json:"session_id"`
	Result    domain.CompatibilityResult `json:"result"`
}

type JobCompleted struct {
	Queue  string      `json:"queue"`
	JobID  string      `json:"job_id"`
	Result interface{} `json:"result,omitempty"`
}

type JobFailed struct {
	Queue string `json:"queue"`
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

type MatchesFound struct {
	UserID  string        `json:"user_id"`
	Matches []ScoredMatch `json:"matches"`
}

type ScoredMatch struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

const subscriberBuffer = 64

type subscriber struct {
	names map[string]struct{}
	ch    chan Event
}

// InMemoryBus es la implementacion por defecto: canales con buffer y
// descarte silencioso cuando un suscriptor se atrasa.
type InMemoryBus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[int]*subscriber)}
}

func (b *InMemoryBus) Publish(_ context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if len(sub.names) > 0 {
			if _, ok := sub.names[evt.Name]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribe registra un consumidor; sin nombres recibe todos los eventos.
// La funcion devuelta cancela la suscripcion y cierra el canal.
func (b *InMemoryBus) Subscribe(names ...string) (<-chan Event, func()) {
	sub := &subscriber{
		names: make(map[string]struct{}, len(names)),
		ch:    make(chan Event, subscriberBuffer),
	}
	for _, n := range names {
		sub.names[n] = struct{}{}
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}
