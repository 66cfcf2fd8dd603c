package llm

import (
	"context"
	"sync"

	"mofo-asi/internal/domain"
)

// MockGenerator permite tests sin llamar a un LLM real. Si Responses esta
// vacio devuelve Response; con varios, los rota en orden.
type MockGenerator struct {
	Response  GeneratedMessage
	Responses []GeneratedMessage
	Err       error

	mu    sync.Mutex
	calls int
}

func (m *MockGenerator) Generate(ctx context.Context, profile domain.PersonalityProfile, previous *domain.ConversationTurn, intent string) (GeneratedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return GeneratedMessage{}, m.Err
	}
	if len(m.Responses) > 0 {
		return m.Responses[(m.calls-1)%len(m.Responses)], nil
	}
	return m.Response, nil
}

// Calls devuelve cuantas veces se invoco el generador.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
