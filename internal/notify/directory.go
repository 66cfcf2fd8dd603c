package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AgentDirectory notifica al directorio externo de agentes que una cita
// comenzo o termino. Es fire-and-forget: un fallo se registra y no afecta
// a la sesion.
type AgentDirectory interface {
	NotifySessionStarted(ctx context.Context, sessionID, agentA, agentB string)
	NotifySessionCompleted(ctx context.Context, sessionID string, overall float64)
}

// HTTPDirectory publica las notificaciones por HTTP.
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPDirectory(baseURL, apiKey string, logger *zap.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (d *HTTPDirectory) NotifySessionStarted(ctx context.Context, sessionID, agentA, agentB string) {
	d.post(ctx, "/sessions/started", map[string]interface{}{
		"session_id": sessionID,
		"agent_a":    agentA,
		"agent_b":    agentB,
	})
}

func (d *HTTPDirectory) NotifySessionCompleted(ctx context.Context, sessionID string, overall float64) {
	d.post(ctx, "/sessions/completed", map[string]interface{}{
		"session_id": sessionID,
		"overall":    overall,
	})
}

func (d *HTTPDirectory) post(ctx context.Context, path string, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("directory notification failed", zap.String("path", path), zap.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		d.logger.Warn("directory notification rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
	}
}

// NoopDirectory descarta toda notificacion; se usa cuando el directorio no
// esta configurado.
type NoopDirectory struct{}

func (NoopDirectory) NotifySessionStarted(context.Context, string, string, string) {}
func (NoopDirectory) NotifySessionCompleted(context.Context, string, float64)      {}
