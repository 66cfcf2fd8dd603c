package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"mofo-asi/internal/domain"
)

var ErrNoSignal = errors.New("neural signal unavailable")

// NeuralSource extrae una estimacion de rasgos desde una captura de señal.
// Un nil con error significa que la fuente no esta disponible; la fusion
// degrada a las demas fuentes.
type NeuralSource interface {
	Extract(ctx context.Context, sample domain.SignalSample) (*domain.TraitEstimate, error)
}

// LocalNeuralSource mapea las features espectrales de la captura a los cinco
// rasgos nucleares con formulas fijas. Determinista: misma señal, mismo perfil.
type LocalNeuralSource struct{}

func NewLocalNeuralSource() *LocalNeuralSource { return &LocalNeuralSource{} }

func (s *LocalNeuralSource) Extract(_ context.Context, sample domain.SignalSample) (*domain.TraitEstimate, error) {
	if sample.Quality <= 0 {
		return nil, ErrNoSignal
	}
	f := sample.Features

	// Foco beta: inverso de la razon theta/beta (indice de atencion).
	betaFocus := 0.5
	if f.BetaPower+f.ThetaPower > 0 {
		betaFocus = f.BetaPower / (f.BetaPower + f.ThetaPower)
	}
	asym := (domain.ClampSigned(f.AlphaAsymmetry) + 1) / 2
	valence := (domain.ClampSigned(f.EmotionalValence) + 1) / 2

	est := &domain.TraitEstimate{
		Openness:          domain.Clamp01(0.3 + f.AlphaPower*0.3 + f.GammaCoherence*0.2 + f.ThetaPower*0.2),
		Conscientiousness: domain.Clamp01(0.3 + betaFocus*0.4 + f.EmotionalArousal*0.3),
		Extraversion:      domain.Clamp01(0.2 + asym*0.5 + f.EmotionalArousal*0.3),
		Agreeableness:     domain.Clamp01(0.3 + f.EmotionRegulation*0.4 + valence*0.3),
		Neuroticism:       math.Min(domain.Clamp01(0.1+f.EmotionalArousal*0.3+(1-valence)*0.3+(1-f.EmotionRegulation)*0.3), 0.8),
		Neural:            &f,
		Confidence:        signalConfidence(sample),
		Source:            domain.ProfileSourceNeural,
		CapturedAt:        sample.CapturedAt,
	}
	if est.CapturedAt.IsZero() {
		est.CapturedAt = time.Now().UTC()
	}
	return est, nil
}

// signalConfidence pondera calidad de señal y duracion de la captura.
// Capturas de 60s o mas con calidad perfecta llegan a 1.0.
func signalConfidence(sample domain.SignalSample) float64 {
	duration := math.Min(sample.DurationSeconds/60.0, 1.0)
	if duration < 0 {
		duration = 0
	}
	return domain.Clamp01(domain.Clamp01(sample.Quality)*0.7 + duration*0.3)
}

// HTTPNeuralSource delega la extraccion en el backend de la cabina EEG.
type HTTPNeuralSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPNeuralSource(baseURL string, timeout time.Duration) *HTTPNeuralSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNeuralSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPNeuralSource) Extract(ctx context.Context, sample domain.SignalSample) (*domain.TraitEstimate, error) {
	body, err := json.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("marshal sample: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neural source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("neural source: status=%d: %w", resp.StatusCode, ErrNoSignal)
	}

	var est domain.TraitEstimate
	if err := json.NewDecoder(resp.Body).Decode(&est); err != nil {
		return nil, fmt.Errorf("decode estimate: %w", err)
	}
	est.Source = domain.ProfileSourceNeural
	return &est, nil
}
