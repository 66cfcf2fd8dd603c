package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mofo-asi/internal/domain"
)

var ErrNoSocialProfile = errors.New("social profile unavailable")

// SocialSource estima rasgos a partir del texto publico de un handle social.
type SocialSource interface {
	Extract(ctx context.Context, handle string) (*domain.TraitEstimate, error)
}

// HTTPSocialSource consulta el servicio externo de analisis de texto social.
type HTTPSocialSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPSocialSource(baseURL, apiKey string, timeout time.Duration) *HTTPSocialSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSocialSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSocialSource) Extract(ctx context.Context, handle string) (*domain.TraitEstimate, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, ErrNoSocialProfile
	}

	endpoint := s.baseURL + "/personality?handle=" + url.QueryEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("social source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoSocialProfile
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("social source: status=%d", resp.StatusCode)
	}

	var est domain.TraitEstimate
	if err := json.NewDecoder(resp.Body).Decode(&est); err != nil {
		return nil, fmt.Errorf("decode estimate: %w", err)
	}
	est.Source = domain.ProfileSourceSocial
	if est.CapturedAt.IsZero() {
		est.CapturedAt = time.Now().UTC()
	}
	return &est, nil
}

// StaticSocialSource devuelve una estimacion neutra fija para cualquier
// handle. Sirve como fuente de respaldo cuando el servicio externo no esta
// configurado y en tests.
type StaticSocialSource struct{}

func NewStaticSocialSource() *StaticSocialSource { return &StaticSocialSource{} }

func (s *StaticSocialSource) Extract(_ context.Context, handle string) (*domain.TraitEstimate, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, ErrNoSocialProfile
	}
	return &domain.TraitEstimate{
		Openness:          0.5,
		Conscientiousness: 0.5,
		Extraversion:      0.5,
		Agreeableness:     0.5,
		Neuroticism:       0.3,
		Confidence:        0.1,
		Source:            domain.ProfileSourceDefault,
		CapturedAt:        time.Now().UTC(),
	}, nil
}
