package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mofo-asi/internal/domain"
)

// GeneratedMessage es la salida del generador externo. EmotionHint es
// opcional; el simulador vuelve a etiquetar con sus propias heuristicas.
type GeneratedMessage struct {
	Content     string
	EmotionHint string
}

// MessageGenerator define la interfaz hacia el servicio LLM externo.
// Puede fallar o no estar configurado: el simulador degrada a plantillas.
type MessageGenerator interface {
	Generate(ctx context.Context, profile domain.PersonalityProfile, previous *domain.ConversationTurn, intent string) (GeneratedMessage, error)
}

type logger interface {
	Printf(format string, v ...interface{})
}

// HTTPGenerator implementa MessageGenerator contra una API de chat
// completions compatible con OpenAI.
type HTTPGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  logger
}

// NewHTTPGenerator construye el cliente HTTP del generador de mensajes.
func NewHTTPGenerator(baseURL, apiKey, model string, log any) *HTTPGenerator {
	l, _ := log.(logger)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &HTTPGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  l,
	}
}

func (c *HTTPGenerator) Generate(ctx context.Context, profile domain.PersonalityProfile, previous *domain.ConversationTurn, intent string) (GeneratedMessage, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildMessagePrompt(profile, previous, intent)},
		},
		Temperature: messageTemperature(profile),
		MaxTokens:   150,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return GeneratedMessage{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return GeneratedMessage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return GeneratedMessage{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return GeneratedMessage{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Printf("llm error status %d: %s", resp.StatusCode, string(respBody))
		}
		return GeneratedMessage{}, fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return GeneratedMessage{}, fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return GeneratedMessage{}, fmt.Errorf("llm api error: %s", cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return GeneratedMessage{}, fmt.Errorf("llm empty response")
	}

	return GeneratedMessage{Content: strings.TrimSpace(cr.Choices[0].Message.Content)}, nil
}

// buildMessagePrompt arma el prompt con los rasgos del emisor y el ultimo
// mensaje de la pareja, segun la intencion del turno.
func buildMessagePrompt(p domain.PersonalityProfile, previous *domain.ConversationTurn, intent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are on a virtual date. Your personality:\n")
	fmt.Fprintf(&b, "- Openness: %.2f\n", p.Openness)
	fmt.Fprintf(&b, "- Extraversion: %.2f\n", p.Extraversion)
	fmt.Fprintf(&b, "- Agreeableness: %.2f\n", p.Agreeableness)
	fmt.Fprintf(&b, "- Communication style: %s\n", p.CommunicationStyle)
	fmt.Fprintf(&b, "\nIntent: %s\n", intent)

	if previous != nil {
		fmt.Fprintf(&b, "\nYour date said: %q\n", previous.Content)
		b.WriteString("Respond authentically based on your personality. Be genuine and engaging.")
	} else {
		b.WriteString("\nStart the conversation with a warm, personality-appropriate greeting.")
	}
	return b.String()
}

// messageTemperature sube la temperatura para perfiles mas creativos.
func messageTemperature(p domain.PersonalityProfile) float64 {
	return 0.5 + p.Creativity*0.3
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
