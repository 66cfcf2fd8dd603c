package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio. Todo subsistema sin sus
// variables queda deshabilitado y el servicio degrada con gracia.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`

	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-5.1"`

	NeuralBaseURL string `env:"NEURAL_BASE_URL"`
	SocialBaseURL string `env:"SOCIAL_BASE_URL"`
	SocialAPIKey  string `env:"SOCIAL_API_KEY"`

	DirectoryBaseURL string `env:"DIRECTORY_BASE_URL"`
	DirectoryAPIKey  string `env:"DIRECTORY_API_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_EVENT_CHANNEL" envDefault:"asi:events"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"mofo-app"`

	QueueDepth int `env:"QUEUE_DEPTH" envDefault:"64"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
