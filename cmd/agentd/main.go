package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"mofo-asi/internal/config"
	"mofo-asi/internal/db"
	"mofo-asi/internal/domain"
	"mofo-asi/internal/events"
	apihttp "mofo-asi/internal/http"
	"mofo-asi/internal/llm"
	"mofo-asi/internal/notify"
	"mofo-asi/internal/queue"
	"mofo-asi/internal/repository"
	"mofo-asi/internal/service"
	"mofo-asi/internal/source"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Bus de eventos: in-process siempre, espejo redis si esta configurado.
	var bus events.Bus = events.NewInMemoryBus()
	subsystems := apihttp.Subsystems{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			bus = events.NewRedisMirrorBus(bus, redisClient, cfg.RedisChannel, logger)
			subsystems.Redis = true
		}
		cancel()
	}

	// Postgres es opcional: sin el, resultados y perfiles viven en memoria.
	var (
		resultRepo  repository.ResultRepository
		profileRepo repository.ProfileRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Warn("db connect failed", zap.Error(err))
		} else if err := db.Ping(ctx, pool); err != nil {
			logger.Warn("db ping failed", zap.Error(err))
			pool.Close()
		} else {
			defer pool.Close()
			resultRepo = repository.NewPgResultRepository(pool)
			profileRepo = repository.NewPgProfileRepository(pool)
			subsystems.Postgres = true
		}
	}

	var generator llm.MessageGenerator
	if cfg.LLMAPIKey != "" {
		generator = llm.NewHTTPGenerator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
		subsystems.LLM = true
	} else {
		logger.Warn("llm not configured, simulator will use template fallbacks")
	}

	var neuralSource source.NeuralSource = source.NewLocalNeuralSource()
	if cfg.NeuralBaseURL != "" {
		neuralSource = source.NewHTTPNeuralSource(cfg.NeuralBaseURL, 10*time.Second)
	}
	subsystems.Neural = true

	var socialSource source.SocialSource = source.NewStaticSocialSource()
	if cfg.SocialBaseURL != "" {
		socialSource = source.NewHTTPSocialSource(cfg.SocialBaseURL, cfg.SocialAPIKey, 10*time.Second)
		subsystems.Social = true
	}

	var directory notify.AgentDirectory = notify.NoopDirectory{}
	if cfg.DirectoryBaseURL != "" {
		directory = notify.NewHTTPDirectory(cfg.DirectoryBaseURL, cfg.DirectoryAPIKey, logger)
		subsystems.Directory = true
	}

	clock := service.SystemClock()
	sessionRepo := repository.NewInMemorySessionRepository()

	fusionSvc := service.NewFusionService(bus, logger)
	compatSvc := service.NewCompatibilityService(logger)
	conversationSvc := service.NewConversationService(generator, clock, logger)
	orchestrator := service.NewOrchestrator(
		conversationSvc, compatSvc, sessionRepo, resultRepo, directory, bus, clock, logger,
	)

	manager := queue.NewManager(bus, logger, cfg.QueueDepth)
	defer manager.Close()
	registerQueueHandlers(manager, fusionSvc, compatSvc, conversationSvc, neuralSource, socialSource, profileRepo, bus, logger)

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	dateHandler := apihttp.NewDateHandler(orchestrator, fusionSvc, manager, neuralSource, socialSource, subsystems, logger)
	router := apihttp.NewRouter(logger, dateHandler, tokens)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// registerQueueHandlers conecta cada cola con su servicio.
func registerQueueHandlers(
	manager *queue.Manager,
	fusionSvc *service.FusionService,
	compatSvc *service.CompatibilityService,
	conversationSvc *service.ConversationService,
	neuralSource source.NeuralSource,
	socialSource source.SocialSource,
	profileRepo repository.ProfileRepository,
	bus events.Bus,
	logger *zap.Logger,
) {
	manager.Register(domain.QueueAgentCreation, func(ctx context.Context, job *domain.Job) (interface{}, error) {
		payload := job.Payload.(domain.AgentCreationPayload)
		if profileRepo != nil {
			if err := profileRepo.Upsert(ctx, payload.UserID, payload.Profile); err != nil {
				return nil, err
			}
		}
		style := service.ConversationStyle(payload.Profile)
		logger.Info("agent registered",
			zap.String("user_id", payload.UserID),
			zap.String("style", style),
		)
		return map[string]interface{}{
			"user_id": payload.UserID,
			"style":   style,
			"hints":   service.CommunicationHints(payload.Profile),
		}, nil
	})

	manager.Register(domain.QueueSignalAnalysis, func(ctx context.Context, job *domain.Job) (interface{}, error) {
		payload := job.Payload.(domain.SignalAnalysisPayload)

		neural, err := neuralSource.Extract(ctx, payload.Sample)
		if err != nil {
			logger.Warn("neural extraction failed", zap.String("user_id", payload.Sample.UserID), zap.Error(err))
			neural = nil
		}
		var social *domain.TraitEstimate
		if payload.SocialHandle != "" {
			social, err = socialSource.Extract(ctx, payload.SocialHandle)
			if err != nil {
				logger.Warn("social extraction failed", zap.String("handle", payload.SocialHandle), zap.Error(err))
				social = nil
			}
		}

		profile := fusionSvc.Fuse(ctx, payload.Sample.UserID, neural, social)
		if profileRepo != nil {
			if err := profileRepo.Upsert(ctx, payload.Sample.UserID, profile); err != nil {
				logger.Warn("profile persist failed", zap.String("user_id", payload.Sample.UserID), zap.Error(err))
			}
		}
		return profile, nil
	})

	manager.Register(domain.QueueMatching, func(ctx context.Context, job *domain.Job) (interface{}, error) {
		payload := job.Payload.(domain.MatchingPayload)

		candidates := payload.Candidates
		if len(candidates) == 0 {
			if profileRepo == nil {
				return nil, fmt.Errorf("matching %s: no candidates and no profile store", payload.UserID)
			}
			ids, err := profileRepo.Nearest(ctx, payload.Profile, payload.Limit)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if id == payload.UserID {
					continue
				}
				profile, err := profileRepo.Get(ctx, id)
				if err != nil {
					logger.Warn("candidate profile load failed", zap.String("user_id", id), zap.Error(err))
					continue
				}
				candidates = append(candidates, domain.Participant{UserID: id, Profile: profile})
			}
		}

		matches := compatSvc.RankCandidates(payload.Profile, candidates)
		bus.Publish(ctx, events.Event{
			Name: events.EventMatchesFound,
			Data: events.MatchesFound{UserID: payload.UserID, Matches: matches},
		})
		return matches, nil
	})

	manager.Register(domain.QueueConversation, func(ctx context.Context, job *domain.Job) (interface{}, error) {
		payload := job.Payload.(domain.ConversationPayload)
		turn := conversationSvc.GenerateTurn(ctx, domain.Participant{Profile: payload.Profile}, payload.Previous, payload.Intent)
		return turn, nil
	})
}
