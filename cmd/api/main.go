package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/casework-service/internal/api/http"
	"github.com/spec-kit/casework-service/internal/api/http/handlers"
	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/compliance"
	"github.com/spec-kit/casework-service/internal/config"
	"github.com/spec-kit/casework-service/internal/directory"
	"github.com/spec-kit/casework-service/internal/enrichment"
	"github.com/spec-kit/casework-service/internal/events"
	"github.com/spec-kit/casework-service/internal/observability"
	"github.com/spec-kit/casework-service/internal/persistence"
	"github.com/spec-kit/casework-service/internal/realtime"
	"github.com/spec-kit/casework-service/internal/repository"
	"github.com/spec-kit/casework-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	artifactRepo := repository.NewArtifactRepository(pool)
	consultationRepo := repository.NewConsultationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	pipeline := enrichment.NewPipeline(enrichment.PipelineDependencies{
		Backend:      enrichment.NewHTTPBackend(cfg.Enrichment),
		MessageRepo:  messageRepo,
		ArtifactRepo: artifactRepo,
		UserRepo:     userRepo,
		GroupRepo:    groupRepo,
	}, cfg.Enrichment, logger)

	var checker compliance.Checker
	if client := compliance.NewClient(cfg.Compliance); client != nil {
		checker = client
	}

	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, logger)
	defer hub.Close()

	bridge := realtime.NewBridge(redis.Client, hub, cfg.Realtime.ChannelPrefix, logger)
	bridge.RegisterHandlers(dispatcher)
	bridge.Start(ctx)
	defer bridge.Stop()

	conversationService := service.NewConversationService(service.ConversationDependencies{
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		ArtifactRepo:     artifactRepo,
		MembershipRepo:   membershipRepo,
		GroupRepo:        groupRepo,
		Tx:               pg,
		Enricher:         pipeline,
		Compliance:       checker,
		Dispatcher:       dispatcher,
		Logger:           logger,
		InlineEnrichment: cfg.Enrichment.Inline,
	})
	consultationService := service.NewConsultationService(service.ConsultationDependencies{
		ConsultationRepo: consultationRepo,
		AuditRepo:        auditRepo,
		Conversations:    conversationService,
		Enricher:         pipeline,
		Logger:           logger,
	})
	broadcastService := service.NewBroadcastService(conversationService, membershipRepo, logger)
	directoryService := directory.NewService(directory.Dependencies{
		OrganizationRepo: orgRepo,
		GroupRepo:        groupRepo,
		MembershipRepo:   membershipRepo,
		UserRepo:         userRepo,
		ConversationRepo: conversationRepo,
		AuditRepo:        auditRepo,
		Tx:               pg,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Conversations:  handlers.NewConversationsHandler(conversationService),
		Consultations:  handlers.NewConsultationsHandler(consultationService),
		Broadcast:      handlers.NewBroadcastHandler(broadcastService),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		WS:             handlers.NewWSHandler(hub, conversationService, metrics, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
