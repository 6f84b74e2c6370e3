package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"accountmarket/internal/adapter/api"
	"accountmarket/internal/adapter/api/handler"
	apimiddleware "accountmarket/internal/adapter/api/middleware"
	"accountmarket/internal/adapter/api/router"
	"accountmarket/internal/adapter/repository"
	"accountmarket/internal/domain/service"
	"accountmarket/internal/infrastructure/firebase"
	"accountmarket/internal/infrastructure/kafka"
	"accountmarket/internal/infrastructure/metrics"
	"accountmarket/internal/infrastructure/ratelimit"
	"accountmarket/internal/infrastructure/redis"
	"accountmarket/internal/infrastructure/storage"
	"accountmarket/internal/infrastructure/websocket"
	"accountmarket/internal/infrastructure/worker"
	"accountmarket/internal/usecase"
	"accountmarket/pkg/config"
	"accountmarket/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if cfg.CredentialsPath != "" {
		log.Printf("Using Firebase service account from file: %s", cfg.CredentialsPath)
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firebaseAuth := firebase.NewFirebaseAuthClient(authClient)

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, cfg.CredentialsPath, cfg.AllowedOrigins)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	redisClient, err := redis.NewClient(ctx, redis.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	publisher := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:    cfg.KafkaBrokers,
		EmailTopic: cfg.EmailTopic,
		EventTopic: cfg.EventTopic,
	})
	defer publisher.Close()

	appMetrics := metrics.New()

	queue := worker.NewQueue(worker.Config{
		Workers:    cfg.WorkerCount,
		MaxRetries: cfg.WorkerMaxRetries,
		OnFailure:  appMetrics.ObserveSideEffectFailure,
	})
	// The queue outlives the signal context so Stop can drain it.
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	queue.Start(queueCtx)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	transactionRepo := repository.NewFirestoreTransactionRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	offerRepo := repository.NewFirestoreOfferRepository(firestoreClient)
	disputeRepo := repository.NewFirestoreDisputeRepository(firestoreClient)
	notificationRepo := repository.NewFirestoreNotificationRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	auditLogRepo := repository.NewFirestoreAuditLogRepository(firestoreClient)

	hostname, _ := os.Hostname()
	locks := redis.NewEscrowLocks(redisClient, hostname)
	processedEvents := redis.NewProcessedEventStore(redisClient)

	var gateway service.PaymentGateway
	var simulator handler.PaymentSimulator
	switch cfg.GatewayMode {
	case "razorpay":
		gateway = service.NewRazorpayPaymentService(cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayBaseURL)
	default:
		sandbox := service.NewSandboxPaymentService(cfg.GatewayKeySecret)
		gateway = sandbox
		simulator = sandbox
		logger.Warn("Payment gateway running in sandbox mode")
	}
	verifier := service.NewHMACSignatureVerifier(cfg.GatewayKeySecret, cfg.GatewayWebhookSecret)

	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, wsManager)

	effects := usecase.NewSideEffects(usecase.SideEffectDeps{
		Queue:           queue,
		Notifier:        notificationUseCase,
		Emails:          publisher,
		Events:          publisher,
		Conversations:   conversationRepo,
		AuditLogs:       auditLogRepo,
		TransactionRepo: transactionRepo,
		Observer:        appMetrics,
	})

	paymentUseCase := usecase.NewPaymentUseCase(transactionRepo, processedEvents, gateway, verifier, locks, effects, appMetrics)
	offerUseCase := usecase.NewOfferUseCase(offerRepo, listingRepo, effects)
	transactionUseCase := usecase.NewTransactionUseCase(
		transactionRepo,
		listingRepo,
		offerRepo,
		service.NewFeeCalculator(service.FeeConfig{Percent: cfg.FeePercent, Min: cfg.MinFee, Max: cfg.MaxFee}),
		service.NewTransferPlanProvider(),
		usecase.NewVelocityGuard(transactionRepo, cfg.DailyTransactionLimit),
		paymentUseCase,
		effects,
		usecase.TransactionConfig{Currency: cfg.Currency, AutoReleaseAfter: cfg.AutoReleaseAfter},
	)
	disputeUseCase := usecase.NewDisputeUseCase(disputeRepo, transactionRepo, paymentUseCase, effects)

	jobs := usecase.NewEscrowJobs(offerUseCase, paymentUseCase, transactionRepo, locks, appMetrics)
	jobs.Start(ctx, cfg.OfferSweepInterval, cfg.EscrowSweepInterval)

	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine(ctx.Done())

	handler.Setup(offerUseCase, transactionUseCase, paymentUseCase, disputeUseCase, notificationUseCase)
	handler.SetupFileHandler(storageClient)
	handler.SetupHealthHandler(map[string]handler.HealthCheck{
		"redis": redisClient.Ping,
	})
	handler.SetupDevHandler(firebaseAuth, simulator, paymentUseCase, cfg.GatewayWebhookSecret)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(appMetrics.Middleware())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuth)
	adminMiddleware := apimiddleware.NewAdminMiddleware()
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(limiter)

	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins)

	router.Setup(e, authMiddleware, adminMiddleware, rateLimitMiddleware)
	router.SetupFileRouter(e, authMiddleware, rateLimitMiddleware)
	router.SetupHealthRouter(e, appMetrics.Handler())
	router.SetupWebSocketRouter(e, wsHandler, authMiddleware)
	router.SetupDevRouter(e, cfg.Environment, authMiddleware)

	go func() {
		log.Printf("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}

	// Let in-flight side effects finish before the clients close.
	queue.Stop()
	cancelQueue()
}
