package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/osu/ShopiPing/common/errors"
	"github.com/osu/ShopiPing/common/logger"
	commonmw "github.com/osu/ShopiPing/common/middleware"
	"github.com/osu/ShopiPing/config"
	"github.com/osu/ShopiPing/consumer"
	"github.com/osu/ShopiPing/controllers"
	"github.com/osu/ShopiPing/database"
	"github.com/osu/ShopiPing/models"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"github.com/osu/ShopiPing/repository"
	"github.com/osu/ShopiPing/routes"
	"github.com/osu/ShopiPing/scheduler"
	"github.com/osu/ShopiPing/sender"
	"github.com/osu/ShopiPing/services"
	"github.com/osu/ShopiPing/shopify"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	serviceName = "cart-recovery"

	// Shopify delivers from a small pool of addresses, so the per-IP limit is generous.
	webhookRate  = rate.Limit(20)
	webhookBurst = 100

	drainTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Config load failed", zap.Error(err))
	}

	rootCtx := context.Background()

	// AWS (non-fatal unless the check queue needs it)
	awsCfg, awsErr := awspkg.LoadAWSConfig(rootCtx)

	var logSink io.Writer
	if awsErr == nil {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(rootCtx, awsCfg, serviceName)
		if err != nil {
			// Logger is not up yet; fall through to stdout only.
			_, _ = os.Stderr.WriteString("CloudWatch Logs init failed: " + err.Error() + "\n")
		} else if cwLogs != nil {
			logSink = cwLogs
		}
	}

	log, err := logger.New(cfg.AppEnv, logSink)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if awsErr != nil {
		log.Warn("AWS config load failed, metrics and events disabled (non-fatal)", zap.Error(awsErr))
	}

	var (
		metricsClient *awspkg.MetricsClient
		events        awspkg.SNSPublisher
	)
	if awsErr == nil {
		metricsClient = awspkg.NewMetricsClient(awsCfg)
		if cfg.EventsTopicARN != "" {
			events = awspkg.NewSNSClient(awsCfg)
		}
	}

	// Databases
	db, err := database.ConnectPostgres(rootCtx, cfg.DatabaseURL, log, &models.PendingCheck{}, &models.ReminderLog{})
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}

	var (
		mongoClient  *mongo.Client
		reminderRepo repository.ReminderLogRepository
	)
	if cfg.ReminderLogStore == config.ReminderStoreMongo {
		var mongoDB *mongo.Database
		mongoClient, mongoDB, err = database.ConnectMongo(rootCtx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			log.Fatal("MongoDB connection failed", zap.Error(err))
		}
		reminderRepo = repository.NewMongoReminderLogRepository(mongoDB)
	} else {
		reminderRepo = repository.NewGormReminderLogRepository(db)
	}
	checkRepo := repository.NewGormPendingCheckRepository(db)

	// External services
	store := shopify.NewClient(cfg.ShopifyStore, cfg.ShopifyToken, cfg.ShopifyAPIVersion)
	smsSender, err := sender.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if err != nil {
		log.Fatal("Failed to init Twilio sender", zap.Error(err))
	}

	// Dependency injection
	eventLog := services.NewEventLog(reminderRepo)
	reporter := services.NewRecoveryReporter(metricsClient, events, cfg.EventsTopicARN, serviceName, log)
	checker := services.NewAbandonmentChecker(
		store,
		services.NewDiscountIssuer(store),
		services.NewNotifier(smsSender),
		eventLog,
		reporter,
		log,
	)
	recoveryScheduler := scheduler.NewRecoveryScheduler(checkRepo, cfg.RecoveryDelay, metricsClient, log)
	executor := scheduler.NewExecutor(checker, checkRepo, log)

	// Checks outlive the sweeper and the HTTP server; workCtx is only cancelled once
	// the drain deadline has passed.
	workCtx, workCancel := context.WithCancel(rootCtx)
	defer workCancel()

	var (
		dispatcher   scheduler.Dispatcher
		drain        func(ctx context.Context) error
		consumerStop context.CancelFunc = func() {}
	)
	if cfg.CheckQueueURL != "" {
		if awsErr != nil {
			log.Fatal("Check queue configured but AWS config failed", zap.Error(awsErr))
		}
		queue := awspkg.NewSQSQueue(awsCfg, cfg.CheckQueueURL, log)
		checkConsumer := consumer.NewCheckConsumer(workCtx, queue, executor, log)

		var consumerCtx context.Context
		consumerCtx, consumerStop = context.WithCancel(rootCtx)
		go checkConsumer.Start(consumerCtx)

		dispatcher = scheduler.NewSQSDispatcher(queue)
		drain = checkConsumer.Wait
		log.Info("Dispatching checks through SQS", zap.String("queue_url", cfg.CheckQueueURL))
	} else {
		local := scheduler.NewLocalDispatcher(workCtx, executor, log)
		dispatcher = local
		drain = local.Wait
	}

	sweeper := scheduler.NewSweeper(checkRepo, dispatcher, scheduler.SweeperConfig{
		Interval:     cfg.SweepInterval,
		BatchSize:    cfg.SweepBatchSize,
		ClaimTimeout: cfg.ClaimTimeout,
	}, metricsClient, log)

	sweeperCtx, sweeperStop := context.WithCancel(rootCtx)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(sweeperCtx)
	}()

	// Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID())
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.MetricsMiddleware(metricsClient, serviceName, log))
	r.Use(commonmw.SecurityHeaders())
	r.Use(apperrors.ErrorMiddleware())

	limiter := commonmw.NewRateLimiter(webhookRate, webhookBurst, 10*time.Minute)
	defer limiter.Stop()

	routes.RegisterRoutes(r,
		controllers.NewWebhookController(recoveryScheduler, log),
		controllers.NewRecoveryController(recoveryScheduler, eventLog, log),
		cfg.ShopifySecret,
		limiter,
	)

	// HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Cart recovery service started",
			zap.String("port", cfg.Port),
			zap.Duration("recovery_delay", cfg.RecoveryDelay),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	sweeperStop()
	<-sweeperDone
	consumerStop()

	drainCtx, drainCancel := context.WithTimeout(rootCtx, drainTimeout)
	defer drainCancel()
	if err := drain(drainCtx); err != nil {
		log.Warn("Checks still running at shutdown; they will be reclaimed once their claim goes stale",
			zap.Error(err),
		)
	}
	workCancel()

	if err := database.ClosePostgres(db); err != nil {
		log.Error("Database close error", zap.Error(err))
	}
	if err := database.CloseMongo(mongoClient); err != nil {
		log.Error("MongoDB close error", zap.Error(err))
	}

	log.Info("Cart recovery service stopped gracefully")
}
