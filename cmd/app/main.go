package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitness-coaching-platform/internal/config"
	"fitness-coaching-platform/internal/domain/ports/adapter"
	"fitness-coaching-platform/internal/infra/adapters/mail"
	"fitness-coaching-platform/internal/infra/adapters/notify"
	"fitness-coaching-platform/internal/infra/adapters/payment"
	"fitness-coaching-platform/internal/infra/api"
	"fitness-coaching-platform/internal/infra/db/postgres"
	"fitness-coaching-platform/internal/infra/logging"
	"fitness-coaching-platform/internal/infra/metrics"
	"fitness-coaching-platform/internal/infra/redis"
	"fitness-coaching-platform/internal/infra/sched"
	"fitness-coaching-platform/internal/usecase"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		dev        = flag.Bool("dev", false, "development mode: console logs, dev mailer, noop gateway fallback")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *dev)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()

	// storage
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepo(pool)
	linkRepo := postgres.NewTrainerLinkRepo(pool)
	packageRepo := postgres.NewPackageRepo(pool)
	purchaseRepo := postgres.NewPurchaseRepo(pool)
	attemptRepo := postgres.NewPaymentAttemptRepo(pool)
	txManager := postgres.NewTxManager(pool)

	// external adapters
	creds := adapter.MerchantCredentials{
		MerchantID:   cfg.PayTR.MerchantID,
		MerchantKey:  cfg.PayTR.MerchantKey,
		MerchantSalt: cfg.PayTR.MerchantSalt,
	}
	var gateway adapter.PaymentGateway = payment.NewPayTRGateway()
	if cfg.Runtime.Dev && !creds.Complete() {
		log.Warn().Msg("dev mode without merchant credentials: using noop payment gateway")
		gateway = payment.NewNoopGateway()
	}

	var mailer adapter.Mailer
	if cfg.Runtime.Dev || cfg.Mail.PostmarkServerToken == "" {
		mailer = mail.NewDevMailer(cfg.Mail.DevDir)
	} else {
		mailer, err = mail.NewPostmarkMailer(cfg.Mail)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure postmark")
		}
	}

	var notifier adapter.AdminNotifier = notify.NoopNotifier{}
	if cfg.Notify.TelegramToken != "" && len(cfg.Notify.AdminChatIDs) > 0 {
		notifier, err = notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.AdminChatIDs)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure telegram notifier")
		}
	}

	// use cases
	userUC := usecase.NewUserUseCase(userRepo, linkRepo, log)
	catalogUC := usecase.NewCatalogUseCase(packageRepo, log)
	subscriptionUC := usecase.NewSubscriptionUseCase(purchaseRepo, packageRepo, linkRepo, txManager, log)
	paymentUC := usecase.NewPaymentUseCase(
		attemptRepo, packageRepo, userRepo, purchaseRepo, subscriptionUC,
		gateway, txManager, mailer, notifier,
		creds, cfg.PayTR.TestMode, cfg.PayTR.OkURL, cfg.PayTR.FailURL, log,
	)
	statsUC := usecase.NewStatsUseCase(userRepo, purchaseRepo, attemptRepo, log)

	// background jobs
	locker := redis.NewLocker(redisClient)
	go sched.NewExpiryWorker(subscriptionUC, locker, cfg.Scheduler.ExpiryInterval, log).Run(ctx)
	go sched.NewAttemptSweeper(attemptRepo, locker, cfg.Scheduler.SweepInterval, cfg.Scheduler.AttemptStaleTTL, log).Run(ctx)

	// http
	issuer := api.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	limiter := redis.NewRateLimiter(redisClient)
	handler := api.NewHandler(userUC, catalogUC, subscriptionUC, paymentUC, statsUC, issuer, limiter, cfg.RateLimit, log)
	server := api.NewServer(cfg.Server.Port, api.NewRouter(handler, log), log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("bye")
}
