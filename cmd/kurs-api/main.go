// README: Entry point; loads config, wires services, starts HTTP server, event relay and cron jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"kurs/internal/config"
	"kurs/internal/events"
	httptransport "kurs/internal/http"
	"kurs/internal/infra"
	"kurs/internal/logger"
	"kurs/internal/maps"
	"kurs/internal/modules/collector"
	"kurs/internal/modules/deposit"
	"kurs/internal/modules/facility"
	"kurs/internal/modules/notify"
	"kurs/internal/modules/payment"
	"kurs/internal/modules/pickup"
	"kurs/internal/modules/pricing"
	"kurs/internal/modules/role"
	"kurs/internal/scheduler"
	"kurs/internal/xendit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Environment, cfg.Log.Level)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer dbPool.Close()
	sqlDB := infra.NewSQLDB(dbPool)
	defer sqlDB.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer redisClient.Close()

	var (
		verifier infra.TokenVerifier
		sender   notify.Sender
	)
	if cfg.Firebase.ProjectID != "" {
		app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("firebase init")
		}
		if verifier, err = infra.NewFirebaseVerifier(ctx, app); err != nil {
			log.Fatal().Err(err).Msg("firebase auth init")
		}
		msg, err := infra.NewMessaging(ctx, app)
		if err != nil {
			log.Fatal().Err(err).Msg("firebase messaging init")
		}
		sender = notify.NewFCMSender(msg)
	} else {
		log.Warn().Msg("firebase not configured; using development JWT verifier and no push delivery")
		verifier = infra.NewJWTVerifier(cfg.Auth.DevJWTSecret)
	}

	hub := events.NewHub()
	bus := events.NewRedisBus(redisClient, hub, log)

	notifySvc := notify.NewService(notify.NewTokenStore(redisClient), sender, log)
	collectorSvc := collector.NewService(collector.NewStore(dbPool), collector.NewGeoIndex(redisClient), log)
	roleSvc := role.NewService(role.NewGrantStore(sqlDB), role.NewActingStore(redisClient), collectorSvc, log)

	pickupStore := pickup.NewStore(dbPool)
	xenditClient := xendit.NewClient(xendit.Config{
		SecretKey: cfg.Payment.XenditSecretKey,
		BaseURL:   cfg.Payment.XenditBaseURL,
		Timeout:   cfg.Payment.Timeout,
	})
	paymentSvc := payment.NewService(payment.NewStore(dbPool), xenditClient, pickupStore, bus, payment.Options{
		Production: cfg.IsProduction(),
		Currency:   cfg.Payment.Currency,
	}, log)

	deps := pickup.Deps{
		Payments:      paymentSvc,
		Pricing:       pricing.NewService(cfg.Pricing),
		Events:        bus,
		Notifier:      notifySvc,
		Collectors:    collectorSvc,
		MatchRadiusKm: cfg.Matching.RadiusKm,
		Log:           log,
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("maps init")
		}
		deps.Geocoder = geocoder
	}
	pickupSvc := pickup.NewService(pickupStore, deps)
	facilitySvc := facility.NewService(facility.NewStore(dbPool))
	depositSvc := deposit.NewService(deposit.NewStore(sqlDB), facilitySvc, notifySvc, log)

	jobs, err := scheduler.New(cfg.Scheduler, cfg.Payment.SweepGrace, paymentSvc, collectorSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init")
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:      verifier,
		Sessions:      roleSvc,
		Roles:         roleSvc,
		Tokens:        notifySvc,
		Pickups:       pickupSvc,
		Collectors:    collectorSvc,
		Payments:      paymentSvc,
		Deposits:      depositSvc,
		Facilities:    facilitySvc,
		Events:        hub,
		CallbackToken: cfg.Payment.XenditCallbackToken,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		Health: map[string]httptransport.HealthCheck{
			"postgres": dbPool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Log: log,
	})

	go bus.Run(ctx)
	jobs.Start()
	defer jobs.Stop()

	if err := httptransport.NewServer(cfg.HTTP.Addr, router, log).Run(ctx); err != nil {
		log.Error().Err(err).Msg("http server")
	}
}
