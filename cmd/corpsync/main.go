package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nerevar/corpsync/internal/cache"
	"github.com/nerevar/corpsync/internal/config"
	"github.com/nerevar/corpsync/internal/esi"
	"github.com/nerevar/corpsync/internal/infra/database"
	"github.com/nerevar/corpsync/internal/infra/repository"
	"github.com/nerevar/corpsync/internal/oauth"
	"github.com/nerevar/corpsync/internal/present/discord"
	"github.com/nerevar/corpsync/internal/present/rest"
	"github.com/nerevar/corpsync/internal/usecase"
	"github.com/nerevar/corpsync/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	conf, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := setupTracer(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			logger.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		logger.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		logger.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ruleRepo := repository.NewRuleRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	characterRepo := repository.NewCharacterRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	cacheTTL := time.Duration(conf.ESI.CacheTTLMinutes) * time.Minute
	var store cache.Store
	if conf.Server.RedisAddr != "" {
		store = cache.NewRedisStore(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	} else {
		store = cache.NewMemoryStore(cacheTTL)
	}

	httpClient := &http.Client{Timeout: time.Duration(conf.ESI.TimeoutSeconds) * time.Second}
	transport, err := esi.NewTransport(conf.ESI.BaseURL, conf.ESI.UserAgent, httpClient)
	if err != nil {
		logger.Error("failed to build identity transport", slog.String("error", err.Error()))
		os.Exit(1)
	}
	retrying := esi.NewRetryTransport(transport,
		conf.ESI.RetryAttempts,
		time.Duration(conf.ESI.RetryDelayMillis)*time.Millisecond)
	identity := esi.NewClient(retrying, store, logger, esi.Options{
		CacheTTL:          cacheTTL,
		BatchMaxInFlight:  conf.ESI.BatchMaxConcurrent,
		BatchMaxPerSecond: conf.ESI.BatchMaxPerSecond,
	})

	handshake := oauth.NewService(oauth.Config{
		ClientID:     conf.SSO.ClientID,
		ClientSecret: conf.SSO.ClientSecret,
		RedirectURI:  conf.SSO.RedirectURI,
		Scopes:       conf.SSO.Scopes,
		BaseURL:      conf.SSO.BaseURL,
	}, httpClient)
	validator := oauth.NewValidator(conf.SSO.DiscoveryURL, httpClient)
	attempts := oauth.NewAttemptStore(attemptRepo,
		time.Duration(conf.Auth.AttemptTTLMinutes)*time.Minute, logger)

	session, err := discordgo.New("Bot " + conf.Discord.Token)
	if err != nil {
		logger.Error("failed to create discord session", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := session.Open(); err != nil {
		logger.Error("failed to open discord gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer session.Close()

	directory := discord.NewDirectory(session, logger)
	notifier := discord.NewChannelNotifier(session, logger)

	registerUC := usecase.NewRegisterUsecase(
		attempts, handshake, validator, identity,
		ruleRepo, registrationRepo, characterRepo, directory, logger)
	reconciler := usecase.NewReconciler(
		ruleRepo, registrationRepo, characterRepo,
		identity, directory, notifier, logger)

	sweeper := worker.NewRunner("sweep-auth-attempts",
		time.Duration(conf.Auth.SweepIntervalSeconds)*time.Second,
		func(ctx context.Context) error {
			_, err := attempts.SweepExpired(ctx)
			return err
		}, logger)
	go sweeper.Start(ctx)

	reconcileWorker := worker.NewRunner("reconcile-roles",
		time.Duration(conf.Reconcile.IntervalMinutes)*time.Minute,
		func(ctx context.Context) error {
			_, err := reconciler.Run(ctx)
			return err
		}, logger)
	go reconcileWorker.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("corpsync"))
	}
	rest.NewHandler(registerUC).RegisterRoutes(e)

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
}

func setupTracer(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "corpsync"),
		)),
	)
	otel.SetTracerProvider(provider)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(shutdownCtx)
	}, nil
}
