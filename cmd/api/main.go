package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/practice-booking/cmd/mainconfig"
	"github.com/wolfman30/practice-booking/internal/api/router"
	"github.com/wolfman30/practice-booking/internal/app/bootstrap"
	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/callbacks"
	appconfig "github.com/wolfman30/practice-booking/internal/config"
	"github.com/wolfman30/practice-booking/internal/dashboard"
	httpmiddleware "github.com/wolfman30/practice-booking/internal/http/middleware"
	"github.com/wolfman30/practice-booking/internal/inbox"
	"github.com/wolfman30/practice-booking/internal/notify"
	"github.com/wolfman30/practice-booking/internal/observability/metrics"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
	"github.com/wolfman30/practice-booking/internal/tickets"
	"github.com/wolfman30/practice-booking/internal/voice"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting practice-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer app.close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	if app.worker != nil {
		app.worker.Wait()
	}
	logger.Info("server stopped")
}

type app struct {
	handler http.Handler
	worker  *callbacks.Worker
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	metricsHandler, bookingMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}
	ruleSource, ruleStore := bootstrap.BuildRuleSource(redisClient, cfg)

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
	}
	repo := bootstrap.BuildTicketRepository(pool, logger)

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		awsCfg = &loaded
	}
	queue, memoryQueue := bootstrap.BuildCallbackQueue(cfg, awsCfg)

	cal, err := bootstrap.BuildCalendar(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := booking.NewService(ruleSource, tickets.NewSink(repo), logger.Component("booking"),
		booking.WithCalendar(cal),
		booking.WithPublisher(callbacks.NewPublisher(queue)),
		booking.WithMetrics(bookingMetrics),
	)

	// Without an external queue the API drains callbacks itself.
	if memoryQueue != nil {
		worker, err := buildInlineWorker(cfg, awsCfg, memoryQueue, logger)
		if err != nil {
			return nil, err
		}
		worker.Start(ctx)
		a.worker = worker
	}

	defaultPractice, err := practice.Parse(cfg.VoiceDefaultPractice)
	if err != nil {
		logger.Warn("invalid VOICE_DEFAULT_PRACTICE; using default", "value", cfg.VoiceDefaultPractice)
		defaultPractice = practice.Default20Min
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = httpmiddleware.PerMinute(cfg.RateLimitPerMinute)
		stop := make(chan struct{})
		go limiter.Janitor(5*time.Minute, stop)
		a.closers = append(a.closers, func() { close(stop) })
	}

	a.handler = router.New(&router.Config{
		Logger:           logger,
		SlotsHandler:     slots.NewHandler(ruleSource, ruleStore, bookingMetrics, logger.Component("slots")),
		BookingHandler:   booking.NewHandler(svc, logger.Component("booking")),
		TicketsHandler:   tickets.NewHandler(repo, bookingMetrics, logger.Component("tickets")),
		DashboardHandler: dashboard.NewHandler(repo, logger.Component("dashboard")),
		InboxHandler:     inbox.NewHandler(repo, logger.Component("inbox")),
		VoiceHandler: voice.NewHandler(svc, voice.Config{
			AuthToken:       cfg.TwilioAuthToken,
			PublicBaseURL:   cfg.PublicBaseURL,
			DefaultPractice: defaultPractice,
		}, logger.Component("voice")),
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
	return a, nil
}

func buildInlineWorker(cfg *appconfig.Config, awsCfg *aws.Config, queue callbacks.Queue, logger *logging.Logger) (*callbacks.Worker, error) {
	sender, err := bootstrap.BuildEmailSender(cfg, awsCfg, logger.Component("email"))
	if err != nil {
		return nil, err
	}
	sqlDB, err := bootstrap.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewService(sender, bootstrap.BuildDirectory(sqlDB, logger), logger.Component("notify"))
	return callbacks.NewWorker(queue, notifier, logger.Component("callback-worker"),
		callbacks.WithWorkerCount(cfg.WorkerCount),
		callbacks.WithReceiveWaitSeconds(int(cfg.WorkerPollWait.Seconds())),
		callbacks.WithReceiveBatchSize(cfg.WorkerMaxMessages),
	), nil
}
