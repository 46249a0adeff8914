package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"citas/internal/api"
	"citas/internal/availability"
	"citas/internal/booking"
	"citas/internal/config"
	googlegw "citas/internal/google"
	"citas/internal/metrics"
	"citas/internal/notify"
	"citas/internal/report"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CITAS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	tz, err := cfg.TZ()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Missing credentials degrade the service instead of blocking startup:
	// reads come back empty, writes fail per target.
	creds, err := googlegw.LoadCredentials(ctx, cfg.Google.CredentialsJSON)
	if err != nil {
		if !errors.Is(err, googlegw.ErrNoCredentials) {
			logger.Fatal().Err(err).Msg("failed to parse google credentials")
		}
		logger.Warn().Msg("running without google credentials, gateways degraded")
	}

	calendarSvc, err := googlegw.NewCalendarService(ctx, creds, googlegw.CalendarConfig{
		CalendarID:    cfg.Google.CalendarID,
		EventDuration: cfg.EventDuration(),
		Location:      cfg.Business.Location,
	}, tz, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create calendar gateway")
	}

	sheetsSvc, err := googlegw.NewSheetsService(ctx, creds, googlegw.SheetsConfig{
		SpreadsheetID: cfg.Google.SheetID,
		SheetName:     cfg.Google.SheetName,
	}, tz, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create ledger gateway")
	}

	aggregator := availability.New(
		calendarSvc, sheetsSvc,
		cfg.Window(), cfg.Business.Capacity,
		tz, cfg.GatewayTimeout(), &logger,
	)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		aggregator.UseCache(availability.NewCache(rdb, cfg.CacheTTL()))
	}

	coordinator := booking.NewCoordinator(
		booking.NewValidator(tz),
		calendarSvc, sheetsSvc,
		cfg.GatewayTimeout(), tz, &logger,
	)
	coordinator.OnAccepted(func(date string) {
		aggregator.InvalidateDate(context.Background(), date)
	})
	if cfg.Booking.EnforceCapacity {
		coordinator.EnforceCapacity(aggregator)
	}
	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ManagerChatIDs) > 0 {
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ManagerChatIDs, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			coordinator.UseNotifier(notifier)
		}
	}

	srv := api.NewServer(
		aggregator, coordinator,
		cfg.Server.WindowDays,
		cfg.Booking.RatePerSecond, cfg.Booking.RateBurst,
		&logger,
	)
	if cfg.Server.AdminKey != "" {
		srv.UseExporter(report.NewExporter(sheetsSvc, tz), cfg.Server.AdminKey)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("booking service started")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server error")
	}
}

func startHealthServer(ctx context.Context, port int, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if rdb != nil {
			ctxPing, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
