package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	grpcAdapter "github.com/quentinrf/fermpi/internal/adapters/grpc"
	"github.com/quentinrf/fermpi/internal/adapters/httpapi"
	"github.com/quentinrf/fermpi/internal/adapters/mail"
	"github.com/quentinrf/fermpi/internal/adapters/memory"
	"github.com/quentinrf/fermpi/internal/adapters/observability"
	"github.com/quentinrf/fermpi/internal/adapters/postgres"
	"github.com/quentinrf/fermpi/internal/adapters/ratelimit"
	"github.com/quentinrf/fermpi/internal/adapters/sqlite"
	"github.com/quentinrf/fermpi/internal/config"
	"github.com/quentinrf/fermpi/internal/domain"
	"github.com/quentinrf/fermpi/internal/ports"
	"github.com/quentinrf/fermpi/pkg/tlsconfig"
)

func main() {
	configPath := flag.String("config", os.Getenv("FERMPI_CONFIG"), "path to the YAML config file")
	flag.Parse()

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	log.Info().Msg("starting fermPi server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store := openStore(ctx, cfg.Store)
	defer store.Close()

	var seed *domain.Credential
	if cfg.Credential.Username != "" {
		seed, err = domain.NewCredential(cfg.Credential.Username, cfg.Credential.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid operator credential")
		}
	}
	if err := store.Initialize(ctx, seed); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPromMetrics(reg)

	// Alerting
	var mailer ports.Mailer
	if cfg.Mail.Host != "" {
		m, err := mail.NewSMTPMailer(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
			StartTLS: !cfg.Mail.Plaintext,
			Timeout:  cfg.Mail.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("invalid mail config")
		}
		mailer = m
		log.Info().Str("host", cfg.Mail.Host).Str("to", cfg.Mail.To).Msg("alerts go to SMTP relay")
	} else {
		mailer = mail.LogMailer{}
		log.Warn().Msg("mail.host not set, alerts are only logged (dev mode only)")
	}
	alerter := ports.NewAlerter(mailer, metrics)

	// Services
	syncService := ports.NewSyncService(store, alerter, metrics)
	gate := ports.NewAccessGate(store, cfg.Session.TTL)
	limiter, dashboardLimiter := newLimiters(ctx, cfg.RateLimit)

	router := httpapi.NewRouter(httpapi.Options{
		Sync:             syncService,
		Gate:             gate,
		Notifier:         alerter,
		Metrics:          metrics,
		Limiter:          limiter,
		DashboardLimiter: dashboardLimiter,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		SecureCookies:    cfg.Server.TLSEnabled(),
	})

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Configure TLS if certificates are provided
	var grpcOpts []grpc.ServerOption
	if cfg.Server.TLSEnabled() {
		httpTLS, err := tlsconfig.LoadServerTLS(cfg.Server.TLSCert, cfg.Server.TLSKey, cfg.Server.TLSCA, tls.VerifyClientCertIfGiven)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		httpServer.TLSConfig = httpTLS

		grpcTLS, err := tlsconfig.LoadServerTLS(cfg.Server.TLSCert, cfg.Server.TLSKey, cfg.Server.TLSCA, tls.RequireAndVerifyClientCert)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		grpcOpts = append(grpcOpts, grpc.Creds(credentials.NewTLS(grpcTLS)))
		log.Info().Msg("TLS enabled (mTLS on gRPC health)")
	} else {
		log.Warn().Msg("TLS_CERT not set, starting without TLS (dev mode only)")
	}

	// gRPC health
	grpcServer := grpc.NewServer(grpcOpts...)
	health := grpcAdapter.NewHealthChecker(store, cfg.GRPC.HealthInterval)
	health.Register(grpcServer)

	// Enable gRPC reflection for grpcurl testing
	reflection.Register(grpcServer)

	listener, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	log.Info().Str("addr", cfg.GRPC.Addr).Msg("gRPC health listening")

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal().Err(err).Msg("failed to serve gRPC")
		}
	}()
	go health.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")

		var err error
		if httpServer.TLSConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to serve HTTP")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	cancel() // Stop health checks
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown did not complete")
	}
	grpcServer.GracefulStop()

	log.Info().Msg("server stopped")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) domain.Store {
	switch cfg.Type {
	case "sqlite":
		s, err := sqlite.NewStore(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to open SQLite database")
		}
		log.Info().Str("db_path", cfg.DBPath).Msg("initialized SQLite store")
		return s
	case "postgres":
		s, err := postgres.Open(ctx, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open Postgres database")
		}
		log.Info().Msg("initialized Postgres store")
		return s
	default:
		log.Info().Msg("initialized in-memory store")
		return memory.NewStore()
	}
}

// newLimiters returns the all-routes limiter and the dashboard limiter.
// Both are nil when rate limiting is off.
func newLimiters(ctx context.Context, cfg config.RateLimitConfig) (ports.RateLimiter, ports.RateLimiter) {
	def := ports.Limit{Count: cfg.Default.Count, Window: cfg.Default.Window}
	dash := ports.Limit{Count: cfg.Dashboard.Count, Window: cfg.Dashboard.Window}

	switch cfg.Backend {
	case "off":
		log.Warn().Msg("rate limiting disabled")
		return nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// limiter errors fail open, so an unreachable Redis is not fatal
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("rate limiting through redis")
		return ratelimit.NewRedisLimiter(client, "fermpi:rl:all", def),
			ratelimit.NewRedisLimiter(client, "fermpi:rl:dashboard", dash)
	default:
		return ratelimit.NewMemoryLimiter(def), ratelimit.NewMemoryLimiter(dash)
	}
}
