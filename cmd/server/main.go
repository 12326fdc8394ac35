package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	audithandler "custodia/internal/audit/handler"
	"custodia/internal/evidence"
	evidencehandler "custodia/internal/evidence/handler"
	"custodia/internal/identity"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	redisplatform "custodia/internal/platform/redis"
	"custodia/internal/policy"
	"custodia/internal/session"
	sessionhandler "custodia/internal/session/handler"
	"custodia/internal/token"
	httptransport "custodia/internal/transport/http"
	"custodia/internal/upstream"
	"custodia/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("custodia exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	auditStore := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(auditStore)
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return fmt.Errorf("kafka sink: %w", err)
		}
		defer sink.Close()
		publisher.WithSink(sink)
		log.Info("custody events mirrored to kafka", "topic", cfg.Kafka.Topic)
	}

	var (
		identityStore identity.Store = identity.NewInMemoryStore()
		evidenceStore evidence.Store = evidence.NewInMemoryStore()
	)
	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
		identityStore = identity.NewPostgresStore(db)
		evidenceStore = evidence.NewPostgresStore(db)
		log.Info("using postgres stores")
	}

	var sessionStore session.Store = session.NewInMemoryStore()
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient.Client)
		log.Info("using redis session store")
	}

	roles := identity.NewAllowListAssigner(cfg.AdminAddresses, cfg.OfficerAddresses)
	directory := identity.New(identityStore, roles,
		identity.WithLogger(log),
		identity.WithAuditPublisher(publisher),
		identity.WithMetrics(m),
	)

	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	sessions := session.New(sessionStore, directory, tokens, cfg.SessionTTL,
		session.WithLogger(log),
		session.WithAuditPublisher(publisher),
		session.WithMetrics(m),
	)

	contentStore := upstream.NewGuardedContentStore(upstream.NewLocalContentStore(),
		circuit.New("content-store", circuit.WithFailureThreshold(5)), log)
	anchorLedger := upstream.NewGuardedAnchorLedger(upstream.NewLocalAnchorLedger(),
		circuit.New("anchor-ledger", circuit.WithFailureThreshold(5)), log)

	engine := policy.New()
	evidenceSvc := evidence.New(evidenceStore, engine,
		contentStore, anchorLedger,
		evidence.WithLogger(log),
		evidence.WithAuditPublisher(publisher),
		evidence.WithMetrics(m),
		evidence.WithEnricher(upstream.NewHeuristicEnricher()),
	)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:               log,
		Metrics:              m,
		Tokens:               token.NewMiddlewareAdapter(tokens),
		Sessions:             sessions,
		SessionHandler:       sessionhandler.New(sessions, directory, log),
		EvidenceHandler:      evidencehandler.New(evidenceSvc, directory, log),
		AuditHandler:         audithandler.New(auditStore, directory, engine, log),
		ConnectRatePerSecond: cfg.ConnectRatePerSecond,
		ConnectRateBurst:     cfg.ConnectBurst,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting custodia", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
