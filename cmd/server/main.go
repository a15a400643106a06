package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"disciplina/internal/complaint/catalog"
	"disciplina/internal/complaint/engine"
	"disciplina/internal/complaint/handler"
	complaintmetrics "disciplina/internal/complaint/metrics"
	"disciplina/internal/complaint/service"
	"disciplina/internal/complaint/store"
	"disciplina/internal/directory"
	"disciplina/internal/notification"
	"disciplina/internal/platform/config"
	"disciplina/internal/platform/httpserver"
	"disciplina/internal/platform/logger"
	"disciplina/internal/platform/metrics"
	"disciplina/internal/platform/middleware"
	platformredis "disciplina/internal/platform/redis"
)

const notificationBuffer = 256

// main wires dependencies and keeps the server lifecycle small. Every
// workflow rule lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caseStore, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		log.Info("action catalog cache enabled")
	}

	notifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = notifier.Close() }()

	// The committee and employee directories sync from the HR feed in
	// production; until a feed is configured the directory accepts every
	// employee reference and knows no committees.
	committees := directory.NewInMemory()

	cat := catalog.New(engine.New(), redisClient, log)
	svc := service.New(caseStore, committees, directory.Permissive{},
		service.WithLogger(log),
		service.WithMetrics(complaintmetrics.New()),
		service.WithNotifier(notifier),
		service.WithCatalog(cat),
		service.WithRebuttalWindow(cfg.RebuttalWindow),
	)

	router := buildRouter(cfg, log, svc, redisClient)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting disciplina", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger) (store.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Warn("POSTGRES_DSN not set, using in-memory store")
		return store.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return pg, func() { _ = db.Close() }, nil
}

func buildNotifier(ctx context.Context, cfg config.Server, log *slog.Logger) (notification.Notifier, error) {
	if len(cfg.KafkaSeeds) == 0 {
		log.Warn("KAFKA_SEEDS not set, transition events disabled")
		return notification.Noop{}, nil
	}
	kafka, err := notification.NewKafka(ctx, cfg.KafkaSeeds, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	log.Info("transition events enabled", "topic", cfg.KafkaTopic)
	return notification.NewAsync(kafka, notificationBuffer, log), nil
}

func buildRouter(cfg config.Server, log *slog.Logger, svc *service.Service, redisClient *platformredis.Client) http.Handler {
	m := metrics.New()
	h := handler.New(svc, log)
	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthz(redisClient))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(validator, log))
		h.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSchedulerKey(cfg.SchedulerKeyHash, log))
		h.RegisterSweep(r)
	})
	return r
}

func healthz(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "degraded", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
