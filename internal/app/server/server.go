package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tutordesk/internal/domain/audit"
	"tutordesk/internal/domain/lessons"
	"tutordesk/internal/domain/notifications"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/domain/rates"
	"tutordesk/internal/platform/config"
	"tutordesk/internal/platform/crypto"
	"tutordesk/internal/platform/db"
	"tutordesk/internal/platform/email"
	"tutordesk/internal/platform/jobs"
	"tutordesk/internal/platform/lock"
	"tutordesk/internal/platform/metrics"
	kafkalessons "tutordesk/internal/transport/kafka/lessons"
	"tutordesk/internal/transport/http/middleware"
)

// App owns every long lived dependency of the payroll server.
type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Router   http.Handler
	Payroll  *payroll.Service
	Jobs     *jobs.Service
	Consumer *kafkalessons.Consumer
	Metrics  *metrics.Collector
	log      *slog.Logger
	closers  []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, log: logger, Metrics: metrics.New()}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app.DB = pool
	app.closers = append(app.closers, pool.Close)

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	table, err := payroll.LoadTaxTable(cfg.TaxTableFile)
	if err != nil {
		app.Close()
		return nil, err
	}
	encrypter, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Jobs = jobs.New(pool, app.Metrics)
	notifier := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	store := payroll.NewStore(pool)

	opts := []payroll.Option{
		payroll.WithLocker(app.locker(cfg)),
		payroll.WithNotifier(notifier),
		payroll.WithEncrypter(encrypter),
		payroll.WithLogger(logger),
	}
	if cfg.RecalculateLaterJobs {
		opts = append(opts, payroll.WithScheduler(app.Jobs))
	}
	app.Payroll = payroll.NewService(store, payroll.NewReconciler(table, store), opts...)

	recorder := lessons.NewRecorder(app.Payroll, rates.NewService(rates.NewStore(pool)), cfg.LessonDescription)
	if cfg.KafkaEnabled() {
		reader := kafkalessons.NewReader(cfg.KafkaBrokers, cfg.KafkaLessonsTopic, cfg.KafkaGroupID)
		app.Consumer = kafkalessons.NewConsumer(reader, recorder, app.Metrics, logger)
		app.closers = append(app.closers, func() {
			if err := reader.Close(); err != nil {
				logger.Warn("kafka reader close failed", "err", err)
			}
		})
	}

	app.Router = NewRouter(RouterDeps{
		Config:      cfg,
		Logger:      logger,
		Metrics:     app.Metrics,
		Ready:       app.ready,
		Payroll:     app.Payroll,
		Lessons:     recorder,
		Audit:       audit.New(pool),
		Idempotency: middleware.NewIdempotencyStore(pool),
		Inbox:       notifier,
	})
	return app, nil
}

func (a *App) locker(cfg config.Config) payroll.Locker {
	if cfg.RedisAddr == "" {
		return lock.NewLocal()
	}
	a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	a.closers = append(a.closers, func() { _ = a.Redis.Close() })
	a.log.Info("using redis payroll lock", "addr", cfg.RedisAddr, "ttl", cfg.LockTTL)
	return lock.NewRedis(a.Redis, cfg.LockTTL, 0)
}

func (a *App) ready(ctx context.Context) error {
	if err := a.DB.Ping(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run serves HTTP and, when configured, consumes lesson events until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	jobCtx, stopJobs := context.WithCancel(context.WithoutCancel(ctx))
	a.Jobs.Start(jobCtx)
	defer func() {
		stopJobs()
		a.Jobs.Wait()
	}()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumerDone := make(chan struct{})
	if a.Consumer != nil {
		go func() {
			defer close(consumerDone)
			a.Consumer.Run(consumerCtx)
		}()
	} else {
		close(consumerDone)
	}
	defer func() {
		stopConsumer()
		<-consumerDone
	}()

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("payroll server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("http shutdown failed", "err", err)
		}
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
