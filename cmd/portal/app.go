package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/config"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/command"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/engine"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/messaging"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/metrics"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/memory"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/postgres"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/redis"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/scheduler"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/interface/http"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/interface/http/handlers"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/circuitbreaker"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION WIRING
// ══════════════════════════════════════════════════════════════════════════════

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	students   student.Repository
	attendance attendance.Repository
	progress   progress.Repository
	quizzes    quiz.Repository
	snapshots  ranking.SnapshotRepository

	db           *postgres.Connection
	cache        *redis.Cache
	rankingCache *redis.RankingCache
	breaker      *circuitbreaker.CircuitBreaker

	bus    *messaging.InMemoryEventBus
	engine *engine.Engine
}

// newApp opens storage, the optional cache and builds the ranking engine
// with the last stored snapshot restored.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}
	a.openCache(ctx)

	if err := a.buildEngine(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	if a.cfg.UsesMemoryStore() {
		a.log.Warn("DATABASE_URL not set, using in-memory storage")
		a.students = memory.NewStudentRepository()
		a.attendance = memory.NewAttendanceRepository()
		a.progress = memory.NewProgressRepository()
		a.quizzes = memory.NewQuizRepository()
		a.snapshots = memory.NewSnapshotRepository()
		return nil
	}

	conn, err := connectDatabase(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	a.db = conn

	if a.cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.log.Info("database schema is up to date", slog.Int("applied", applied))
	}

	a.students = postgres.NewStudentRepository(conn)
	a.attendance = postgres.NewAttendanceRepository(conn)
	a.progress = postgres.NewProgressRepository(conn)
	a.quizzes = postgres.NewQuizRepository(conn)
	a.snapshots = postgres.NewSnapshotRepository(conn)
	return nil
}

// connectDatabase dials postgres with the startup retrier.
func connectDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*postgres.Connection, error) {
	opts := postgres.DefaultPoolOptions()
	opts.MaxConns = int32(cfg.Database.MaxConns)
	opts.MinConns = int32(cfg.Database.MinConns)
	opts.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	opts.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	log.Info("connecting to database...")
	r := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			logger.Err(err),
		)
	})

	conn, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, cfg.Database.URL, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")
	return conn, nil
}

// openCache dials redis. The cache is optional: on failure the portal runs
// without it and top-N reads fall back to the in-process snapshot.
func (a *app) openCache(ctx context.Context) {
	if !a.cfg.RedisEnabled() {
		a.log.Info("redis cache disabled")
		return
	}

	r := retry.New(
		retry.WithMaxAttempts(3),
		retry.WithBackoff(200*time.Millisecond, time.Second),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			a.log.Warn("redis not ready, retrying", slog.Int("attempt", attempt), logger.Err(err))
		}),
	)

	cache, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*redis.Cache, error) {
		return redis.NewCache(ctx, redis.Config{
			URL:         a.cfg.Redis.URL,
			KeyPrefix:   a.cfg.Redis.KeyPrefix,
			DialTimeout: a.cfg.Redis.DialTimeout,
			PoolSize:    a.cfg.Redis.PoolSize,
		})
	})
	if err != nil {
		a.log.Warn("redis unavailable, ranking cache disabled", logger.Err(err))
		return
	}

	a.cache = cache
	a.rankingCache = redis.NewRankingCache(cache, a.cfg.Redis.CacheTTL)
	a.breaker = circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		a.metrics.SetBreakerOpen(name, to == circuitbreaker.StateOpen)
		a.log.Warn("circuit breaker state changed",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	a.log.Info("redis connection established")
}

func (a *app) buildEngine(ctx context.Context) error {
	a.bus = messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		Logger:   a.log,
		Observer: a.metrics,
	})

	deps := engine.Dependencies{
		Students:   a.students,
		Attendance: a.attendance,
		Progress:   a.progress,
		Quizzes:    a.quizzes,
		Snapshots:  a.snapshots,
		Publisher:  a.bus,
		Recorder:   a.metrics,
		Logger:     a.log,
	}
	if a.rankingCache != nil {
		deps.Cache = a.rankingCache
		deps.CacheGuard = a.breaker
	}

	eng, err := engine.New(deps, a.cfg.Ranking.Weights)
	if err != nil {
		return fmt.Errorf("failed to create ranking engine: %w", err)
	}
	if err := eng.Subscribe(a.bus); err != nil {
		return fmt.Errorf("failed to subscribe ranking engine: %w", err)
	}
	if err := eng.Restore(ctx); err != nil {
		a.log.Warn("previous ranking snapshot not restored", logger.Err(err))
	}

	a.engine = eng
	return nil
}

// topCache returns the redis cache as a reader, or nil when disabled.
func (a *app) topCache() ranking.SnapshotCache {
	if a.rankingCache == nil {
		return nil
	}
	return a.rankingCache
}

func (a *app) healthChecker() *handlers.CompositeHealthChecker {
	hc := handlers.NewCompositeHealthChecker(a.cfg.App.Version)
	if a.db != nil {
		hc.AddCheck("database", handlers.NewPingCheck(a.db))
	}
	if a.cache != nil {
		hc.AddOptionalCheck("redis", handlers.NewPingCheck(a.cache))
	}
	return hc
}

func (a *app) newServer() *httpapi.Server {
	deps := httpapi.Dependencies{
		Rankings:      query.NewGetRankingsHandler(a.engine),
		StudentRank:   query.NewGetStudentRankHandler(a.engine),
		History:       query.NewGetStudentHistoryHandler(a.snapshots),
		Top:           query.NewGetTopStudentsHandler(a.engine, a.topCache(), a.log),
		Directory:     query.NewDirectoryHandler(a.students, a.attendance, a.progress, a.quizzes),
		Students:      command.NewStudentHandler(a.students, a.attendance, a.progress, a.quizzes, a.bus, a.log),
		Attendance:    command.NewAttendanceHandler(a.attendance, a.students, a.bus, a.log),
		Progress:      command.NewProgressHandler(a.progress, a.students, a.bus, a.log),
		Quizzes:       command.NewQuizHandler(a.quizzes, a.students, a.bus, a.log),
		Engine:        a.engine,
		Admin:         handlers.NewAdminAuth(a.cfg.Admin.Username, a.cfg.Admin.PasswordHash),
		HealthChecker: a.healthChecker(),
		Logger:        a.log,
	}
	if a.cfg.Observability.MetricsEnabled {
		deps.Metrics = a.metrics
		deps.MetricsHandler = a.metrics.Handler()
	}

	return httpapi.NewServer(httpapi.Config{
		Host:           a.cfg.HTTP.Host,
		Port:           a.cfg.HTTP.Port,
		ReadTimeout:    a.cfg.HTTP.ReadTimeout,
		WriteTimeout:   a.cfg.HTTP.WriteTimeout,
		IdleTimeout:    a.cfg.HTTP.IdleTimeout,
		RequestTimeout: a.cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   a.cfg.HTTP.MaxBodyBytes,
		Version:        a.cfg.App.Version,
	}, deps)
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(scheduler.Config{
		Logger:   a.log,
		Timezone: a.cfg.App.Location,
	})

	recalc, err := scheduler.ParseCron(a.cfg.Scheduler.RecalculateCron)
	if err != nil {
		return nil, err
	}
	prune, err := scheduler.ParseCron(a.cfg.Scheduler.PruneCron)
	if err != nil {
		return nil, err
	}

	if err := s.Register(jobs.NewRecalculateRankingsJob(a.engine, a.cfg.Scheduler.JobTimeout, a.log), recalc); err != nil {
		return nil, err
	}
	pruneJob := jobs.NewPruneSnapshotsJob(a.snapshots, jobs.PruneSnapshotsConfig{
		Retention:  a.cfg.Scheduler.SnapshotRetention,
		KeepLatest: a.cfg.Scheduler.SnapshotKeepLatest,
	}, a.log)
	if err := s.Register(pruneJob, prune); err != nil {
		return nil, err
	}

	s.OnJobComplete(func(res scheduler.JobResult) {
		a.metrics.ObserveJob(res.JobName, res.Duration, res.Error)
	})
	return s, nil
}

// Close releases every opened resource. Safe on a partially built app.
func (a *app) Close() {
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
