package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hackgods/clinic-appointments/internal/api"
	"github.com/hackgods/clinic-appointments/internal/audit"
	"github.com/hackgods/clinic-appointments/internal/auth"
	"github.com/hackgods/clinic-appointments/internal/clinic"
	"github.com/hackgods/clinic-appointments/internal/config"
	"github.com/hackgods/clinic-appointments/internal/db"
	"github.com/hackgods/clinic-appointments/internal/logging"
	redisclient "github.com/hackgods/clinic-appointments/internal/redis"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env)
	logger.Info().Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	rootCtx = logger.WithContext(rootCtx)

	// Connect Mongo
	mongoCtx, cancelMongo := context.WithTimeout(rootCtx, 10*time.Second)
	mongoClient, database, err := db.ConnectMongo(mongoCtx, cfg.MongoURI, cfg.MongoDatabase)
	cancelMongo()
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo connection error")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("error disconnecting mongo")
		}
	}()
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to Mongo")

	repo := clinic.NewMongoRepository(database)
	if err := repo.EnsureIndexes(rootCtx); err != nil {
		logger.Fatal().Err(err).Msg("ensure indexes")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	checks := []api.DependencyCheck{
		{Name: "mongo", Critical: true, Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) }},
		{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	// Postgres only backs the audit log
	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.PostgresDSN != "" {
		pgPool, err := connectAudit(rootCtx, cfg.PostgresDSN, cfg.AuditPool)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()
		pg := audit.NewPgRecorder(pgPool)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			logger.Fatal().Err(err).Msg("audit schema")
		}
		recorder = pg
		checks = append(checks, api.DependencyCheck{Name: "postgres", Ping: pgPool.Ping})
		logger.Info().Msg("connected to Postgres, audit log enabled")
	}

	sessions := redisclient.NewSessionStore(rdb, cfg.SessionTTL)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Janitor(rootCtx)

	if cfg.Google.ClientID == "" {
		logger.Warn().Msg("GOOGLE_CLIENT_ID not set, google login will fail")
	}

	handler := api.NewRouter(api.RouterConfig{
		Users:         clinic.NewUserService(repo, recorder),
		Doctors:       clinic.NewDoctorService(repo, recorder),
		Patients:      clinic.NewPatientService(repo, recorder),
		Appointments:  clinic.NewAppointmentService(repo, recorder),
		Gate:          auth.NewGate(tokens, sessions, repo),
		Tokens:        tokens,
		Linker:        auth.NewLinker(repo, recorder, cfg.AdminEmails),
		Provider:      auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL),
		Sessions:      sessions,
		Limiter:       limiter,
		Logger:        logger,
		ClientOrigin:  cfg.ClientOrigin,
		SecureCookies: cfg.SecureCookies(),
		SessionTTL:    cfg.SessionTTL,
		Checks:        checks,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	case <-rootCtx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func connectAudit(ctx context.Context, dsn string, pool config.PoolConfig) (*pgxpool.Pool, error) {
	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.ConnectPostgres(pgCtx, dsn, db.PoolConfig{
		MaxConns: int32(pool.MaxConns),
		MinConns: int32(pool.MinConns),
		AppName:  "clinic-audit",
	})
}
