package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/practice-booking/internal/api"
	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/identity"
	"github.com/hackgods/practice-booking/internal/logging"
	"github.com/hackgods/practice-booking/internal/notify"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
	"github.com/hackgods/practice-booking/internal/session"
	"github.com/hackgods/practice-booking/internal/slots"
	"github.com/hackgods/practice-booking/internal/verification"
)

var version = "dev"

const janitorInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api-server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{}, logger)
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()

	if !cfg.Booking.UniqueSlotIndex {
		logger.Warn("active-slot unique index disabled; concurrent bookings of one start minute are not arbitrated by the database")
	}
	if err := db.EnsureSchema(rootCtx, pgPool, db.SchemaOptions{
		CancelledLabel: cfg.Booking.CancelledStatus,
		SkipSlotIndex:  !cfg.Booking.UniqueSlotIndex,
	}); err != nil {
		if errors.Is(err, db.ErrDuplicateSlots) {
			logger.Error("existing calendar rows block the active-slot unique index", "area", cfg.Booking.Area, "error", err)
		}
		return err
	}

	var (
		tokens    verification.Store
		redisPing api.Pinger
	)
	switch cfg.TokenStore {
	case "redis":
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", "error", err)
			}
		}()
		logger.Info("verification tokens kept in redis", "addr", cfg.RedisAddr)
		tokens = verification.NewRedisStore(rdb)
		redisPing = api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	default:
		mem := verification.NewMemoryStore()
		go mem.RunJanitor(rootCtx, janitorInterval, logger)
		logger.Info("verification tokens kept in memory; a restart invalidates outstanding tokens")
		tokens = mem
	}

	repo := appointment.NewPgRepository(pgPool, appointment.PgOptions{
		Area:            cfg.Booking.Area,
		CreatedStatus:   cfg.Booking.CreatedStatus,
		CancelledStatus: cfg.Booking.CancelledStatus,
	})

	ledger := appointment.NewLedger(repo, slots.Policy{
		WorkStart:          cfg.Booking.WorkStart,
		WorkEnd:            cfg.Booking.WorkEnd,
		MinGapMinutes:      cfg.Booking.MinGapMinutes,
		MaxOffersPerDay:    cfg.Booking.MaxOffersPerDay,
		AllowTruncatedTail: cfg.Booking.AllowTruncatedTail,
	}, appointment.LedgerOptions{
		DefaultDuration: cfg.Booking.DefaultDuration,
		Kind:            cfg.Booking.AppointmentKind,
		CreatedBy:       cfg.Booking.CreatedBy,
	}, logger)

	templates, err := notify.LoadTemplates(cfg.Mail.TemplatesPath)
	if err != nil {
		return err
	}
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		User:        cfg.Mail.User,
		Password:    cfg.Mail.Password,
		From:        cfg.Mail.From,
		FromName:    cfg.Mail.FromName,
		ImplicitTLS: cfg.Mail.ImplicitTLS,
	})
	dispatcher := notify.NewDispatcher(mailer, templates, notify.DispatcherOptions{
		PracticeName:   cfg.Mail.PracticeName,
		OrganizerEmail: cfg.Mail.From,
		VerifyURL:      cfg.Mail.VerifyURL,
	})

	verifier := identity.NewVerifier(repo, tokens, dispatcher, cfg.TokenTTL, logger)
	sessions := session.NewIssuer(session.Config{
		Secret: cfg.Session.Secret,
		Issuer: cfg.Session.Issuer,
		TTL:    cfg.Session.TTL,
	})

	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		Ledger:        ledger,
		Verifier:      verifier,
		Sessions:      sessions,
		Notifier:      dispatcher,
		Contacts:      repo,
		Postgres:      repo,
		Redis:         redisPing,
		RateLimit:     cfg.RateLimit,
		ConfirmOnBook: cfg.Booking.ConfirmOnBook,
		StaticDir:     cfg.StaticDir,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
