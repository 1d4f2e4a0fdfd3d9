package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/booking"
	"github.com/varoOP/muaythaitickets/internal/config"
	"github.com/varoOP/muaythaitickets/internal/contentcache"
	"github.com/varoOP/muaythaitickets/internal/database"
	"github.com/varoOP/muaythaitickets/internal/domain"
	"github.com/varoOP/muaythaitickets/internal/logger"
	"github.com/varoOP/muaythaitickets/internal/notification"
	"github.com/varoOP/muaythaitickets/internal/payment"
	"github.com/varoOP/muaythaitickets/internal/repository"
	"github.com/varoOP/muaythaitickets/internal/server"
	"github.com/varoOP/muaythaitickets/internal/siteclient"
	"github.com/varoOP/muaythaitickets/internal/verification"
)

// RecentPayments is how many payments the database report lists.
const RecentPayments = 5

// App holds the ticket service with every dependency wired.
type App struct {
	log    zerolog.Logger
	config *domain.Config
	db     *database.DB

	content       domain.ContentRepo
	paymentImages domain.StadiumPaymentImageRepo
	seeds         domain.ContentSeedRepository
	notification  domain.NotificationService

	bookings      booking.Service
	payments      payment.Service
	verifications verification.Service
}

// NewApp loads the configuration, builds the logger and opens the database.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return New(log, cfg)
}

// New wires the application around an already loaded configuration.
func New(log zerolog.Logger, cfg *domain.Config) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	notifier := notification.NewService(log, cfg.DiscordWebhookURL)
	bookingRepo := database.NewBookingRepo(log, db)

	return &App{
		log:           log,
		config:        cfg,
		db:            db,
		content:       database.NewContentRepo(log, db),
		paymentImages: database.NewStadiumPaymentImageRepo(log, db),
		seeds:         repository.NewFileRepository(log),
		notification:  notifier,
		bookings:      booking.NewService(log, bookingRepo),
		payments:      payment.NewService(log, cfg, database.NewPaymentRepo(log, db), bookingRepo, notifier),
		verifications: verification.NewService(log, cfg, database.NewVerificationRepo(log, db), nil),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) Logger() zerolog.Logger {
	return a.log
}

func (a *App) Config() *domain.Config {
	return a.config
}

// Migrator returns a runner over the registered migrations.
func (a *App) Migrator() (*database.Runner, error) {
	return database.NewRunner(a.db, database.Migrations())
}

// Migrate brings the schema up to date. A failure is reported to the
// notification channels before it is returned.
func (a *App) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if notifyErr := a.notification.MigrationFailed(ctx, err); notifyErr != nil {
				a.log.Warn().Err(notifyErr).Msg("Failed to send migration failure notification")
			}
		}
	}()

	runner, err := a.Migrator()
	if err != nil {
		return err
	}

	if _, err := runner.Up(ctx); err != nil {
		return err
	}
	return nil
}

// Serve migrates the database and runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return errors.Wrap(err, "database migration failed, not starting")
	}

	rdb := server.NewRedisClient(a.log, a.config)
	if rdb != nil {
		defer rdb.Close()
	}

	srv := server.New(a.log, a.config, server.Deps{
		DB:            a.db,
		Content:       a.content,
		PaymentImages: a.paymentImages,
		Bookings:      a.bookings,
		Payments:      a.payments,
		Verifications: a.verifications,
		Redis:         rdb,
	})

	return srv.ListenAndServe(ctx)
}

// Seed loads the YAML seed at path into the content tables and drops any
// cached HTTP responses.
func (a *App) Seed(ctx context.Context, path string) error {
	seed, err := a.seeds.GetSeed(ctx, path)
	if err != nil {
		return err
	}

	if err := a.content.Seed(ctx, seed); err != nil {
		return errors.Wrap(err, "failed to seed content")
	}

	rdb := server.NewRedisClient(a.log, a.config)
	if rdb == nil {
		return nil
	}
	defer rdb.Close()

	if err := server.InvalidateResponseCache(ctx, rdb); err != nil {
		a.log.Warn().Err(err).Msg("Failed to invalidate response cache")
	}
	return nil
}

// ExportSeed writes the seed document at path back out, normalized.
func (a *App) ExportSeed(ctx context.Context, from, to string) error {
	seed, err := a.seeds.GetSeed(ctx, from)
	if err != nil {
		return err
	}
	return a.seeds.StoreSeed(ctx, to, seed)
}

func (a *App) CleanupVerifications(ctx context.Context) (int64, error) {
	return a.verifications.CleanupExpired(ctx)
}

func (a *App) ExpirePayments(ctx context.Context) (int, error) {
	return a.payments.ExpireOverdue(ctx)
}

// Inspect reports the live schema without changing it.
func (a *App) Inspect(ctx context.Context) *database.Report {
	return a.db.Inspect(ctx, RecentPayments)
}

// SiteClient reads content from the configured API base URL.
func (a *App) SiteClient() *siteclient.Client {
	return siteclient.New(a.log, a.config.APIBaseURL, contentcache.New(a.log), nil)
}
