package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/peg-league/internal/config"
	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	domainnotification "github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	"github.com/riskibarqy/peg-league/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/peg-league/internal/infrastructure/notification"
	"github.com/riskibarqy/peg-league/internal/infrastructure/payment/stripe"
	"github.com/riskibarqy/peg-league/internal/infrastructure/payment/stub"
	repocache "github.com/riskibarqy/peg-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/peg-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/peg-league/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/peg-league/internal/interfaces/httpapi"
	"github.com/riskibarqy/peg-league/internal/platform/cache"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

const dispatcherDrainTimeout = 5 * time.Second

// App owns the HTTP server and the resources it must release on shutdown.
type App struct {
	Server *http.Server

	db         *sqlx.DB
	dispatcher *notification.Dispatcher
	logger     *logging.Logger
}

type repositories struct {
	competitions competition.Repository
	ledger       slot.Ledger
	participants participant.Repository
	teams        team.Repository
	payments     payment.Repository
	entries      leaderboard.Repository
	competitors  competitor.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{logger: logger}

	repos, err := a.buildRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := a.buildNotifier(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	ids := idgen.NewRandomGenerator()

	admissionSvc := usecase.NewAdmissionService(repos.competitions, repos.ledger, repos.participants, repos.teams, ids, logger)
	paymentSvc := usecase.NewPaymentService(
		repos.competitions,
		repos.teams,
		repos.participants,
		repos.payments,
		repos.competitors,
		buildGateway(cfg, ids, logger),
		admissionSvc,
		notifier,
		ids,
		logger,
	)
	teamSvc := usecase.NewTeamService(repos.competitions, repos.teams, admissionSvc, ids, ids, logger)
	competitionSvc := usecase.NewCompetitionService(repos.competitions, ids)
	competitorSvc := usecase.NewCompetitorService(repos.competitors)
	leaderboardSvc := usecase.NewLeaderboardService(repos.competitions, repos.entries, repos.participants, repos.teams, repos.competitors, ids, logger)

	verifier := anubis.NewClient(anubis.ClientConfig{
		BaseURL:        cfg.AnubisBaseURL,
		IntrospectPath: cfg.AnubisIntrospectURL,
		AdminKey:       cfg.AnubisAdminKey,
		Timeout:        cfg.AnubisTimeout,
		CacheTTL:       cfg.AnubisCacheTTL,
		CircuitBreaker: cfg.AnubisCircuit,
		Logger:         logger,
	})

	handler := httpapi.NewHandler(competitionSvc, admissionSvc, paymentSvc, teamSvc, competitorSvc, leaderboardSvc, logger)
	router := httpapi.NewRouter(handler, verifier, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaffToken:         cfg.StaffToken,
		WebhookSecret:      cfg.PaymentWebhookSecret,
	})

	a.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return a, nil
}

// Close drains queued notifications and closes the database pool.
func (a *App) Close() error {
	if a.dispatcher != nil {
		a.dispatcher.Close(dispatcherDrainTimeout)
		a.dispatcher = nil
	}
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		if err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	return nil
}

func (a *App) buildRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	var repos repositories

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		a.db = db

		if cfg.AppEnv != config.EnvProd {
			if err := postgres.BootstrapSeed(ctx, db); err != nil {
				_ = a.Close()
				return repositories{}, err
			}
		}

		repos = repositories{
			competitions: postgres.NewCompetitionRepository(db),
			ledger:       postgres.NewLedger(db),
			participants: postgres.NewParticipantRepository(db),
			teams:        postgres.NewTeamRepository(db),
			payments:     postgres.NewPaymentRepository(db),
			entries:      postgres.NewLeaderboardRepository(db),
			competitors:  postgres.NewCompetitorRepository(db),
		}
		a.logger.Info("storage ready", "driver", config.StoragePostgres, "db_name", dbNameFromURL(cfg.DBURL))
	default:
		store := memory.NewStore(memory.SeedCompetitions(), memory.SeedCompetitors())
		repos = repositories{
			competitions: store.Competitions(),
			ledger:       store.Ledger(),
			participants: store.Participants(),
			teams:        store.Teams(),
			payments:     store.Payments(),
			entries:      store.Leaderboard(),
			competitors:  store.Competitors(),
		}
		a.logger.Info("storage ready", "driver", config.StorageMemory)
	}

	// Competitions and teams carry live counters read inside admission, so
	// only entries and profiles go through the read cache.
	if cfg.CacheEnabled {
		repos.entries = repocache.NewLeaderboardRepository(repos.entries, cache.NewStore(cfg.CacheTTL))
		repos.competitors = repocache.NewCompetitorRepository(repos.competitors, cache.NewStore(cfg.CacheTTL))
	}

	return repos, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := config.NormalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func buildGateway(cfg config.Config, ids idgen.Generator, logger *logging.Logger) payment.Gateway {
	if cfg.PaymentProvider == config.PaymentProviderStripe {
		logger.Info("payment gateway ready", "provider", config.PaymentProviderStripe)
		return stripe.NewClient(stripe.ClientConfig{
			BaseURL:        cfg.PaymentBaseURL,
			SecretKey:      cfg.PaymentSecretKey,
			Timeout:        cfg.PaymentTimeout,
			Logger:         logger,
			CircuitBreaker: cfg.PaymentCircuit,
		})
	}

	logger.Warn("payment gateway ready", "provider", config.PaymentProviderStub, "default_status", cfg.PaymentStubStatus)
	return stub.NewGateway(ids, payment.Status(cfg.PaymentStubStatus))
}

func (a *App) buildNotifier(cfg config.Config) (domainnotification.Notifier, error) {
	if !cfg.NotificationEnabled {
		return notification.NewLogNotifier(a.logger), nil
	}

	mailer := notification.NewWebhookMailer(notification.WebhookMailerConfig{
		Endpoint: cfg.NotificationEndpoint,
		Token:    cfg.NotificationToken,
		From:     cfg.NotificationFrom,
		Timeout:  cfg.NotificationTimeout,
	}, a.logger)

	dispatcher, err := notification.NewDispatcher(mailer, cfg.NotificationWorkers, cfg.NotificationTimeout, a.logger)
	if err != nil {
		return nil, err
	}
	a.dispatcher = dispatcher

	return dispatcher, nil
}
