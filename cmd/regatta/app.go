package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/rowstack/regatta/config"
	"github.com/rowstack/regatta/internal/database"
	"github.com/rowstack/regatta/internal/logging"
	competitionrepo "github.com/rowstack/regatta/internal/repositories/competition"
	entityrepo "github.com/rowstack/regatta/internal/repositories/entity"
	leaguerepo "github.com/rowstack/regatta/internal/repositories/league"
	participantrepo "github.com/rowstack/regatta/internal/repositories/participant"
	penaltyrepo "github.com/rowstack/regatta/internal/repositories/penalty"
	racerepo "github.com/rowstack/regatta/internal/repositories/race"
	"github.com/rowstack/regatta/pkg/decision"
	"github.com/rowstack/regatta/pkg/ingest"
	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
	competitionresolve "github.com/rowstack/regatta/pkg/resolve/competition"
	entityresolve "github.com/rowstack/regatta/pkg/resolve/entity"
)

// app holds the wired application graph shared by every command.
type app struct {
	cfg    config.Config
	logger ectologger.Logger
	sqlxDB *sqlx.DB
	db     database.DB

	entities     *entityrepo.Repository
	leagues      *leaguerepo.Repository
	competitions *competitionrepo.Repository
	races        *racerepo.Repository
	participants *participantrepo.Repository
	penalties    *penaltyrepo.Repository
}

func loadConfig() (config.Config, error) {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	sqlxDB, err := connectDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	db := database.NewDatabaseInstance(sqlxDB, logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		sqlxDB: sqlxDB,
		db:     db,

		entities:     entityrepo.NewRepository(db, logger),
		leagues:      leaguerepo.NewRepository(db, logger),
		competitions: competitionrepo.NewRepository(db, logger),
		races:        racerepo.NewRepository(db, logger),
		participants: participantrepo.NewRepository(db, logger),
		penalties:    penaltyrepo.NewRepository(db, logger),
	}
	return a, nil
}

func (a *app) Close() {
	if a.sqlxDB != nil {
		_ = a.sqlxDB.Close()
	}
}

// runner assembles the full ingest pipeline behind a decision channel.
func (a *app) runner(channel decision.Channel) *ingest.Runner {
	clubs := &normalizingClubResolver{
		inner:    entityresolve.NewResolver(a.entities, a.logger),
		entities: a.entities,
	}
	competitions := competitionresolve.NewResolver(a.competitions, a.races, a.logger)

	engine := ingest.NewEngine(
		a.races,
		a.leagues,
		a.participants,
		a.penalties,
		clubs,
		competitions,
		channel,
		a.logger,
	)
	return ingest.NewRunner(engine, a.logger)
}

// normalizingClubResolver strips legal-form titles and sponsor halves from
// raw club labels before resolution, consulting the store for the
// sponsor-split heuristic.
type normalizingClubResolver struct {
	inner    *entityresolve.Resolver
	entities *entityrepo.Repository
}

func (r *normalizingClubResolver) ResolveClub(ctx context.Context, name string) (*models.Entity, error) {
	lookup := func(fragment string) bool { return r.entities.NameExists(ctx, fragment) }
	return r.inner.ResolveClub(ctx, normalizers.NormalizeClubName(name, lookup))
}

func (r *normalizingClubResolver) ResolveOrganizer(ctx context.Context, name string) (*models.Entity, error) {
	return r.inner.ResolveOrganizer(ctx, name)
}

// channel picks the decision surface configured for this process.
func (a *app) channel() decision.Channel {
	switch a.cfg.DecisionMode {
	case "accept":
		return decision.AcceptAll()
	case "reject":
		return decision.RejectAll()
	default:
		return terminalChannel()
	}
}

func connectDatabase(cfg config.Config, logger ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	var db *sqlx.DB
	var err error
	for attempt := 0; attempt <= cfg.DatabaseReconnectRetryCount; attempt++ {
		db, err = sqlx.Connect(cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("Database connection attempt %d failed", attempt+1)
		time.Sleep(time.Second * time.Duration(attempt+1))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	if err := migrateDatabase(cfg, logger, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateDatabase(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	service := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return service.Migrate(cfg.DatabaseName, driver)
}
