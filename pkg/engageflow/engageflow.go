package engageflow

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/engageflow/engageflow/internal/config"
	"github.com/engageflow/engageflow/internal/controllers"
	"github.com/engageflow/engageflow/internal/engine"
	"github.com/engageflow/engageflow/internal/migrations"
	"github.com/engageflow/engageflow/internal/notify"
	"github.com/engageflow/engageflow/internal/repository"
	"github.com/engageflow/engageflow/pkg/engageflow/core"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Start boots the execution engine and HTTP server.
// This call blocks until the HTTP server stops.
func Start(mux *http.ServeMux) error {
	db := OpenDatabase()
	defer db.Close()

	clock := &core.RealClock{}

	workflowRepo := repository.NewWorkflowRepository(db, clock)
	stepRepo := repository.NewStepRepository(db, clock)
	executionRepo := repository.NewExecutionRepository(db, clock)
	actionRepo := repository.NewExecutionActionRepository(db, clock)
	processorRepo := repository.NewProcessorRepository(db, clock)
	trainerRepo := repository.NewTrainerRepository(db, clock)
	clientRepo := repository.NewClientRepository(db, clock)
	formRepo := repository.NewFormRepository(db, clock)
	subscriptionRepo := repository.NewSubscriptionRepository(db, clock)
	notificationRepo := repository.NewNotificationRepository(db, clock)

	processorID := engine.RegisterProcessor(processorRepo, clock)

	stepExecutor := engine.NewStepExecutor(
		clientRepo,
		formRepo,
		notify.NewStoreFormNotifier(notificationRepo, clock),
		notify.NewStoreMessageNotifier(notificationRepo, clock),
		actionRepo,
		processorID,
		clock,
	)
	repeats := engine.NewRepeatEvaluator(subscriptionRepo)
	timing := engine.NewTimingGate(formRepo, subscriptionRepo, clock)
	processor := engine.NewExecutionProcessor(executionRepo, stepRepo, actionRepo, stepExecutor, repeats, timing, processorID, clock)
	scheduler := engine.NewScheduler(processor, executionRepo, stepRepo, actionRepo, processorRepo, processorID, clock)

	dur, _ := time.ParseDuration(config.GetSystemSettingString(config.ENGINE_CHECK_INTERVAL))
	go scheduler.Start(context.Background(), dur)

	if mux == nil {
		mux = http.NewServeMux()
	}
	workflowsController := controllers.NewWorkflowsController(workflowRepo, stepRepo, executionRepo, clientRepo, scheduler, trainerRepo, clock)
	workflowsController.RegisterRoutes(mux)
	executionsController := controllers.NewExecutionsController(executionRepo, actionRepo, workflowRepo, processor, trainerRepo)
	executionsController.RegisterRoutes(mux)
	eventsController := controllers.NewEventsController(formRepo, clientRepo, notificationRepo, scheduler, trainerRepo, clock)
	eventsController.RegisterRoutes(mux)
	processorsController := controllers.NewProcessorsController(processorRepo, trainerRepo)
	processorsController.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("HTTP server failed", "error", err)
		return err
	}
	return nil
}

// OpenDatabase runs migrations and opens the configured database. It panics
// on misconfiguration since nothing can run without a database.
func OpenDatabase() *sql.DB {
	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	switch databaseType {
	case config.DATABASE_TYPE_POSTGRES:
		return setupPostgresDatabase()
	case config.DATABASE_TYPE_MYSQL:
		return setupMysqlDatabase()
	case config.DATABASE_TYPE_SQLLITE:
		return setupSqlLiteDatabase()
	}
	panic("EFLOW_DATABASE_TYPE must be set to one of the following values: POSTGRES, MYSQL, SQLLITE")
}

func setupPostgresDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("EFLOW_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening Postgres database")
	dbPostgres, err := sql.Open("postgres", dbURL)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbPostgres
}

func setupSqlLiteDatabase() *sql.DB {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		panic("EFLOW_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	dbURL := "sqlite3://" + fileName
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("sqllite3", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening SQLite database")
	dbSqlLite, err := sql.Open("sqlite3", fileName)
	if err != nil {
		log.Fatalf("Failed to open SQLite DB: %v", err)
	}
	if err := dbSqlLite.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite DB: %v", err)
	}
	return dbSqlLite
}

func setupMysqlDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("EFLOW_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		panic("EFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		panic("EFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
	}

	slog.Info("Using MySQL database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening MySQL database")
	dbMysql, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbMysql
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Migrate runs the embedded migrations for the configured database and
// returns without starting the engine. Used by the migrate CLI command.
func Migrate() error {
	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	switch databaseType {
	case config.DATABASE_TYPE_POSTGRES:
		return runMigrationsFromEmbed("postgres", config.GetSystemSettingString(config.DATABASE_URL))
	case config.DATABASE_TYPE_MYSQL:
		return runMigrationsFromEmbed("mysql", config.GetSystemSettingString(config.DATABASE_URL))
	case config.DATABASE_TYPE_SQLLITE:
		return runMigrationsFromEmbed("sqllite3", "sqlite3://"+config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME))
	}
	panic("EFLOW_DATABASE_TYPE must be set to one of the following values: POSTGRES, MYSQL, SQLLITE")
}

func SetupLogger() {
	w := os.Stderr
	_ = slog.New(tint.NewHandler(w, nil))
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
