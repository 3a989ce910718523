package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/gestionbot/core/internal/adapters/discord"
	"github.com/gestionbot/core/internal/adapters/repository"
	"github.com/gestionbot/core/internal/application/services"
	"github.com/gestionbot/core/internal/infrastructure/config"
	"github.com/gestionbot/core/internal/infrastructure/database"
	"github.com/gestionbot/core/internal/infrastructure/logger"
	"github.com/gestionbot/core/internal/infrastructure/metrics"
	"github.com/gestionbot/core/internal/infrastructure/server"
	"github.com/gestionbot/core/internal/ports"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the operational HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			runBot()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands. Only
// relevant for the postgres storage backend.
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands (postgres backend)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewStateCommand creates the state inspection command
func NewStateCommand() *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Ledger state commands",
	}

	stateCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current ledger document as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			showState()
		},
	})

	return stateCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print GestionBot version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Println("GestionBot (unknown version)")
				return
			}
			fmt.Printf("%s v%s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runBot() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Discord.ValidateServe(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	m := metrics.New()

	repo, db, extraRecorders, err := buildStorage(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize storage", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	ledger := services.NewLedgerService(repo, m, appLogger)
	if err := ledger.Init(context.Background()); err != nil {
		appLogger.Fatal("Failed to load ledger document", "error", err)
	}

	access := services.NewAccessService(cfg.Discord)

	bot, err := discord.NewBot(cfg.Discord, ledger, access, m, appLogger, extraRecorders...)
	if err != nil {
		appLogger.Fatal("Failed to initialize bot", "error", err)
	}

	srv := server.New(cfg, db, m, appLogger)
	go func() {
		appLogger.Info("Starting operational HTTP server", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			appLogger.Fatal("HTTP server failed", "error", err)
		}
	}()

	if err := bot.Start(); err != nil {
		appLogger.Fatal("Failed to start bot", "error", err)
	}

	appLogger.Info("Bot is running",
		"storage", cfg.Storage.Driver,
		"environment", cfg.App.Environment,
	)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	appLogger.Info("Shutting down")
	if err := bot.Stop(); err != nil {
		appLogger.Warn("Bot shutdown error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Warn("HTTP server shutdown error", "error", err)
	}
}

// buildStorage wires the ledger repository for the configured driver, plus
// the extra history recorders that come with it.
func buildStorage(cfg *config.Config) (ports.LedgerRepository, *database.DB, []ports.HistoryRecorder, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewPostgresRepository(db.DB), db,
			[]ports.HistoryRecorder{repository.NewJournalRecorder(db.DB)}, nil
	default:
		return repository.NewFileRepository(cfg.Storage.FilePath), nil, nil, nil
	}
}

func runMigration(direction string) {
	m, db := newMigrator()
	defer db.Close()

	var err error
	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration %s failed: %v", direction, err)
	}
	log.Printf("Migration %s complete", direction)
}

func showMigrationVersion() {
	m, db := newMigrator()
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("No migrations applied yet")
			return
		}
		log.Fatalf("Failed to read migration version: %v", err)
	}
	log.Printf("Migration version: %d (dirty: %v)", version, dirty)
}

func newMigrator() (*migrate.Migrate, *sql.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", cfg.Database.Name, driver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	return m, db
}

func showState() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	repo, db, _, err := buildStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	doc, err := repo.Load(context.Background())
	if err != nil {
		log.Fatalf("Failed to load ledger document: %v", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render document: %v", err)
	}
	fmt.Println(string(out))
}
