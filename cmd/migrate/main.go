package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/schoolpay/backend/internal/infrastructure/config"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/migration"
	"github.com/schoolpay/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Migrations directory (default: the migrations built into the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	var source fs.FS = migrations.FS
	if migrationsPath != "" {
		source = os.DirFS(migrationsPath)
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list work without a database
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		dir := migrationsPath
		if dir == "" {
			dir = defaultMigrationsPath
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(dir, args[1], description, time.Now().UTC())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created successfully",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		if err := migration.CheckPairs(source); err != nil {
			log.Warn("Migration set is incomplete", zap.Error(err))
		}
		names, err := migration.ListMigrations(source)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(names) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Available migrations", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, source, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		n, err := intArg(args, "Step count required. Usage: migrate step <n>")
		if err != nil {
			log.Fatal("Invalid step count", zap.Error(err))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		version, err := intArg(args, "Version required. Usage: migrate goto <version>")
		if err != nil || version < 0 {
			log.Fatal("Invalid version number", zap.Error(err))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version":
		status, err := m.Status()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if status.Version == 0 {
			log.Info("No migrations applied")
			return
		}
		log.Info("Current migration version",
			zap.Uint("version", status.Version),
			zap.Bool("dirty", status.Dirty),
		)

	case "force":
		version, err := intArg(args, "Version required. Usage: migrate force <version>")
		if err != nil {
			log.Fatal("Invalid version number", zap.Error(err))
		}
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s", usage)
	}
	return strconv.Atoi(args[1])
}

func printUsage() {
	fmt.Println(`School Payments Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: built-in migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  SCHOOLPAY_DATABASE_HOST, SCHOOLPAY_DATABASE_PORT, SCHOOLPAY_DATABASE_USER,
  SCHOOLPAY_DATABASE_PASSWORD, SCHOOLPAY_DATABASE_DBNAME

Examples:
  # Apply all pending migrations
  migrate up

  # Roll back the last migration
  migrate step -1

  # Create a new migration
  migrate -path ./migrations create add_payment_method "Record how a payment was made"`)
}
