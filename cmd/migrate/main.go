package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/partscatalog/backend/internal/infrastructure/config"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"github.com/partscatalog/backend/internal/infrastructure/migration"
	"github.com/partscatalog/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
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
	defer func() {
		_ = log.Sync()
	}()

	src := migration.Source{FS: migrations.FS}
	var files fs.FS = migrations.FS
	if migrationsPath != "" {
		src = migration.Source{Path: migrationsPath}
		files = os.DirFS(migrationsPath)
	}

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		dir := migrationsPath
		if dir == "" {
			dir = defaultMigrationsDir
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		f, err := migration.Create(dir, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", f.Version),
			zap.String("up_file", f.UpPath),
			zap.String("down_file", f.DownPath),
		)
		return

	case "list":
		entries, err := migration.List(files)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(entries) == 0 {
			log.Info("No migrations found")
			return
		}
		for _, e := range entries {
			fmt.Printf("  %06d  %s\n", e.Version, e.Name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, src, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Closing migrator", zap.Error(err))
		}
	}()

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
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
			return
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
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

func printUsage() {
	fmt.Println(`Parts catalog database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version after a failed run
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the set compiled into the binary)
  -log-level string     Log level: debug, info, warn, error (default: info)

Database settings come from config.toml and PARTS_DATABASE_* variables.`)
}
