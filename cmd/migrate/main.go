package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/contactd/backend/internal/config"
	"github.com/contactd/backend/internal/logging"
	"github.com/contactd/backend/migrations"
	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [command]

Commands:
  up        apply all pending migrations (default)
  down      roll back the most recent migration
  status    list migrations and whether they are applied
  reset     roll back every migration`)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"))

	var cfg config.DatabaseConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logging.Fatal("read database config failed", "error", err)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		logging.Fatal("open database failed", "error", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		logging.Fatal("goose provider failed", "error", err)
	}

	switch cmd {
	case "up":
		results, err := provider.Up(ctx)
		logResults(results)
		if err != nil {
			logging.Fatal("migrate up failed", "error", err)
		}
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			logResults([]*goose.MigrationResult{result})
		}
		if err != nil {
			logging.Fatal("migrate down failed", "error", err)
		}
	case "reset":
		results, err := provider.DownTo(ctx, 0)
		logResults(results)
		if err != nil {
			logging.Fatal("migrate reset failed", "error", err)
		}
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			logging.Fatal("migrate status failed", "error", err)
		}
		for _, s := range statuses {
			fmt.Printf("%-8s %05d  %s\n", s.State, s.Source.Version, s.Source.Path)
		}
	default:
		usage()
	}
}

func logResults(results []*goose.MigrationResult) {
	if len(results) == 0 {
		slog.Info("no migrations to run")
		return
	}
	for _, r := range results {
		slog.Info("migration",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"direction", r.Direction,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
}
