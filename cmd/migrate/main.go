package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cagcore/engine/internal/migration"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const defaultMigrationsPath = "migrations/sql"

var (
	upFlag      = flag.Bool("up", false, "Run migrations up")
	downFlag    = flag.Bool("down", false, "Roll back the last migration")
	resetFlag   = flag.Bool("reset", false, "Roll back all migrations")
	versionFlag = flag.Bool("version", false, "Show current migration version")

	dsn           = flag.String("dsn", "", "Database connection string")
	migrationsDir = flag.String("dir", defaultMigrationsPath, "Migrations directory")
	steps         = flag.Int("steps", 0, "Number of migrations to apply (0 = all)")
	timeout       = flag.Duration("timeout", 1*time.Minute, "Migration timeout")
)

func main() {
	flag.Parse()

	if *dsn == "" {
		fmt.Println("Error: -dsn is required")
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received termination signal, canceling operations...")
		cancel()
	}()

	manager, err := migration.NewManager(sqlxDB, migration.Config{
		MigrationsPath:   *migrationsDir,
		MigrationTimeout: *timeout,
		Steps:            *steps,
	})
	if err != nil {
		log.Fatalf("failed to create migration manager: %v", err)
	}
	defer manager.Close()

	if err := manager.Init(); err != nil {
		log.Fatalf("failed to initialize migration manager: %v", err)
	}

	switch {
	case *versionFlag:
		version, dirty, err := manager.Version()
		if err != nil {
			log.Fatalf("failed to get migration version: %v", err)
		}
		fmt.Printf("current migration version: %d (dirty: %t)\n", version, dirty)

	case *upFlag:
		fmt.Println("running migrations...")
		start := time.Now()
		if err := manager.Up(ctx); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Printf("migrations completed in %s\n", time.Since(start))

	case *downFlag:
		fmt.Println("rolling back last migration...")
		if err := manager.Down(); err != nil {
			log.Fatalf("failed to roll back migration: %v", err)
		}
		fmt.Println("rollback completed")

	case *resetFlag:
		fmt.Println("rolling back all migrations...")
		if err := manager.Reset(); err != nil {
			log.Fatalf("failed to reset migrations: %v", err)
		}
		fmt.Println("all migrations have been rolled back")

	default:
		flag.Usage()
	}
}
