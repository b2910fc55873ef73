package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/volaticloud/pulse/internal/db"
	"github.com/volaticloud/pulse/internal/ent"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pulse-migrate",
		Usage:   "Apply pulse's ent schema and hand-written SQL migrations",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database",
				Usage:    "Postgres connection string (postgres://...)",
				EnvVars:  []string{"PULSE_DATABASE"},
				Required: true,
			},
		},
		Action: runMigrate,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(c *cli.Context) error {
	ctx := context.Background()
	dsn := c.String("database")

	client, err := ent.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed opening connection to postgres: %w", err)
	}
	defer client.Close()

	log.Println("Running ent schema migration...")
	if err := client.Schema.Create(ctx); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	log.Println("✓ Ent schema migrated")

	// internal/db.RunMigrations wants a plain *sql.DB: roles, RLS
	// policies, and partial indexes aren't expressible through ent's
	// schema API, so this runs as a second pass against the same
	// database over a second, plain lib/pq connection.
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed opening plain sql connection: %w", err)
	}
	defer sqlDB.Close()

	log.Println("Applying hand-written SQL migrations...")
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return fmt.Errorf("failed applying SQL migrations: %w", err)
	}
	log.Println("✓ SQL migrations applied")

	log.Println("✓ Migrations completed successfully!")
	return nil
}
