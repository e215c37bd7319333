package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/darshanam/internal/adapters/postgres"
	"github.com/samirrijal/darshanam/internal/pkg/config"
	"github.com/samirrijal/darshanam/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("darshanam-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var down bool
	switch os.Args[1] {
	case "up":
	case "down":
		down = true
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	applied, err := postgres.Migrate(ctx, db, migrations.FS, down)
	for _, f := range applied {
		fmt.Printf("OK  %s\n", f)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", os.Args[1], err)
	}
	log.Printf("%d migrations applied", len(applied))
}
