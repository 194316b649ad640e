package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	repo "github.com/joseph-ayodele/ecoscore/internal/repository"
)

func main() {
	cfg := common.LoadConfig()
	if len(os.Args) > 1 {
		cfg.Database.DSN = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        2,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, nil)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, time.Second); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Printf("DB health: OK (%s)", db.Dialect())

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	user := os.Getenv("ECOSCORE_USER")
	if user == "" {
		return
	}
	records := repo.NewRecordRepository(db, nil)
	for _, k := range constants.Kinds() {
		recs, err := records.List(ctx, user, constants.DocumentKind(k))
		if err != nil {
			log.Fatalf("listing %s records: %v", k, err)
		}
		log.Printf("- %s: %d records", k, len(recs))
	}
}
