package main

import (
	"context"
	"flag"
	"log"
	"time"

	"propertyhub/internal/normalize"
	"propertyhub/internal/reference"
	"propertyhub/pkg/database"
	"propertyhub/pkg/utils"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report how many titles are stale without writing")
	flag.Parse()
	_ = utils.Load() // .env may set PROPERTYHUB_DB_PATH

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db := database.MustOpenMigrated(database.DefaultConfig())
	defer db.Close()

	snap, err := reference.LoadSnapshot(ctx, reference.NewRepo(db))
	if err != nil {
		log.Fatalf("load reference data: %v", err)
	}

	rep, err := normalize.NewRunner(db, log.Default()).RegenerateTitles(ctx, snap, *dryRun)
	if err != nil {
		log.Fatalf("regenerate titles failed: %v", err)
	}
	if rep.Changed == 0 {
		log.Println("[titles] all titles up to date")
	}
}
