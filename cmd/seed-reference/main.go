package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"propertyhub/internal/reference"
	"propertyhub/pkg/database"
	"propertyhub/pkg/utils"
)

func main() {
	file := flag.String("file", "data/reference.yaml", "YAML file with types, statuses and the province/district/subdistrict tree")
	flag.Parse()
	_ = utils.Load() // .env may set PROPERTYHUB_DB_PATH

	b, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	seed, err := reference.ParseSeed(b)
	if err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := database.DefaultConfig()
	if err := database.EnsureDataDir(cfg); err != nil {
		log.Fatalf("data dir: %v", err)
	}
	db := database.MustOpenMigrated(cfg)
	defer db.Close()

	stats, err := reference.NewRepo(db).ApplySeed(ctx, seed)
	if err != nil {
		log.Fatalf("apply seed failed: %v", err)
	}
	log.Printf("[seed] %s: %+v", *file, stats)
}
