package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"propertyhub/internal/normalize"
	"propertyhub/internal/reference"
	"propertyhub/pkg/database"
	"propertyhub/pkg/logging"
	"propertyhub/pkg/utils"
)

type options struct {
	columns   []string
	reconcile bool
	titles    bool
	dryRun    bool
	report    string
}

func main() {
	cfg := utils.Load()

	var (
		columns   = flag.String("columns", strings.Join(normalize.ArrayColumns, ","), "tag columns to repair (comma separated, empty for none)")
		reconcile = flag.Bool("reconcile", false, "back-fill type/status/location ids from legacy text and refresh titles")
		titles    = flag.Bool("titles", false, "regenerate every stored title")
		dryRun    = flag.Bool("dry-run", false, "report what would change without writing")
		report    = flag.String("report", "", "write a JSON report of every pass to this path")
		schedule  = flag.String("schedule", "", "cron expression; when set, keep running and repeat on that schedule")
		logFile   = flag.String("log-file", cfg.Server.LogFile, "also log to this file")
		timeout   = flag.Duration("timeout", 10*time.Minute, "timeout of a single run")
	)
	flag.Parse()

	rw, err := logging.Setup(*logFile)
	if err != nil {
		log.Fatalf("log setup failed: %v", err)
	}
	defer rw.Close()

	db := database.MustOpenMigrated(database.DefaultConfig())
	defer db.Close()

	opts := options{
		columns:   splitColumns(*columns),
		reconcile: *reconcile,
		titles:    *titles,
		dryRun:    *dryRun,
		report:    *report,
	}

	once := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		if _, err := run(ctx, db, opts, log.Default()); err != nil {
			log.Printf("[normalize] run failed: %v", err)
		}
	}

	if *schedule == "" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if _, err := run(ctx, db, opts, log.Default()); err != nil {
			log.Fatalf("[normalize] %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(*schedule, func() { once(ctx) }); err != nil {
		log.Fatalf("[normalize] invalid cron expression: %v", err)
	}
	log.Printf("[normalize] scheduled with cron: %s", *schedule)
	c.Start()

	<-ctx.Done()
	log.Println("[normalize] stopping scheduler")
	<-c.Stop().Done()
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// run executes the requested passes in order: tag cleanup, id reconciliation,
// then title regeneration. Each pass commits on its own and the runner logs
// its summary.
func run(ctx context.Context, db *sql.DB, opts options, logger *log.Logger) ([]*normalize.Report, error) {
	runner := normalize.NewRunner(db, logger)
	var reports []*normalize.Report

	for _, col := range opts.columns {
		rep, err := runner.CleanArrays(ctx, col, opts.dryRun)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}

	if opts.reconcile || opts.titles {
		snap, err := reference.LoadSnapshot(ctx, reference.NewRepo(db))
		if err != nil {
			return reports, fmt.Errorf("load reference data: %w", err)
		}
		if opts.reconcile {
			rep, err := runner.Reconcile(ctx, snap, opts.dryRun)
			if err != nil {
				return reports, err
			}
			reports = append(reports, rep)
		}
		if opts.titles {
			rep, err := runner.RegenerateTitles(ctx, snap, opts.dryRun)
			if err != nil {
				return reports, err
			}
			reports = append(reports, rep)
		}
	}

	if opts.report != "" {
		if err := normalize.WriteReports(opts.report, reports); err != nil {
			return reports, err
		}
		logger.Printf("[normalize] report written to %s", opts.report)
	}
	return reports, nil
}
