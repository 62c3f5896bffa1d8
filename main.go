package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"classroom-energy-aggregator/internal/aggregation/application"
	"classroom-energy-aggregator/internal/aggregation/domain/summary"
	summarymemory "classroom-energy-aggregator/internal/aggregation/infrastructure/memory"
	summarypostgres "classroom-energy-aggregator/internal/aggregation/infrastructure/postgres"
	"classroom-energy-aggregator/internal/aggregation/interfaces"
	"classroom-energy-aggregator/internal/config"
	consumptionpostgres "classroom-energy-aggregator/internal/consumption/infrastructure/postgres"
	"classroom-energy-aggregator/internal/logging"
	"classroom-energy-aggregator/internal/observability/metrics"
)

const metricsPublishTimeout = 10 * time.Second

type flags struct {
	configPath string
	start      string
	end        string
	timezone   string
	failFast   bool
	workers    int
	dayTimeout time.Duration
	report     string
	dryRun     bool
	debug      bool
	set        map[string]bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags(os.Args[1:])

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	applyFlags(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		logger.Errorw("db open error", "host", cfg.Database.Host, "database", cfg.Database.Name, "error", err)
		return 1
	}
	defer db.Close()

	m := metrics.New()
	if err := m.RegisterDB(db, cfg.Database.Name); err != nil {
		logger.Warnw("db stats collector not registered", "error", err)
	}

	readings, err := consumptionpostgres.NewReadingQuery(db, consumptionpostgres.WithTable(cfg.Tables.Readings))
	if err != nil {
		logger.Errorw("reading query error", "error", err)
		return 1
	}
	repo, err := buildRepository(ctx, db, cfg, logger)
	if err != nil {
		logger.Errorw("summary repository error", "error", err)
		return 1
	}

	dayService, err := application.NewDayAggregationService(readings, repo)
	if err != nil {
		logger.Errorw("day aggregation service error", "error", err)
		return 1
	}
	backfill, err := application.NewBackfill(dayService,
		application.WithLogger(logger),
		application.WithMetrics(m),
		application.WithFailFast(cfg.Run.FailFast),
		application.WithDayTimeout(cfg.Run.DayTimeout),
		application.WithWorkers(cfg.Run.Workers),
	)
	if err != nil {
		logger.Errorw("backfill error", "error", err)
		return 1
	}

	start, end, loc, err := cfg.Window.Bounds()
	if err != nil {
		logger.Errorw("window error", "error", err)
		return 1
	}
	runSummary, runErr := backfill.Run(ctx, application.Window{Start: start, End: end, Location: loc})
	if runErr != nil {
		logger.Errorw("backfill stopped", "error", runErr)
	}

	printSummary(runSummary, cfg.Run.DryRun)
	if cfg.Report != "" && runSummary != nil {
		if err := interfaces.WriteRunReport(cfg.Report, runSummary); err != nil {
			logger.Errorw("run report error", "path", cfg.Report, "error", err)
		} else {
			logger.Infow("run report written", "path", cfg.Report)
		}
	}
	publishMetrics(m, cfg.Metrics, logger)

	if runErr != nil || !runSummary.Complete() {
		return 1
	}
	return 0
}

func parseFlags(args []string) flags {
	var opts flags
	fs := flag.NewFlagSet("classroom-energy-aggregator", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config (default $CLASSROOM_AGG_CONFIG)")
	fs.StringVar(&opts.start, "start", "", "first day to aggregate, YYYY-MM-DD")
	fs.StringVar(&opts.end, "end", "", "day after the last one to aggregate, YYYY-MM-DD")
	fs.StringVar(&opts.timezone, "timezone", "", "IANA zone that defines day boundaries")
	fs.BoolVar(&opts.failFast, "fail-fast", false, "stop at the first failed day")
	fs.IntVar(&opts.workers, "workers", 0, "days processed concurrently")
	fs.DurationVar(&opts.dayTimeout, "day-timeout", 0, "timeout for a single day, 0 disables it")
	fs.StringVar(&opts.report, "report", "", "write a run report (.xlsx, .pdf or .csv)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "aggregate without writing to the database")
	fs.BoolVar(&opts.debug, "debug", false, "development logging")
	_ = fs.Parse(args)

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cfg *config.Config, opts flags) {
	if opts.set["start"] {
		cfg.Window.Start = opts.start
	}
	if opts.set["end"] {
		cfg.Window.End = opts.end
	}
	if opts.set["timezone"] {
		cfg.Window.Timezone = opts.timezone
	}
	if opts.set["fail-fast"] {
		cfg.Run.FailFast = opts.failFast
	}
	if opts.set["workers"] {
		cfg.Run.Workers = opts.workers
	}
	if opts.set["day-timeout"] {
		cfg.Run.DayTimeout = opts.dayTimeout
	}
	if opts.set["report"] {
		cfg.Report = opts.report
	}
	if opts.set["dry-run"] {
		cfg.Run.DryRun = opts.dryRun
	}
	if opts.set["debug"] {
		cfg.Debug = opts.debug
	}
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	connConfig, err := cfg.ConnConfig()
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*connConfig)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func buildRepository(ctx context.Context, db *sql.DB, cfg config.Config, logger *zap.SugaredLogger) (summary.Repository, error) {
	if cfg.Run.DryRun {
		logger.Infow("dry run: summaries are kept in memory")
		return summarymemory.NewSummaryRepository(), nil
	}
	repo, err := summarypostgres.NewSummaryRepository(db,
		summarypostgres.WithTable(cfg.Tables.Aggregation),
		summarypostgres.WithClassroomsTable(cfg.Tables.Classrooms),
	)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func printSummary(run *application.RunSummary, dryRun bool) {
	if run == nil {
		return
	}
	totals := run.Totals()
	mode := ""
	if dryRun {
		mode = " (dry run)"
	}
	fmt.Printf("aggregated %s to %s%s: %d/%d days, %d readings, %d rows, %d inserted, %d skipped in %s\n",
		run.Start.Format(time.DateOnly), run.End.Format(time.DateOnly), mode,
		totals.Days, run.Planned, totals.Readings, totals.Rows, totals.Inserted, totals.Skipped,
		run.Duration.Round(time.Millisecond))
	failed := run.Failed()
	if len(failed) == 0 {
		return
	}
	fmt.Printf("%d day(s) failed:\n", len(failed))
	for _, day := range failed {
		fmt.Printf("  %s: %v\n", day.Day.Format(time.DateOnly), day.Err)
	}
}

func publishMetrics(m *metrics.Metrics, cfg config.MetricsConfig, logger *zap.SugaredLogger) {
	if cfg.Textfile != "" {
		if err := m.WriteTextfile(cfg.Textfile); err != nil {
			logger.Warnw("metrics textfile error", "path", cfg.Textfile, "error", err)
		}
	}
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsPublishTimeout)
	defer cancel()
	if err := m.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		logger.Warnw("metrics push error", "url", cfg.PushgatewayURL, "error", err)
	}
}
