package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"classroom-energy-aggregator/internal/aggregation/application"
	"classroom-energy-aggregator/internal/aggregation/domain/summary"
	summarypostgres "classroom-energy-aggregator/internal/aggregation/infrastructure/postgres"
	consumptionpostgres "classroom-energy-aggregator/internal/consumption/infrastructure/postgres"
	"classroom-energy-aggregator/internal/storage"
)

const (
	testSchema      = "classroom_agg_it"
	readingsTable   = testSchema + ".classroom_energy_consumption"
	summaryTable    = testSchema + ".classroom_data_aggregation"
	classroomsTable = testSchema + ".classrooms"
)

func TestBackfill_PostgresRoundTrip(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := prepareSchema(ctx, t, db)

	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	seedReadings(ctx, t, db,
		reading{"A01", 10, day.Add(8*time.Hour + 15*time.Minute)},
		reading{"A01", 20, day.Add(8*time.Hour + 45*time.Minute)},
		reading{"A01", 30, day.Add(9*time.Hour + 5*time.Minute)},
		reading{"B02", 5, day.AddDate(0, 0, 1).Add(10 * time.Hour)},
		// exactly at the window end, must not be aggregated
		reading{"B02", 99, day.AddDate(0, 0, 2)},
	)

	readings, err := consumptionpostgres.NewReadingQuery(db, consumptionpostgres.WithTable(readingsTable))
	if err != nil {
		t.Fatalf("reading query: %v", err)
	}
	service, err := application.NewDayAggregationService(readings, repo)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	backfill, err := application.NewBackfill(service)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	window := application.Window{Start: day, End: day.AddDate(0, 0, 2), Location: time.UTC}

	run, err := backfill.Run(ctx, window)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	totals := run.Totals()
	if totals.Failed != 0 || totals.Inserted != 3 || totals.Readings != 4 {
		t.Fatalf("unexpected totals: %+v", totals)
	}

	eight := fetchRow(ctx, t, db, "A01", day.Add(8*time.Hour))
	if eight != [4]int64{15, 10, 20, 7} {
		t.Fatalf("unexpected 08:00 row: %v", eight)
	}
	nine := fetchRow(ctx, t, db, "A01", day.Add(9*time.Hour))
	if nine != [4]int64{30, 30, 30, 0} {
		t.Fatalf("unexpected 09:00 row: %v", nine)
	}

	rerun, err := backfill.Run(ctx, window)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if got := rerun.Totals(); got.Inserted != 0 || got.Skipped != 3 {
		t.Fatalf("rerun should skip all rows: %+v", got)
	}
	count, err := repo.CountBetween(ctx, day, day.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 persisted rows, got %d", count)
	}
}

func TestReadingQuery_HalfOpenInterval(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()
	prepareSchema(ctx, t, db)

	start := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	seedReadings(ctx, t, db,
		reading{"A01", 1, start},
		reading{"A01", 2, end.Add(-time.Second)},
		reading{"A01", 3, end},
	)

	query, err := consumptionpostgres.NewReadingQuery(db, consumptionpostgres.WithTable(readingsTable))
	if err != nil {
		t.Fatalf("reading query: %v", err)
	}
	got, err := query.Load(ctx, start, end)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings in [start, end), got %d", len(got))
	}
	for _, r := range got {
		if !r.At.Before(end) {
			t.Fatalf("reading at end leaked: %v", r.At)
		}
	}
}

func TestSummaryRepository_UnknownClassroom(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := prepareSchema(ctx, t, db)

	hour := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	rows := []summary.Row{
		{ClassroomID: "A01", AvgConsumption: 1, MinConsumption: 1, MaxConsumption: 1, AggregationDate: hour},
		{ClassroomID: "ZZZ", AvgConsumption: 1, MinConsumption: 1, MaxConsumption: 1, AggregationDate: hour},
	}
	_, err := repo.Save(ctx, rows)
	if !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	count, err := repo.CountBetween(ctx, hour, hour.Add(time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed batch must be rolled back, found %d rows", count)
	}
}

func TestSummaryRepository_EnsureSchemaIdempotent(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := prepareSchema(ctx, t, db)

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
}

type reading struct {
	classroomID string
	consumption float64
	at          time.Time
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

// prepareSchema recreates the test schema with classrooms A01 and B02.
func prepareSchema(ctx context.Context, t *testing.T, db *sql.DB) *summarypostgres.SummaryRepository {
	t.Helper()
	statements := []string{
		"DROP SCHEMA IF EXISTS " + testSchema + " CASCADE",
		"CREATE SCHEMA " + testSchema,
		"CREATE TABLE " + classroomsTable + " (id varchar(3) PRIMARY KEY)",
		"CREATE TABLE " + readingsTable + " (classroom_id varchar(3), consumption double precision, date_time timestamp NOT NULL)",
		"INSERT INTO " + classroomsTable + " (id) VALUES ('A01'), ('B02')",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("prepare schema: %s: %v", stmt, err)
		}
	}
	repo, err := summarypostgres.NewSummaryRepository(db,
		summarypostgres.WithTable(summaryTable),
		summarypostgres.WithClassroomsTable(classroomsTable),
	)
	if err != nil {
		t.Fatalf("summary repo: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return repo
}

func seedReadings(ctx context.Context, t *testing.T, db *sql.DB, readings ...reading) {
	t.Helper()
	for _, r := range readings {
		_, err := db.ExecContext(ctx,
			"INSERT INTO "+readingsTable+" (classroom_id, consumption, date_time) VALUES ($1, $2, $3)",
			r.classroomID, r.consumption, r.at)
		if err != nil {
			t.Fatalf("seed reading: %v", err)
		}
	}
}

func fetchRow(ctx context.Context, t *testing.T, db *sql.DB, classroomID string, hour time.Time) [4]int64 {
	t.Helper()
	var row [4]int64
	err := db.QueryRowContext(ctx,
		"SELECT avg_consumption, min_consumption, max_consumption, std_consumption FROM "+summaryTable+
			" WHERE classroom_id = $1 AND aggregation_date = $2",
		classroomID, hour).Scan(&row[0], &row[1], &row[2], &row[3])
	if err != nil {
		t.Fatalf("fetch %s %s: %v", classroomID, hour.Format(time.RFC3339), err)
	}
	return row
}
