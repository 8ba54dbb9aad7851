// Package store persists QC activities, cycle results and histogram
// snapshots in SQLite.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/mftqc/internal/monitoring"
	"github.com/banshee-data/mftqc/internal/qc"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a QC result database.
type Store struct {
	*sql.DB
	path string
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Open opens the database at path and migrates it to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string { return s.path }

// MigrateUp runs all pending migrations.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// ActivityRecord is a stored activity.
type ActivityRecord struct {
	qc.Activity
	FLP       int
	TaskLevel int
}

// RecordActivity stores the start of an activity.
func (s *Store) RecordActivity(act qc.Activity, flp, taskLevel int) error {
	_, err := s.Exec(
		`INSERT INTO activities (activity_id, run_number, flp, task_level, started_at) VALUES (?, ?, ?, ?, ?)`,
		act.ID.String(), act.RunNumber, flp, taskLevel, act.Started.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record activity %s: %w", act.ID, err)
	}
	return nil
}

// Activities returns the stored activities, newest first.
func (s *Store) Activities() ([]ActivityRecord, error) {
	rows, err := s.Query(`SELECT activity_id, run_number, flp, task_level, started_at FROM activities ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivityRecord
	for rows.Next() {
		var (
			id      string
			started int64
			r       ActivityRecord
		)
		if err := rows.Scan(&id, &r.RunNumber, &r.FLP, &r.TaskLevel, &started); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("activity id %q: %w", id, err)
		}
		r.Started = time.Unix(0, started).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordCycle stores the summary of one finished cycle.
func (s *Store) RecordCycle(activityID uuid.UUID, c qc.CycleSummary) error {
	_, err := s.Exec(`
		INSERT INTO cycles (
			activity_id, task, cycle, quality, records, skipped,
			active_chips, occupancy_mean, occupancy_stddev, occupancy_median
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		activityID.String(), c.Task, c.Cycle, c.Quality.String(), c.Records, int64(c.Skipped),
		c.ActiveChips, c.OccupancyMean, c.OccupancyStdDev, c.OccupancyMedian,
	)
	if err != nil {
		return fmt.Errorf("record cycle %d of %s: %w", c.Cycle, activityID, err)
	}
	return nil
}

// Cycles returns the cycles of an activity ordered by task and cycle.
func (s *Store) Cycles(activityID uuid.UUID) ([]qc.CycleSummary, error) {
	rows, err := s.Query(`
		SELECT task, cycle, quality, records, skipped, active_chips,
		       occupancy_mean, occupancy_stddev, occupancy_median
		FROM cycles WHERE activity_id = ? ORDER BY task, cycle`, activityID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []qc.CycleSummary
	for rows.Next() {
		var (
			c       qc.CycleSummary
			quality string
			skipped int64
		)
		if err := rows.Scan(&c.Task, &c.Cycle, &quality, &c.Records, &skipped, &c.ActiveChips,
			&c.OccupancyMean, &c.OccupancyStdDev, &c.OccupancyMedian); err != nil {
			return nil, err
		}
		if c.Quality, err = qc.ParseQuality(quality); err != nil {
			return nil, err
		}
		c.Skipped = uint64(skipped)
		out = append(out, c)
	}
	return out, rows.Err()
}

// QualityCounts returns how many stored cycles ended with each quality.
func (s *Store) QualityCounts() (map[string]int, error) {
	rows, err := s.Query(`SELECT quality, COUNT(*) FROM cycles GROUP BY quality`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			q string
			n int
		)
		if err := rows.Scan(&q, &n); err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, rows.Err()
}
