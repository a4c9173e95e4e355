// Package store keeps conversion job reports in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var ErrNotFound = errors.New("job not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Job is the report of one conversion.
type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Format    string    `json:"format"`
	Built     int       `json:"built"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Triangles int       `json:"triangles"`
	Errors    []string  `json:"errors"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the sqlite database at dbPath, creating its directory.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Init applies the bundled migrations in name order.
func (s *Store) Init(ctx context.Context) error {
	names, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("store: migrations: %w", err)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })
	for _, n := range names {
		data, err := migrations.ReadFile("migrations/" + n.Name())
		if err != nil {
			return fmt.Errorf("store: read migration %s: %w", n.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("store: apply migration %s: %w", n.Name(), err)
		}
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts job, assigning an ID and creation time when unset, and
// returns the stored job.
func (s *Store) Save(ctx context.Context, job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.CreatedAt = job.CreatedAt.UTC().Truncate(time.Millisecond)
	if job.Errors == nil {
		job.Errors = []string{}
	}
	errs, err := json.Marshal(job.Errors)
	if err != nil {
		return Job{}, err
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO jobs (id, source, format, built, failed, skipped, triangles, errors, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, job.ID, job.Source, job.Format, job.Built, job.Failed, job.Skipped, job.Triangles, string(errs), job.CreatedAt.UnixMilli())
	if err != nil {
		return Job{}, fmt.Errorf("store: save %s: %w", job.ID, err)
	}
	return job, nil
}

const jobColumns = `id, source, format, built, failed, skipped, triangles, errors, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var j Job
	var errs string
	var created int64
	if err := row.Scan(&j.ID, &j.Source, &j.Format, &j.Built, &j.Failed, &j.Skipped, &j.Triangles, &errs, &created); err != nil {
		return Job{}, err
	}
	if err := json.Unmarshal([]byte(errs), &j.Errors); err != nil {
		return Job{}, fmt.Errorf("store: job %s errors: %w", j.ID, err)
	}
	j.CreatedAt = time.UnixMilli(created).UTC()
	return j, nil
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, fmt.Errorf("store: %w: %s", ErrNotFound, id)
		}
		return Job{}, err
	}
	return j, nil
}

// Recent returns up to limit jobs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
