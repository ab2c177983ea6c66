// Package ledger is the durable record of reconciled payment returns.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultListLimit = 50
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound          = errors.New("payment result not found")
	ErrUnsupportedDriver = errors.New("unsupported ledger driver")
)

type Record struct {
	OrderCode   string                `json:"order_code"`
	Outcome     domain.PaymentOutcome `json:"outcome"`
	ProcessedAt time.Time             `json:"processed_at"`
}

type Ledger struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to the database and applies the embedded migrations.
func Open(ctx context.Context, driver, dsn string) (*Ledger, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // sqlite allows one writer
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
	}

	l := &Ledger{db: db, driver: driver, now: time.Now}
	if err := l.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) runMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	var driver database.Driver
	switch l.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(l.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(l.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, l.driver, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Claim records the outcome for the order code. It reports true when the row is new, or when a
// success replaces an earlier non-success; any other outcome for a recorded code is a no-op.
func (l *Ledger) Claim(ctx context.Context, orderCode string, outcome domain.PaymentOutcome) (bool, error) {
	query := `
		INSERT INTO payment_results (order_code, outcome, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_code) DO UPDATE
		SET outcome = excluded.outcome, processed_at = excluded.processed_at
		WHERE excluded.outcome = $4 AND payment_results.outcome <> $5
	`
	res, err := l.db.ExecContext(ctx, query, orderCode, outcome.String(), l.now().UTC(), domain.OutcomeSuccess.String(), domain.OutcomeSuccess.String())
	if err != nil {
		return false, fmt.Errorf("failed to record payment result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// Release deletes the row while it still carries outcome.
func (l *Ledger) Release(ctx context.Context, orderCode string, outcome domain.PaymentOutcome) error {
	query := `
		DELETE FROM payment_results
		WHERE order_code = $1 AND outcome = $2
	`
	if _, err := l.db.ExecContext(ctx, query, orderCode, outcome.String()); err != nil {
		return fmt.Errorf("failed to release payment result: %w", err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, orderCode string) (Record, error) {
	query := `
		SELECT order_code, outcome, processed_at
		FROM payment_results
		WHERE order_code = $1
	`
	var (
		rec     Record
		outcome string
	)
	err := l.db.QueryRowContext(ctx, query, orderCode).Scan(&rec.OrderCode, &outcome, &rec.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query payment result: %w", err)
	}
	rec.Outcome = domain.PaymentOutcome(outcome)
	return rec, nil
}

// List returns the most recent results first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT order_code, outcome, processed_at
		FROM payment_results
		ORDER BY processed_at DESC, order_code
		LIMIT $1
	`
	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment results: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec     Record
			outcome string
		)
		if err := rows.Scan(&rec.OrderCode, &outcome, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment result: %w", err)
		}
		rec.Outcome = domain.PaymentOutcome(outcome)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment results: %w", err)
	}
	return records, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
