package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// TimestampLayout is the ISO-8601 form stored in the timestamp column
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var errInvalidSchedule = errors.New("schedule is not valid JSON")

// Options selects and locates the database
type Options struct {
	Driver      string
	Path        string // sqlite file
	DSN         string // postgres connection string
	BusyTimeout time.Duration
}

// Repository provides database operations on the loans table
type Repository struct {
	db          *sql.DB
	dialect     dialect
	busyTimeout time.Duration
	now         func() time.Time
}

// NewRepository initializes a new repository over an open handle
func NewRepository(db *sql.DB, driver string, busyTimeout time.Duration) (*Repository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, dialect: d, busyTimeout: busyTimeout, now: time.Now}, nil
}

// Open opens and pings the database described by opts
func Open(ctx context.Context, opts Options) (*Repository, error) {
	var dsn string
	switch opts.Driver {
	case DriverSQLite:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("database path is required")
		}
		// Carried per connection so every pooled connection waits on locks.
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)", opts.Path, opts.BusyTimeout.Milliseconds())
	case DriverPostgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, fmt.Errorf("database connection string is required")
		}
		dsn = opts.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, wrap("open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrap("ping database", err)
	}
	return NewRepository(db, opts.Driver, opts.BusyTimeout)
}

// Driver returns the name of the underlying engine
func (r *Repository) Driver() string {
	return r.dialect.name
}

// InitSchema creates the loans table if it is missing and applies engine tuning
func (r *Repository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.createTable); err != nil {
		return wrap("create loans table", err)
	}
	if r.dialect.name != DriverSQLite {
		return nil
	}
	for _, pragma := range sqlitePragmas(r.busyTimeout.Milliseconds()) {
		if _, err := r.db.ExecContext(ctx, pragma); err != nil {
			return wrap(fmt.Sprintf("set %q", pragma), err)
		}
	}
	return nil
}

// CreateLoan inserts a loan and fills in its ID and Timestamp
func (r *Repository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	var schedule any
	if len(loan.Result.Schedule) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, loan.Result.Schedule); err != nil {
			return wrap("encode schedule", err)
		}
		schedule = buf.String()
	}
	timestamp := r.now().UTC().Format(TimestampLayout)

	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.insertLoan,
		loan.Amount,
		loan.InterestRate,
		loan.Term,
		loan.ExtraPayment,
		loan.Result.MonthlyPayment,
		loan.Result.TotalInterest,
		loan.Result.PayoffMonths,
		timestamp,
		schedule,
	).Scan(&id)
	if err != nil {
		return wrap("create loan", err)
	}

	loan.ID = id
	loan.Timestamp = timestamp
	return nil
}

// ListLoans returns every stored loan ordered by id
func (r *Repository) ListLoans(ctx context.Context) ([]models.Loan, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.selectLoans)
	if err != nil {
		return nil, wrap("fetch loans", err)
	}
	defer rows.Close()

	loans := make([]models.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("fetch loans", err)
	}
	return loans, nil
}

// scanLoan reads one row. Rows from older unvalidated writers may hold NULLs,
// fractional integer columns or non-array schedules; those read as zero values,
// truncated integers and the stored JSON respectively.
func scanLoan(rows *sql.Rows) (models.Loan, error) {
	var (
		id                 int64
		amount, rate       sql.NullFloat64
		extra, monthly     sql.NullFloat64
		interest           sql.NullFloat64
		term, payoffMonths sql.NullFloat64
		timestamp          sql.NullString
		schedule           sql.NullString
	)
	if err := rows.Scan(&id, &amount, &rate, &term, &extra,
		&monthly, &interest, &payoffMonths, &timestamp, &schedule); err != nil {
		return models.Loan{}, wrap("scan loan", err)
	}

	loan := models.Loan{
		ID:           id,
		Amount:       amount.Float64,
		InterestRate: rate.Float64,
		Term:         int(term.Float64),
		ExtraPayment: extra.Float64,
		Result: models.LoanResult{
			MonthlyPayment: monthly.Float64,
			TotalInterest:  interest.Float64,
			PayoffMonths:   int(payoffMonths.Float64),
		},
		Timestamp: timestamp.String,
	}
	if schedule.Valid {
		if !json.Valid([]byte(schedule.String)) {
			return models.Loan{}, &Error{Kind: KindCorrupt, Op: fmt.Sprintf("decode schedule of loan %d", id), Err: errInvalidSchedule}
		}
		loan.Result.Schedule = json.RawMessage(schedule.String)
	}
	return loan, nil
}

// Ping checks that the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return wrap("ping database", r.db.PingContext(ctx))
}

// Checkpoint runs the engine's periodic maintenance statement
func (r *Repository) Checkpoint(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, r.dialect.maintenance)
	return wrap("run maintenance", err)
}

// Close closes the database handle
func (r *Repository) Close() error {
	return r.db.Close()
}
