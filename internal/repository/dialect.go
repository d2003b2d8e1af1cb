package repository

import "fmt"

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect carries the per-engine SQL for the loans table
type dialect struct {
	name        string
	createTable string
	insertLoan  string
	selectLoans string
	maintenance string
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	createTable: `
		CREATE TABLE IF NOT EXISTS loans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			amount REAL,
			interestRate REAL,
			term INTEGER,
			extraPayment REAL,
			monthlyPayment REAL,
			totalInterest REAL,
			payoffMonths INTEGER,
			timestamp TEXT,
			schedule TEXT
		)`,
	insertLoan: `
		INSERT INTO loans (amount, interestRate, term, extraPayment, monthlyPayment, totalInterest, payoffMonths, timestamp, schedule)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
	selectLoans: `
		SELECT id, amount, interestRate, term, extraPayment, monthlyPayment, totalInterest, payoffMonths, timestamp, schedule
		FROM loans
		ORDER BY id`,
	maintenance: `PRAGMA wal_checkpoint(TRUNCATE)`,
}

var postgresDialect = dialect{
	name: DriverPostgres,
	createTable: `
		CREATE TABLE IF NOT EXISTS loans (
			id BIGSERIAL PRIMARY KEY,
			amount DOUBLE PRECISION,
			"interestRate" DOUBLE PRECISION,
			term INTEGER,
			"extraPayment" DOUBLE PRECISION,
			"monthlyPayment" DOUBLE PRECISION,
			"totalInterest" DOUBLE PRECISION,
			"payoffMonths" INTEGER,
			timestamp TEXT,
			schedule TEXT
		)`,
	insertLoan: `
		INSERT INTO loans (amount, "interestRate", term, "extraPayment", "monthlyPayment", "totalInterest", "payoffMonths", timestamp, schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
	selectLoans: `
		SELECT id, amount, "interestRate", term, "extraPayment", "monthlyPayment", "totalInterest", "payoffMonths", timestamp, schedule
		FROM loans
		ORDER BY id`,
	maintenance: `ANALYZE loans`,
}

// sqlitePragmas returns the tuning statements applied by InitSchema
func sqlitePragmas(busyTimeoutMS int64) []string {
	return []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA journal_mode = WAL",
	}
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
