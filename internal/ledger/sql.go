package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const migrationsTable = "relay_schema_migrations"

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

// SQLLedger keeps records in the processed_transactions table of a postgres
// or sqlite database.
type SQLLedger struct {
	db         *sql.DB
	dialect    Dialect
	pendingTTL time.Duration
	now        func() time.Time
}

func OpenPostgres(cred *Credentials, pendingTTL time.Duration) (*SQLLedger, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return newSQLLedger(db, DialectPostgres, pendingTTL), nil
}

func OpenSQLite(path string, pendingTTL time.Duration) (*SQLLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQLLedger(db, DialectSQLite, pendingTTL), nil
}

func newSQLLedger(db *sql.DB, dialect Dialect, pendingTTL time.Duration) *SQLLedger {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &SQLLedger{db: db, dialect: dialect, pendingTTL: pendingTTL, now: time.Now}
}

// RunMigrations applies the migrations found in dir (one subdirectory per
// dialect is expected to be passed in).
func (l *SQLLedger) RunMigrations(dir string) error {
	var (
		driver database.Driver
		err    error
	)
	switch l.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(l.db, &postgres.Config{MigrationsTable: migrationsTable})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(l.db, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		err = fmt.Errorf("unknown dialect %q", l.dialect)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), string(l.dialect), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (l *SQLLedger) Get(ctx context.Context, transactionID string) (*Record, error) {
	query := l.rebind(`SELECT transaction_id, status, order_id, claim, updated_at
		FROM processed_transactions WHERE transaction_id = ?`)

	var (
		rec       Record
		status    string
		orderID   sql.NullString
		claim     sql.NullString
		updatedAt int64
	)
	err := l.db.QueryRowContext(ctx, query, transactionID).Scan(&rec.TransactionID, &status, &orderID, &claim, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}

	rec.Status = Status(status)
	rec.OrderID = orderID.String
	rec.Claim = claim.String
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return &rec, nil
}

func (l *SQLLedger) Begin(ctx context.Context, transactionID string) (*Record, error) {
	now := l.now()
	cutoff := now.Add(-l.pendingTTL).UnixMilli()

	claim := newClaim()

	// a stale pending row is taken over under the new claim; live or
	// completed rows are not
	query := l.rebind(`INSERT INTO processed_transactions (transaction_id, status, order_id, claim, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET claim = excluded.claim, updated_at = excluded.updated_at
		WHERE processed_transactions.status = ? AND processed_transactions.updated_at < ?`)

	res, err := l.db.ExecContext(ctx, query,
		transactionID, string(StatusPending), claim, now.UnixMilli(), now.UnixMilli(),
		string(StatusPending), cutoff)
	if err != nil {
		return nil, fmt.Errorf("claim transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim transaction: %w", err)
	}
	if n == 1 {
		return &Record{TransactionID: transactionID, Status: StatusPending, Claim: claim, UpdatedAt: time.UnixMilli(now.UnixMilli())}, nil
	}

	rec, err := l.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if rec.IsCompleted() {
		return rec, ErrAlreadyCompleted
	}
	return rec, ErrInProgress
}

func (l *SQLLedger) Complete(ctx context.Context, transactionID, orderID string) error {
	now := l.now().UnixMilli()
	query := l.rebind(`INSERT INTO processed_transactions (transaction_id, status, order_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE
		SET status = excluded.status, order_id = excluded.order_id, updated_at = excluded.updated_at`)

	if _, err := l.db.ExecContext(ctx, query, transactionID, string(StatusCompleted), orderID, now, now); err != nil {
		return fmt.Errorf("complete transaction: %w", err)
	}
	return nil
}

func (l *SQLLedger) Abandon(ctx context.Context, transactionID, claim string) error {
	query := l.rebind(`DELETE FROM processed_transactions WHERE transaction_id = ? AND status = ? AND claim = ?`)
	if _, err := l.db.ExecContext(ctx, query, transactionID, string(StatusPending), claim); err != nil {
		return fmt.Errorf("abandon transaction: %w", err)
	}
	return nil
}

func (l *SQLLedger) Close() error {
	return l.db.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (l *SQLLedger) rebind(query string) string {
	if l.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
