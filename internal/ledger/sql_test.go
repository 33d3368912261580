package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	sqliteMigrations   = "./migrations/sqlite"
	postgresMigrations = "./migrations/postgres"
)

func setupTestSQLite(t *testing.T) *SQLLedger {
	t.Helper()

	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.RunMigrations(sqliteMigrations))

	t.Cleanup(func() { l.Close() })
	return l
}

func setupTestPostgres(t *testing.T) *SQLLedger {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	l, err := OpenPostgres(&Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.RunMigrations(postgresMigrations))

	t.Cleanup(func() {
		l.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return l
}

func TestSQLiteLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T) Ledger {
		return setupTestSQLite(t)
	})
}

func TestSQLiteLedger_StalePendingIsReclaimed(t *testing.T) {
	l := setupTestSQLite(t)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := l.Begin(ctx, "tx")
	require.NoError(t, err)

	_, err = l.Begin(ctx, "tx")
	require.ErrorIs(t, err, ErrInProgress)

	now = now.Add(2 * time.Minute)

	_, err = l.Begin(ctx, "tx")
	assert.NoError(t, err)
}

func TestSQLiteLedger_StaleOwnerCannotReleaseTakeover(t *testing.T) {
	l := setupTestSQLite(t)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Begin(ctx, "tx")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	owner, err := l.Begin(ctx, "tx")
	require.NoError(t, err)

	require.NoError(t, l.Abandon(ctx, "tx", stale.Claim))

	got, err := l.Get(ctx, "tx")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, owner.Claim, got.Claim)
}

func TestSQLiteLedger_MigrationsIdempotent(t *testing.T) {
	l := setupTestSQLite(t)
	assert.NoError(t, l.RunMigrations(sqliteMigrations))
}

func TestPostgresLedger(t *testing.T) {
	l := setupTestPostgres(t)

	// one container for the whole suite, truncated per subtest
	runLedgerSuite(t, func(t *testing.T) Ledger {
		_, err := l.db.Exec(`TRUNCATE processed_transactions`)
		require.NoError(t, err)
		return l
	})
}

func TestRebind(t *testing.T) {
	pg := &SQLLedger{dialect: DialectPostgres}
	lite := &SQLLedger{dialect: DialectSQLite}

	q := `SELECT a FROM t WHERE b = ? AND c = ?`
	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}
