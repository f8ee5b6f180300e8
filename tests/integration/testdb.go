// Package integration runs the ledger stack against a real PostgreSQL
// database using testcontainers. The schema comes from the SQL migrations in
// migrations/, the same files deployments apply.
package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sharedPG holds the one PostgreSQL container used by the whole package.
var sharedPG struct {
	sync.Mutex
	container testcontainers.Container
	dsn       string
}

// TestDB is a migrated PostgreSQL database for one test.
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewSharedTestDB returns a connection to a PostgreSQL container shared by
// the whole package. The container starts and migrates once; tests isolate
// themselves by truncating tables or by using distinct tenant IDs.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedPG.Lock()
	defer sharedPG.Unlock()

	if sharedPG.container == nil {
		startSharedContainer(t)
	}

	db, sqlDB := openGorm(t, sharedPG.dsn)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: sharedPG.container,
		DSN:       sharedPG.dsn,
		t:         t,
	}
}

// startSharedContainer boots postgres, waits for readiness, and applies the
// schema migrations. Caller holds sharedPG.Mutex.
func startSharedContainer(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("finledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "read container connection string")

	_, sqlDB := openGorm(t, dsn)
	migrateUp(t, sqlDB)
	_ = sqlDB.Close()

	sharedPG.container = container
	sharedPG.dsn = dsn
}

// CleanupSharedContainer terminates the shared container. Called from
// TestMain after the package's tests finish.
func CleanupSharedContainer() {
	sharedPG.Lock()
	defer sharedPG.Unlock()

	if sharedPG.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedPG.container.Terminate(ctx)
	sharedPG.container = nil
	sharedPG.dsn = ""
}

// CleanTables truncates every table except the migration bookkeeping.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "list tables")

	for _, table := range tables {
		require.NoError(tdb.t,
			tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error,
			"truncate %s", table)
	}
}

// openGorm opens a GORM connection suitable for tests. TranslateError is
// required: the event store detects append races through
// gorm.ErrDuplicatedKey.
func openGorm(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	logMode := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logMode = logger.Info
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	require.NoError(t, err, "connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "get underlying sql.DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// migrateUp applies the SQL migrations from migrations/.
func migrateUp(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	path := locateMigrations()
	require.NotEmpty(t, path, "migrations directory not found")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	require.NoError(t, err, "create migrator")

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "apply migrations")
	}
}

// locateMigrations walks up from this file to the repository root.
func locateMigrations() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	for dir := filepath.Dir(filename); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}
