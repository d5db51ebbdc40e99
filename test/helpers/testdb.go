// test/helpers/testdb.go
package helpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"github.com/satyam-tomar/vending-machine-api/internal/adapters/db"
)

// TestDatabase bundles a disposable PostgreSQL container with a ready
// connection pool. The container and pool are torn down via t.Cleanup.
type TestDatabase struct {
	Database *db.Database
	Config   *db.Config
}

// SetupTestDB starts a PostgreSQL container, runs the migrations, and returns
// a connected database. Skips the test when Docker is not available.
func SetupTestDB(t *testing.T) *TestDatabase {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=vending_test",
			"POSTGRES_PASSWORD=vending_test",
			"POSTGRES_DB=vending_machine_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "start postgres container")

	_ = resource.Expire(300)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	cfg := &db.Config{
		Host:              "localhost",
		Port:              resource.GetPort("5432/tcp"),
		User:              "vending_test",
		Password:          "vending_test",
		Database:          "vending_machine_test",
		SSLMode:           "disable",
		MaxConnections:    10,
		MinConnections:    1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   time.Minute * 30,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    time.Second * 5,
	}

	logger := TestLogger()

	var database *db.Database
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var connErr error
		database, connErr = db.NewDatabase(ctx, cfg, logger)
		return connErr
	})
	require.NoError(t, err, "connect to test postgres")

	t.Cleanup(func() {
		database.Close()
	})

	databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	migrationCfg := &db.MigrationConfig{
		DatabaseURL: databaseURL,
		SourcePath:  migrationsPath(),
	}
	require.NoError(t, db.RunMigrationsWithRetry(context.Background(), migrationCfg, logger, 3),
		"run migrations")

	return &TestDatabase{
		Database: database,
		Config:   cfg,
	}
}

// migrationsPath resolves the migrations directory relative to this source
// file, so integration tests work regardless of the package they run from.
func migrationsPath() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}
