// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/infrastructure/config"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	// registers the "pgx" database/sql driver used by the readiness probe
	_ "github.com/jackc/pgx/v4/stdlib"
)

// PostgresConfig holds test database configuration
type PostgresConfig struct {
	Image    string
	Database string
	Username string
	Password string
	Port     nat.Port
}

// DefaultPostgresConfig returns the default test database configuration
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Image:    "postgres:15-alpine",
		Database: "planner_test",
		Username: "test_user",
		Password: "test_password",
		Port:     "5432/tcp",
	}
}

// StartPostgres runs a throwaway PostgreSQL container and returns a planner
// config pointing at it. The container is terminated when the test ends.
func StartPostgres(t *testing.T) *config.Config {
	t.Helper()
	return StartPostgresWithConfig(t, DefaultPostgresConfig())
}

// StartPostgresWithConfig is StartPostgres with a custom container setup
func StartPostgresWithConfig(t *testing.T, pg PostgresConfig) *config.Config {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pg.Image,
			ExposedPorts: []string{string(pg.Port)},
			Env: map[string]string{
				"POSTGRES_DB":       pg.Database,
				"POSTGRES_USER":     pg.Username,
				"POSTGRES_PASSWORD": pg.Password,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForSQL(pg.Port, "pgx", func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
						pg.Username, pg.Password, host, port.Port(), pg.Database)
				}),
			),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mapped, err := container.MappedPort(ctx, pg.Port)
	require.NoError(t, err)

	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &config.Config{
		App: config.AppConfig{Name: "planner", Environment: "test"},
		Database: config.DatabaseConfig{
			Driver:          "postgres",
			Host:            host,
			Port:            port,
			Database:        pg.Database,
			Username:        pg.Username,
			Password:        pg.Password,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
			LogLevel:        "silent",
		},
	}
}

// StartRedis runs a throwaway Redis container and returns the client
// settings for it. The container is terminated when the test ends.
func StartRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	ctx := context.Background()
	port := nat.Port("6379/tcp")

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{string(port)},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	p, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return config.RedisConfig{
		Host:         host,
		Port:         p,
		MaxRetries:   1,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
