//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/redis/go-redis/v9"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/storage/database"
	redisstore "github.com/trezcool/tributes/storage/redis"
)

// PrepareDB starts a throwaway postgres, creates & migrates the app database the way the admin
// CLI does, and returns a connection to it.
func PrepareDB(t *testing.T) (*sql.DB, *core.Config) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get postgres port: %v", err)
	}

	conf := NewConfig()
	conf.Database.Host = host
	conf.Database.Port = port.Port()
	conf.Database.Name = "tributes_test"
	conf.Database.User = "tributes"
	conf.Database.Password = "tributes"
	conf.Database.AdminUser = "postgres"
	conf.Database.AdminPassword = "postgres"
	conf.Database.DisableTLS = true

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("CreateIfNotExist(): %v", err)
	}
	db, err := database.Connect(conf)
	if err != nil {
		t.Fatalf("Connect(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate(): %v", err)
	}
	return db, conf
}

// ResetDB empties every app table.
func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := database.Truncate(db); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

// PrepareRedis starts a throwaway redis and returns a client connected to it.
func PrepareRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	client, err := redisstore.Connect(ctx, url)
	if err != nil {
		t.Fatalf("redisstore.Connect(): %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
