package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/infrastructure/postgres"
)

const (
	testUser     = "postgres"
	testPassword = "postgres"
	testDB       = "unpackeat"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
				"POSTGRES_DB":       testDB,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, postgres.Options{
		DSN:      fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", testUser, testPassword, host, port.Port(), testDB),
		MaxConns: 5,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))

	return pool
}

func TestProductStore(t *testing.T) {
	pool := setupTestPool(t)
	store := postgres.NewProductStore(pool)
	ctx := context.Background()

	t.Run("get missing barcode", func(t *testing.T) {
		_, err := store.Get(ctx, "0000000000000")
		require.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("upsert inserts then replaces", func(t *testing.T) {
		barcode := "5449000000996"

		err := store.Upsert(ctx, &domain.ProductRecord{Barcode: barcode, Payload: []byte(`{"name":"Coca-Cola"}`)})
		require.NoError(t, err)

		got, err := store.Get(ctx, barcode)
		require.NoError(t, err)
		require.Equal(t, barcode, got.Barcode)
		require.JSONEq(t, `{"name":"Coca-Cola"}`, string(got.Payload))
		require.False(t, got.UpdatedAt.IsZero())

		err = store.Upsert(ctx, &domain.ProductRecord{Barcode: barcode, Payload: []byte(`{"name":"Coca-Cola Zero"}`)})
		require.NoError(t, err)

		got, err = store.Get(ctx, barcode)
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"Coca-Cola Zero"}`, string(got.Payload))

		var count int
		require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM products WHERE barcode = $1", barcode).Scan(&count))
		require.Equal(t, 1, count)
	})

	t.Run("upsert rejects record without barcode", func(t *testing.T) {
		err := store.Upsert(ctx, &domain.ProductRecord{Payload: []byte(`{}`)})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("delete", func(t *testing.T) {
		barcode := "3017620422003"
		require.NoError(t, store.Upsert(ctx, &domain.ProductRecord{Barcode: barcode, Payload: []byte(`{}`)}))
		require.NoError(t, store.Delete(ctx, barcode))

		_, err := store.Get(ctx, barcode)
		require.ErrorIs(t, err, domain.ErrProductNotFound)

		require.NoError(t, store.Delete(ctx, barcode))
	})
}
