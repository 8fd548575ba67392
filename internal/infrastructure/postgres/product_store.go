package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/unpackeat/backend/internal/domain"
)

const productsTable = "products"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar) //nolint: gochecknoglobals

// Querier is the subset of *pgxpool.Pool the store needs
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProductStore is the PostgreSQL-backed internal product store
type ProductStore struct {
	db Querier
}

// NewProductStore creates a product store on top of an existing pool
func NewProductStore(db Querier) *ProductStore {
	return &ProductStore{db: db}
}

// Get returns the record stored for barcode, or domain.ErrProductNotFound
func (s *ProductStore) Get(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	query, args, err := psql.
		Select("barcode", "payload", "updated_at").
		From(productsTable).
		Where(sq.Eq{"barcode": barcode}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product select: %w", err)
	}

	var (
		record    domain.ProductRecord
		payload   []byte
		updatedAt time.Time
	)
	err = s.db.QueryRow(ctx, query, args...).Scan(&record.Barcode, &payload, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select product %s: %w", barcode, err)
	}

	record.Payload = payload
	record.UpdatedAt = updatedAt

	return &record, nil
}

// Upsert inserts the record or replaces the payload of an existing barcode
func (s *ProductStore) Upsert(ctx context.Context, record *domain.ProductRecord) error {
	if record == nil || record.Barcode == "" {
		return domain.ErrInvalidInput
	}

	query, args, err := psql.
		Insert(productsTable).
		Columns("barcode", "payload").
		Values(record.Barcode, []byte(record.Payload)).
		Suffix("ON CONFLICT (barcode) DO UPDATE SET payload = EXCLUDED.payload, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return fmt.Errorf("build product upsert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert product %s: %w", record.Barcode, err)
	}

	return nil
}

// Delete removes the record for barcode. Deleting a missing barcode is not an error.
func (s *ProductStore) Delete(ctx context.Context, barcode string) error {
	query, args, err := psql.Delete(productsTable).Where(sq.Eq{"barcode": barcode}).ToSql()
	if err != nil {
		return fmt.Errorf("build product delete: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete product %s: %w", barcode, err)
	}

	return nil
}
