package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// ErrCodeUnavailable is returned when a code is unknown, expired or already used.
var ErrCodeUnavailable = errors.New("exchange code unavailable")

// ExchangeRepository stores one-time diagnostic exchange codes. Consume must
// be atomic: of any number of concurrent calls for one code at most one
// succeeds.
type ExchangeRepository interface {
	Save(ctx context.Context, record *domain.ExchangeRecord) error
	Consume(ctx context.Context, code string) (*domain.ExchangeRecord, error)
}

type pgExchangeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresExchangeRepository stores codes in the diagnostic_exchange_codes table.
func NewPostgresExchangeRepository(pool *pgxpool.Pool) ExchangeRepository {
	return &pgExchangeRepository{pool: pool}
}

func (r *pgExchangeRepository) Save(ctx context.Context, record *domain.ExchangeRecord) error {
	const query = `
        INSERT INTO diagnostic_exchange_codes
            (code, customer_id, staff_id, customer_access_token, customer_refresh_token, staff_access_token, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		record.Code,
		record.CustomerID,
		record.StaffID,
		record.CustomerAccessToken,
		record.CustomerRefreshToken,
		record.StaffAccessToken,
		record.ExpiresAt,
	).Scan(&record.CreatedAt)
}

func (r *pgExchangeRepository) Consume(ctx context.Context, code string) (*domain.ExchangeRecord, error) {
	const query = `
        UPDATE diagnostic_exchange_codes SET used_at=NOW()
        WHERE code=$1 AND used_at IS NULL AND expires_at > NOW()
        RETURNING code, customer_id, staff_id, customer_access_token, customer_refresh_token,
                  staff_access_token, created_at, expires_at`

	var record domain.ExchangeRecord
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&record.Code,
		&record.CustomerID,
		&record.StaffID,
		&record.CustomerAccessToken,
		&record.CustomerRefreshToken,
		&record.StaffAccessToken,
		&record.CreatedAt,
		&record.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeUnavailable
		}
		return nil, fmt.Errorf("consume exchange code: %w", err)
	}
	return &record, nil
}
