package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

type redisExchangeRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisExchangeRepository stores each code under prefix+code with a TTL
// equal to its remaining lifetime. GETDEL makes redemption single-use.
func NewRedisExchangeRepository(client *redis.Client, prefix string) ExchangeRepository {
	return &redisExchangeRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *redisExchangeRepository) Save(ctx context.Context, record *domain.ExchangeRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}
	ttl := record.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("save exchange code: already expired")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("save exchange code: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.prefix+record.Code, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("save exchange code: %w", err)
	}
	if !ok {
		return fmt.Errorf("save exchange code: %w", ErrDuplicate)
	}
	return nil
}

func (r *redisExchangeRepository) Consume(ctx context.Context, code string) (*domain.ExchangeRecord, error) {
	payload, err := r.client.GetDel(ctx, r.prefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCodeUnavailable
		}
		return nil, fmt.Errorf("consume exchange code: %w", err)
	}

	var record domain.ExchangeRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("consume exchange code: %w", err)
	}
	if record.Expired(r.now()) {
		return nil, ErrCodeUnavailable
	}
	return &record, nil
}
