package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// MemoryExchangeRepository keeps codes in process memory. Used records are
// deleted on consumption; expired ones are pruned on each Save.
type MemoryExchangeRepository struct {
	mu      sync.Mutex
	records map[string]domain.ExchangeRecord
	now     func() time.Time
}

// NewMemoryExchangeRepository returns an empty repository.
func NewMemoryExchangeRepository() *MemoryExchangeRepository {
	return &MemoryExchangeRepository{
		records: make(map[string]domain.ExchangeRecord),
		now:     time.Now,
	}
}

// WithClock overrides the time source.
func (r *MemoryExchangeRepository) WithClock(now func() time.Time) *MemoryExchangeRepository {
	r.now = now
	return r
}

func (r *MemoryExchangeRepository) Save(_ context.Context, record *domain.ExchangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for code, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, code)
		}
	}
	if _, exists := r.records[record.Code]; exists {
		return fmt.Errorf("save exchange code: %w", ErrDuplicate)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now.UTC()
	}
	r.records[record.Code] = *record
	return nil
}

func (r *MemoryExchangeRepository) Consume(_ context.Context, code string) (*domain.ExchangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[code]
	if !ok {
		return nil, ErrCodeUnavailable
	}
	delete(r.records, code)
	if record.Expired(r.now()) {
		return nil, ErrCodeUnavailable
	}
	return &record, nil
}

// Len returns the number of stored codes.
func (r *MemoryExchangeRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
