package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	for _, u := range []*domain.User{
		{Username: "zoe", IsActive: true},
		{Username: "alice", IsActive: true},
		{Username: "bob", IsStaff: true, IsActive: true},
		{Username: "carl", IsActive: false},
	} {
		require.NoError(t, repo.Create(ctx, u))
		assert.NotZero(t, u.ID)
	}

	err := repo.Create(ctx, &domain.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, got.IsStaff)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	customers, err := repo.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "alice", customers[0].Username)
	assert.Equal(t, "zoe", customers[1].Username)
}

func TestMemoryUserRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	u := &domain.User{Username: "alice", IsActive: true}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.IsStaff = true

	again, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, again.IsStaff)

	require.NoError(t, repo.SetActive(u.ID, false))
	again, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
}

func TestMemoryExchangeRepositorySingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExchangeRepository()
	record := &domain.ExchangeRecord{
		Code:       "abc123",
		CustomerID: 5,
		StaffID:    2,
		ExpiresAt:  time.Now().Add(time.Minute),
	}
	require.NoError(t, repo.Save(ctx, record))
	assert.ErrorIs(t, repo.Save(ctx, record), ErrDuplicate)

	got, err := repo.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.CustomerID)
	assert.Equal(t, int64(2), got.StaffID)

	_, err = repo.Consume(ctx, "abc123")
	assert.ErrorIs(t, err, ErrCodeUnavailable)
}

func TestMemoryExchangeRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryExchangeRepository().WithClock(func() time.Time { return now })

	require.NoError(t, repo.Save(ctx, &domain.ExchangeRecord{Code: "old", ExpiresAt: now.Add(time.Minute)}))
	now = now.Add(2 * time.Minute)

	_, err := repo.Consume(ctx, "old")
	assert.ErrorIs(t, err, ErrCodeUnavailable)

	require.NoError(t, repo.Save(ctx, &domain.ExchangeRecord{Code: "stale", ExpiresAt: now.Add(time.Second)}))
	now = now.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, &domain.ExchangeRecord{Code: "fresh", ExpiresAt: now.Add(time.Minute)}))
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryExchangeRepositoryConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExchangeRepository()
	require.NoError(t, repo.Save(ctx, &domain.ExchangeRecord{Code: "race", ExpiresAt: time.Now().Add(time.Minute)}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume(ctx, "race"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
