package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/testdb"
)

func TestDo_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	db := testdb.New(t)
	m := New(db, 3)
	userID := uuid.New()

	err := m.Do(context.Background(), "create_cart", func(tx *gorm.DB) error {
		return tx.Create(&models.Cart{UserID: userID, TotalAmount: decimal.Zero}).Error
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", userID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestDo_NoPartialWrites(t *testing.T) {
	t.Parallel()

	db := testdb.New(t)
	m := New(db, 3)
	userID := uuid.New()

	var compensated []string
	err := m.Do(context.Background(), "two_writes", func(tx *gorm.DB) error {
		if err := tx.Create(&models.Cart{UserID: userID, TotalAmount: decimal.Zero}).Error; err != nil {
			return err
		}
		return apperr.InsufficientStock("product x")
	},
		WithCompensation("first", func(context.Context) error { compensated = append(compensated, "first"); return nil }),
		WithCompensation("second", func(context.Context) error { compensated = append(compensated, "second"); return errors.New("ignored") }),
	)

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, []string{"second", "first"}, compensated)

	var n int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", userID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDo_UntypedBecomesInternal(t *testing.T) {
	t.Parallel()

	m := New(testdb.New(t), 3)
	cause := errors.New("disk on fire")

	err := m.Do(context.Background(), "boom", func(*gorm.DB) error { return cause })
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error", apperr.Message(err))
}

func TestDo_RetriesSerializationFailures(t *testing.T) {
	t.Parallel()

	m := New(testdb.New(t), 3)

	calls := 0
	err := m.Do(context.Background(), "contended", func(*gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = m.Do(context.Background(), "always_contended", func(*gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryDomainErrors(t *testing.T) {
	t.Parallel()

	m := New(testdb.New(t), 5)
	calls := 0
	err := m.Do(context.Background(), "not_found", func(*gorm.DB) error {
		calls++
		return apperr.NotFound("cart line")
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, Retryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, Retryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, Retryable(errors.New("x")))
}
