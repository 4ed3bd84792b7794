// Package testdb opens a migrated in-memory database for package tests.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := db.OpenSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// Product inserts an active product owned by seller.
func Product(t testing.TB, gdb *gorm.DB, seller uuid.UUID, price int64, stock int) *models.Product {
	t.Helper()

	p := &models.Product{
		SellerID:    seller,
		Name:        "product-" + uuid.NewString()[:8],
		Description: "test product",
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		Active:      true,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}
