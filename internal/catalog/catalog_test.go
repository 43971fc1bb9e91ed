package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  price TEXT NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestRepositoryGetProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupCatalogTestDB(t))

	want := Product{
		ID:            uuid.New(),
		Name:          "Espresso Beans",
		Slug:          "espresso-beans",
		Price:         decimal.RequireFromString("19.99"),
		StockQuantity: 4,
		IsActive:      true,
	}
	require.NoError(t, repo.Upsert(ctx, want))

	got, err := repo.GetProduct(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "espresso-beans", got.Slug)
	assert.True(t, got.Price.Equal(want.Price), "price %s", got.Price)
	assert.Equal(t, 4, got.StockQuantity)
	assert.True(t, got.IsActive)
	assert.True(t, got.InStock())
}

func TestRepositoryGetProduct_ReadsLiveState(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupCatalogTestDB(t))

	p := Product{ID: uuid.New(), Name: "Mug", Slug: "mug", Price: decimal.RequireFromString("8.00"), StockQuantity: 2, IsActive: true}
	require.NoError(t, repo.Upsert(ctx, p))

	p.Price = decimal.RequireFromString("9.50")
	p.StockQuantity = 0
	p.IsActive = false
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.50")))
	assert.False(t, got.InStock())
	assert.False(t, got.IsActive)
}

func TestRepositoryUpsert_PersistsInactiveProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupCatalogTestDB(t))

	p := Product{ID: uuid.New(), Name: "Retired Kettle", Slug: "retired-kettle", Price: decimal.RequireFromString("30.00"), StockQuantity: 0, IsActive: false}
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive, "inactive product must not fall back to the column default")
	assert.Equal(t, 0, got.StockQuantity)

	p.IsActive = true
	p.StockQuantity = 3
	require.NoError(t, repo.Upsert(ctx, p))
	got, err = repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, 3, got.StockQuantity)
}

func TestRepositoryGetProduct_NotFound(t *testing.T) {
	repo := NewRepository(setupCatalogTestDB(t))

	_, err := repo.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReader(t *testing.T) {
	ctx := context.Background()
	p := Product{ID: uuid.New(), Name: "Tea", Price: decimal.RequireFromString("4.25"), StockQuantity: 1, IsActive: true}
	reader := NewMemoryReader(p)
	assert.Equal(t, 1, reader.Len())

	got, err := reader.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	got.StockQuantity = 100

	again, err := reader.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.StockQuantity, "callers must not mutate stored products")

	p.StockQuantity = 0
	reader.Put(p)
	again, err = reader.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, again.InStock())

	reader.Remove(p.ID)
	_, err = reader.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()

	good := filepath.Join(dir, "catalog.json")
	body := fmt.Sprintf(`[{"id":%q,"name":"Tote","slug":"tote","price":"12.50","stock_quantity":3,"is_active":true}]`, id)
	require.NoError(t, os.WriteFile(good, []byte(body), 0o644))

	products, err := LoadSeedFile(good)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, id, products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("12.50")))

	missingID := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingID, []byte(`[{"name":"x","price":"1.00"}]`), 0o644))
	_, err = LoadSeedFile(missingID)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.json")
	require.NoError(t, os.WriteFile(negative, []byte(fmt.Sprintf(`[{"id":%q,"price":"-1.00"}]`, uuid.New())), 0o644))
	_, err = LoadSeedFile(negative)
	assert.Error(t, err)

	_, err = LoadSeedFile(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
