package cart

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/velocity-backend/internal/catalog"
	"github.com/angelmondragon/velocity-backend/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newProduct(price string, stock int) catalog.Product {
	id := uuid.New()
	return catalog.Product{
		ID:            id,
		Name:          "product-" + id.String()[:8],
		Slug:          "product-" + id.String(),
		Price:         d(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

type testEnv struct {
	svc     Service
	store   Store
	catalog *catalog.MemoryReader
}

func newTestEnv(t *testing.T, store Store, products ...catalog.Product) *testEnv {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.DefaultConfig())
	require.NoError(t, err)

	reader := catalog.NewMemoryReader(products...)
	svc, err := NewService(Deps{
		Store:      store,
		Catalog:    reader,
		Locker:     NewLocalLocker(),
		Calculator: calc,
	})
	require.NoError(t, err)
	return &testEnv{svc: svc, store: store, catalog: reader}
}

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	statements := []string{`
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NULL,
  session_id TEXT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  price_at_time TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK ((user_id IS NULL) <> (session_id IS NULL))
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items (user_id, product_id) WHERE user_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_session_product ON cart_items (session_id, product_id) WHERE session_id IS NOT NULL;`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// storeFactories lets contract tests run against every Store implementation.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"gorm": func(t *testing.T) Store {
			return NewGormStore(setupCartTestDB(t))
		},
	}
}
