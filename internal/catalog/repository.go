package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/velocity-backend/internal/repo"
	"github.com/angelmondragon/velocity-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads catalog products from the products table.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// GetProduct loads the current price, stock and status of a product.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var row models.Product
	err := r.base.DB(ctx).
		Select("id", "name", "slug", "price", "stock_quantity", "is_active").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	return fromModel(row), nil
}

// Upsert writes a product row, used by seeding and tests.
func (r *Repository) Upsert(ctx context.Context, p Product) error {
	row := toModel(p)
	return r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "slug", "price", "stock_quantity", "is_active", "updated_at"}),
		}).
		Create(&row).Error
}

func fromModel(row models.Product) *Product {
	return &Product{
		ID:            row.ID,
		Name:          row.Name,
		Slug:          row.Slug,
		Price:         row.Price,
		StockQuantity: row.StockQuantity,
		IsActive:      row.IsActive,
	}
}

func toModel(p Product) models.Product {
	return models.Product{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
	}
}
