package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/velocity-backend/internal/repo"
	"github.com/angelmondragon/velocity-backend/pkg/db"
	"github.com/angelmondragon/velocity-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists carts in the cart_items table.
type GormStore struct {
	base repo.Base
	inTx bool
	now  func() time.Time
}

// NewGormStore constructs a store bound to the provided DB.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{base: repo.NewBase(conn), now: time.Now}
}

func (s *GormStore) withTx(tx *gorm.DB) *GormStore {
	return &GormStore{base: s.base.Bound(tx), inTx: true, now: s.now}
}

func (s *GormStore) isPostgres() bool {
	return s.base.Dialect() == "postgres"
}

// ownerScope restricts a query to the owner's rows.
func ownerScope(owner Owner) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if owner.IsUser() {
			return q.Where("user_id = ?", owner.UserID)
		}
		return q.Where("session_id = ?", owner.SessionID)
	}
}

func (s *GormStore) Get(ctx context.Context, owner Owner) ([]LineItem, error) {
	q := s.base.DB(ctx).Model(&models.CartItem{}).Scopes(ownerScope(owner))
	if s.inTx && s.isPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.CartItem
	if err := q.Order("created_at DESC").Order("id").Find(&rows).Error; err != nil {
		return nil, storageErr(err, "load cart lines")
	}

	lines := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineFromModel(row))
	}
	return lines, nil
}

func (s *GormStore) Upsert(ctx context.Context, owner Owner, productID uuid.UUID, quantity int, priceAtTime decimal.Decimal) (LineItem, error) {
	if quantity <= 0 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	now := s.now().UTC()
	row := models.CartItem{
		ID:          uuid.New(),
		ProductID:   productID,
		Quantity:    quantity,
		PriceAtTime: priceAtTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	conflict := clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "price_at_time", "updated_at"}),
	}
	if owner.IsUser() {
		userID := owner.UserID
		row.UserID = &userID
		conflict.Columns = []clause.Column{{Name: "user_id"}, {Name: "product_id"}}
		conflict.TargetWhere = clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "user_id IS NOT NULL"}}}
	} else {
		sessionID := owner.SessionID
		row.SessionID = &sessionID
		conflict.Columns = []clause.Column{{Name: "session_id"}, {Name: "product_id"}}
		conflict.TargetWhere = clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "session_id IS NOT NULL"}}}
	}

	if err := s.base.DB(ctx).Clauses(conflict).Create(&row).Error; err != nil {
		return LineItem{}, storageErr(err, "upsert cart line")
	}

	// the insert may have resolved onto an existing row; read back its identity
	var stored models.CartItem
	err := s.base.DB(ctx).
		Scopes(ownerScope(owner)).
		Where("product_id = ?", productID).
		First(&stored).Error
	if err != nil {
		return LineItem{}, storageErr(err, "reload cart line")
	}
	return lineFromModel(stored), nil
}

func (s *GormStore) Delete(ctx context.Context, owner Owner, productID uuid.UUID) (*LineItem, error) {
	var removed *LineItem
	err := s.InTx(ctx, func(tx Store) error {
		store := tx.(*GormStore)
		q := store.base.DB(ctx).Scopes(ownerScope(owner)).Where("product_id = ?", productID)
		if store.isPostgres() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var rows []models.CartItem
		if err := q.Limit(1).Find(&rows).Error; err != nil {
			return storageErr(err, "load cart line")
		}
		if len(rows) == 0 {
			return nil
		}
		if err := store.base.DB(ctx).Delete(&models.CartItem{}, "id = ?", rows[0].ID).Error; err != nil {
			return storageErr(err, "delete cart line")
		}
		line := lineFromModel(rows[0])
		removed = &line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *GormStore) DeleteAll(ctx context.Context, owner Owner) error {
	err := s.base.DB(ctx).Scopes(ownerScope(owner)).Delete(&models.CartItem{}).Error
	if err != nil {
		return storageErr(err, "clear cart")
	}
	return nil
}

func (s *GormStore) ReassignOwner(ctx context.Context, fromSessionID string, toUserID uuid.UUID) (int, error) {
	res := s.base.DB(ctx).
		Model(&models.CartItem{}).
		Where("session_id = ?", fromSessionID).
		Updates(map[string]any{
			"user_id":    toUserID,
			"session_id": gorm.Expr("NULL"),
			"updated_at": s.now().UTC(),
		})
	if res.Error != nil {
		return 0, storageErr(res.Error, "reassign cart lines")
	}
	return int(res.RowsAffected), nil
}

// LockOwner takes a transaction-scoped advisory lock on Postgres so carts stay
// serialized across service instances. Other dialects rely on the caller's lock.
func (s *GormStore) LockOwner(ctx context.Context, owner Owner) error {
	if !s.inTx || !s.isPostgres() {
		return nil
	}
	if err := s.base.DB(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", owner.Key()).Error; err != nil {
		return storageErr(err, "lock cart owner")
	}
	return nil
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	err := db.RunTx(ctx, s.base.DB(nil), func(tx *gorm.DB) error {
		return fn(s.withTx(tx))
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return storageErr(err, "cart transaction")
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.base.DB(nil).DB()
	if err != nil {
		return storageErr(err, "resolve sql handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageErr(err, "ping cart store")
	}
	return nil
}

func storageErr(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("%s conflicted with an existing line", action))
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, fmt.Sprintf("%s failed", action))
}

func lineFromModel(row models.CartItem) LineItem {
	return LineItem{
		ID:          row.ID,
		ProductID:   row.ProductID,
		Quantity:    row.Quantity,
		PriceAtTime: row.PriceAtTime,
		AddedAt:     row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
