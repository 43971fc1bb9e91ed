package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/velocity-backend/internal/catalog"
	"github.com/angelmondragon/velocity-backend/internal/pricing"
	"github.com/angelmondragon/velocity-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/angelmondragon/velocity-backend/pkg/logger"
	"github.com/angelmondragon/velocity-backend/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxLineQuantity = 99
	catalogFanout          = 8
)

// Service exposes the cart operations consumed by the HTTP layer.
type Service interface {
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (LineItem, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*LineItem, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (LineItem, error)
	Clear(ctx context.Context, owner Owner) error
	GetItemCount(ctx context.Context, owner Owner) (int, error)
	GetSummary(ctx context.Context, owner Owner) (*Summary, error)
	ValidateItems(ctx context.Context, owner Owner) (*Validation, error)
	MergeInto(ctx context.Context, fromSessionID string, toUserID uuid.UUID) (*MergeResult, error)
	Ping(ctx context.Context) error
}

// Deps wires the collaborators of the cart service.
type Deps struct {
	Store           Store
	Catalog         catalog.Reader
	Locker          Locker
	Calculator      *pricing.Calculator
	MaxLineQuantity int
	Logger          *logger.Logger
	Metrics         *metrics.CartMetrics
}

type service struct {
	store   Store
	catalog catalog.Reader
	locker  Locker
	calc    *pricing.Calculator
	maxQty  int
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// NewService builds a cart service backed by the provided stack.
func NewService(deps Deps) (Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if deps.Calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.MaxLineQuantity <= 0 {
		deps.MaxLineQuantity = DefaultMaxLineQuantity
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &service{
		store:   deps.Store,
		catalog: deps.Catalog,
		locker:  deps.Locker,
		calc:    deps.Calculator,
		maxQty:  deps.MaxLineQuantity,
		logg:    deps.Logger,
		metrics: deps.Metrics,
	}, nil
}

// AddItem adds quantity units of a product, creating the cart and line as
// needed. An existing line keeps its original price.
func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (line LineItem, err error) {
	defer s.observe(ctx, "add_item", owner, productID, time.Now(), &err)

	if err := owner.Validate(); err != nil {
		return LineItem{}, err
	}
	if quantity < 1 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if err := s.checkLineMax(quantity); err != nil {
		return LineItem{}, err
	}

	// the catalog is read before the cart transaction so a single-connection
	// pool is never asked for a second connection mid-transaction
	product, err := s.loadPurchasable(ctx, productID)
	if err != nil {
		return LineItem{}, err
	}
	if err := stockCheck(product, quantity); err != nil {
		return LineItem{}, err
	}

	err = s.withOwnerTx(ctx, func(tx Store) error {
		lines, err := tx.Get(ctx, owner)
		if err != nil {
			return err
		}

		existing, found := findLine(lines, productID)
		if !found {
			line, err = tx.Upsert(ctx, owner, productID, quantity, product.Price)
			return err
		}

		total := existing.Quantity + quantity
		if err := s.checkLineMax(total); err != nil {
			return err
		}
		if err := stockCheck(product, total); err != nil {
			return err
		}
		line, err = tx.Upsert(ctx, owner, productID, total, existing.PriceAtTime)
		return err
	}, owner)
	if err != nil {
		return LineItem{}, err
	}
	return line, nil
}

// UpdateItemQuantity sets the absolute quantity of an existing line. A
// quantity of zero or less removes the line and returns nil.
func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (updated *LineItem, err error) {
	if quantity <= 0 {
		if _, err := s.RemoveItem(ctx, owner, productID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	defer s.observe(ctx, "update_item", owner, productID, time.Now(), &err)

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkLineMax(quantity); err != nil {
		return nil, err
	}

	product, err := s.loadPurchasable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := stockCheck(product, quantity); err != nil {
		return nil, err
	}

	err = s.withOwnerTx(ctx, func(tx Store) error {
		lines, err := tx.Get(ctx, owner)
		if err != nil {
			return err
		}
		existing, found := findLine(lines, productID)
		if !found {
			return itemNotFound(productID)
		}

		line, err := tx.Upsert(ctx, owner, productID, quantity, existing.PriceAtTime)
		if err != nil {
			return err
		}
		updated = &line
		return nil
	}, owner)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem deletes a line and returns it. A second call for the same
// product fails with ITEM_NOT_FOUND.
func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (removed LineItem, err error) {
	defer s.observe(ctx, "remove_item", owner, productID, time.Now(), &err)

	if err := owner.Validate(); err != nil {
		return LineItem{}, err
	}

	err = s.withOwnerTx(ctx, func(tx Store) error {
		line, err := tx.Delete(ctx, owner, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return itemNotFound(productID)
		}
		removed = *line
		return nil
	}, owner)
	if err != nil {
		return LineItem{}, err
	}
	return removed, nil
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *service) Clear(ctx context.Context, owner Owner) (err error) {
	defer s.observe(ctx, "clear", owner, uuid.Nil, time.Now(), &err)

	if err := owner.Validate(); err != nil {
		return err
	}
	return s.withOwnerTx(ctx, func(tx Store) error {
		return tx.DeleteAll(ctx, owner)
	}, owner)
}

// GetItemCount returns the sum of quantities across all lines.
func (s *service) GetItemCount(ctx context.Context, owner Owner) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}
	lines, err := s.store.Get(ctx, owner)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count, nil
}

// GetSummary joins the cart with live catalog data and prices it at the
// locked line prices.
func (s *service) GetSummary(ctx context.Context, owner Owner) (*Summary, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	lines, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.enrich(ctx, lines)
	if err != nil {
		return nil, err
	}
	return s.summarize(owner, items), nil
}

// ValidateItems checks every line against the catalog without mutating the
// cart. Price drift is a warning; missing, inactive or short stock are errors.
func (s *service) ValidateItems(ctx context.Context, owner Owner) (*Validation, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	lines, err := s.store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.enrich(ctx, lines)
	if err != nil {
		return nil, err
	}
	return validate(items), nil
}

// MergeInto folds a session cart into a user cart. Colliding lines sum their
// quantities up to the line maximum and keep the user's locked price; other
// lines move over unchanged. The session cart is left empty and the merged
// cart is re-validated, with problems reported as warnings.
func (s *service) MergeInto(ctx context.Context, fromSessionID string, toUserID uuid.UUID) (result *MergeResult, err error) {
	session := ForSession(fromSessionID)
	user := ForUser(toUserID)
	defer s.observe(ctx, "merge", user, uuid.Nil, time.Now(), &err)

	if session.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeOwnerRequired, "session id is required to merge a cart")
	}
	if toUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeOwnerRequired, "authenticated user is required to merge a cart")
	}

	result = &MergeResult{}
	err = s.withOwnerTx(ctx, func(tx Store) error {
		sessionLines, err := tx.Get(ctx, session)
		if err != nil {
			return err
		}
		if len(sessionLines) == 0 {
			return nil
		}
		userLines, err := tx.Get(ctx, user)
		if err != nil {
			return err
		}

		for _, line := range sessionLines {
			existing, found := findLine(userLines, line.ProductID)
			if !found {
				continue
			}
			total := existing.Quantity + line.Quantity
			if total > s.maxQty {
				result.Warnings = append(result.Warnings, Issue{
					ProductID: line.ProductID,
					Type:      enums.CartIssueTypeClampedToMax,
					Message:   fmt.Sprintf("quantity reduced to the maximum of %d per item", s.maxQty),
					Requested: total,
					Available: s.maxQty,
				})
				total = s.maxQty
			}
			if _, err := tx.Upsert(ctx, user, line.ProductID, total, existing.PriceAtTime); err != nil {
				return err
			}
			if _, err := tx.Delete(ctx, session, line.ProductID); err != nil {
				return err
			}
			result.Combined++
		}

		moved, err := tx.ReassignOwner(ctx, session.SessionID, toUserID)
		if err != nil {
			return err
		}
		result.Moved = moved
		return tx.DeleteAll(ctx, session)
	}, session, user)
	if err != nil {
		return nil, err
	}

	summary, err := s.GetSummary(ctx, user)
	if err != nil {
		return nil, err
	}
	validation := validate(summary.Items)
	result.Summary = summary
	result.Validation = validation
	result.Warnings = append(result.Warnings, validation.Errors...)
	result.Warnings = append(result.Warnings, validation.Warnings...)

	s.metrics.AddMergedLines(result.Moved + result.Combined)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"session_id": session.SessionID,
		"user_id":    toUserID.String(),
		"moved":      result.Moved,
		"combined":   result.Combined,
		"warnings":   len(result.Warnings),
	}), "session cart merged")

	return result, nil
}

// Ping reports whether the cart store is reachable.
func (s *service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *service) withOwnerTx(ctx context.Context, fn func(tx Store) error, owners ...Owner) error {
	keys := make([]string, 0, len(owners))
	for _, owner := range owners {
		keys = append(keys, owner.Key())
	}
	unlock, err := lockAll(ctx, s.locker, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.InTx(ctx, func(tx Store) error {
		for _, owner := range sortedOwners(owners) {
			if err := tx.LockOwner(ctx, owner); err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog lookup failed")
	}
	return product, nil
}

// loadPurchasable resolves a product that can currently be put in a cart.
func (s *service) loadPurchasable(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeProductInactive, "product is no longer available").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return product, nil
}

func (s *service) checkLineMax(quantity int) error {
	if quantity > s.maxQty {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d per item", s.maxQty)).
			WithDetails(map[string]any{"requested": quantity, "max": s.maxQty})
	}
	return nil
}

func stockCheck(product *catalog.Product, requested int) error {
	if requested <= product.StockQuantity {
		return nil
	}
	message := "not enough stock available"
	if !product.InStock() {
		message = "product is out of stock"
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, message).
		WithDetails(map[string]any{
			"product_id": product.ID.String(),
			"requested":  requested,
			"available":  product.StockQuantity,
		})
}

func itemNotFound(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found in cart").
		WithDetails(map[string]any{"product_id": productID.String()})
}

// enrich looks every line up in the catalog concurrently. Lines whose product
// vanished are kept and marked unavailable.
func (s *service) enrich(ctx context.Context, lines []LineItem) ([]SummaryItem, error) {
	items := make([]SummaryItem, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogFanout)

	for i, line := range lines {
		g.Go(func() error {
			item := SummaryItem{LineItem: line, LineTotal: line.LineTotal()}
			product, err := s.catalog.GetProduct(gctx, line.ProductID)
			switch {
			case errors.Is(err, catalog.ErrNotFound):
			case err != nil:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog lookup failed")
			default:
				item.Product = product
				item.Available = product.IsActive && product.InStock()
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) summarize(owner Owner, items []SummaryItem) *Summary {
	pricingLines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		pricingLines = append(pricingLines, pricing.Line{UnitPrice: item.PriceAtTime, Quantity: item.Quantity})
	}
	totals := s.calc.Calculate(pricingLines)
	return &Summary{
		Owner:     owner,
		Items:     items,
		ItemCount: totals.ItemCount,
		Subtotal:  totals.Subtotal,
		Tax:       totals.Tax,
		Shipping:  totals.Shipping,
		Total:     totals.Total,
	}
}

func validate(items []SummaryItem) *Validation {
	v := &Validation{Items: items, Errors: []Issue{}, Warnings: []Issue{}}
	for _, item := range items {
		name := item.ProductID.String()
		if item.Product != nil && item.Product.Name != "" {
			name = item.Product.Name
		}

		if item.Product == nil {
			v.Errors = append(v.Errors, Issue{
				ProductID:   item.ProductID,
				Type:        enums.CartIssueTypeProductNotFound,
				Message:     fmt.Sprintf("product %q no longer exists", name),
				Requested:   item.Quantity,
				PriceAtTime: item.PriceAtTime,
			})
			continue
		}
		if !item.Product.IsActive {
			v.Errors = append(v.Errors, Issue{
				ProductID:   item.ProductID,
				Type:        enums.CartIssueTypeProductInactive,
				Message:     fmt.Sprintf("product %q is no longer available", name),
				Requested:   item.Quantity,
				PriceAtTime: item.PriceAtTime,
			})
			continue
		}
		if item.Quantity > item.Product.StockQuantity {
			v.Errors = append(v.Errors, Issue{
				ProductID: item.ProductID,
				Type:      enums.CartIssueTypeInsufficientStock,
				Message:   fmt.Sprintf("not enough stock for %q, available: %d", name, item.Product.StockQuantity),
				Requested: item.Quantity,
				Available: item.Product.StockQuantity,
			})
		}
		if !item.PriceAtTime.Equal(item.Product.Price) {
			v.Warnings = append(v.Warnings, Issue{
				ProductID:    item.ProductID,
				Type:         enums.CartIssueTypePriceChanged,
				Message:      fmt.Sprintf("price changed for %q: was %s, now %s", name, item.PriceAtTime.StringFixed(2), item.Product.Price.StringFixed(2)),
				PriceAtTime:  item.PriceAtTime,
				CurrentPrice: item.Product.Price,
			})
		}
	}
	v.IsValid = len(v.Errors) == 0
	return v
}

func sortedOwners(owners []Owner) []Owner {
	out := append([]Owner(nil), owners...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (s *service) observe(ctx context.Context, op string, owner Owner, productID uuid.UUID, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	s.metrics.Observe(op, time.Since(started), err)
	if err == nil {
		return
	}

	fields := map[string]any{"operation": op, "owner": owner.Key()}
	if productID != uuid.Nil {
		fields["product_id"] = productID.String()
	}
	logCtx := s.logg.WithFields(ctx, fields)

	// non-retryable codes are caller errors
	if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
		s.logg.Warn(logCtx, err.Error())
		return
	}
	s.logg.Error(logCtx, "cart operation failed", err)
}
