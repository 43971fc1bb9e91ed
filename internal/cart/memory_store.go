package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryLine struct {
	LineItem
	seq uint64
}

// MemoryStore is the non-persistent substitute used when no database is
// reachable. Transactions hold the store mutex and restore a snapshot when
// they fail.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]map[uuid.UUID]memoryLine
	seq   uint64
	now   func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts: make(map[string]map[uuid.UUID]memoryLine),
		now:   time.Now,
	}
}

// memoryTx operates on the store while its mutex is held.
type memoryTx struct {
	s *MemoryStore
}

func (m *MemoryStore) Get(ctx context.Context, owner Owner) ([]LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memoryTx{s: m}).Get(ctx, owner)
}

func (m *MemoryStore) Upsert(ctx context.Context, owner Owner, productID uuid.UUID, quantity int, priceAtTime decimal.Decimal) (LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memoryTx{s: m}).Upsert(ctx, owner, productID, quantity, priceAtTime)
}

func (m *MemoryStore) Delete(ctx context.Context, owner Owner, productID uuid.UUID) (*LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memoryTx{s: m}).Delete(ctx, owner, productID)
}

func (m *MemoryStore) DeleteAll(ctx context.Context, owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memoryTx{s: m}).DeleteAll(ctx, owner)
}

func (m *MemoryStore) ReassignOwner(ctx context.Context, fromSessionID string, toUserID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memoryTx{s: m}).ReassignOwner(ctx, fromSessionID, toUserID)
}

// LockOwner is a no-op; transactions already hold the store mutex.
func (m *MemoryStore) LockOwner(context.Context, Owner) error { return nil }

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.cloneCarts()
	seq := m.seq
	defer func() {
		if r := recover(); r != nil {
			m.carts, m.seq = snapshot, seq
			panic(r)
		}
		if err != nil {
			m.carts, m.seq = snapshot, seq
		}
	}()

	err = fn(&memoryTx{s: m})
	if err == nil {
		// a deadline that fired mid-transaction must not leave partial effects
		err = ctxErr(ctx)
	}
	return err
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctxErr(ctx) }

// Len reports how many owners currently hold lines.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

func (m *MemoryStore) cloneCarts() map[string]map[uuid.UUID]memoryLine {
	out := make(map[string]map[uuid.UUID]memoryLine, len(m.carts))
	for key, lines := range m.carts {
		copied := make(map[uuid.UUID]memoryLine, len(lines))
		for id, line := range lines {
			copied[id] = line
		}
		out[key] = copied
	}
	return out
}

func (t *memoryTx) Get(ctx context.Context, owner Owner) ([]LineItem, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	stored := t.s.carts[owner.Key()]
	ordered := make([]memoryLine, 0, len(stored))
	for _, line := range stored {
		ordered = append(ordered, line)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq > ordered[j].seq })

	lines := make([]LineItem, 0, len(ordered))
	for _, line := range ordered {
		lines = append(lines, line.LineItem)
	}
	return lines, nil
}

func (t *memoryTx) Upsert(ctx context.Context, owner Owner, productID uuid.UUID, quantity int, priceAtTime decimal.Decimal) (LineItem, error) {
	if err := ctxErr(ctx); err != nil {
		return LineItem{}, err
	}
	if quantity <= 0 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	key := owner.Key()
	lines, ok := t.s.carts[key]
	if !ok {
		lines = make(map[uuid.UUID]memoryLine)
		t.s.carts[key] = lines
	}

	now := t.s.now().UTC()
	line, exists := lines[productID]
	if !exists {
		t.s.seq++
		line = memoryLine{
			LineItem: LineItem{ID: uuid.New(), ProductID: productID, AddedAt: now},
			seq:      t.s.seq,
		}
	}
	line.Quantity = quantity
	line.PriceAtTime = priceAtTime
	line.UpdatedAt = now
	lines[productID] = line
	return line.LineItem, nil
}

func (t *memoryTx) Delete(ctx context.Context, owner Owner, productID uuid.UUID) (*LineItem, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	key := owner.Key()
	line, ok := t.s.carts[key][productID]
	if !ok {
		return nil, nil
	}
	delete(t.s.carts[key], productID)
	if len(t.s.carts[key]) == 0 {
		delete(t.s.carts, key)
	}
	removed := line.LineItem
	return &removed, nil
}

func (t *memoryTx) DeleteAll(ctx context.Context, owner Owner) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	delete(t.s.carts, owner.Key())
	return nil
}

func (t *memoryTx) ReassignOwner(ctx context.Context, fromSessionID string, toUserID uuid.UUID) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	fromKey := ForSession(fromSessionID).Key()
	toKey := ForUser(toUserID).Key()

	moving := t.s.carts[fromKey]
	if len(moving) == 0 {
		return 0, nil
	}
	target := t.s.carts[toKey]
	for productID := range moving {
		if _, clash := target[productID]; clash {
			return 0, pkgerrors.New(pkgerrors.CodeConflict, "user cart already holds product "+productID.String())
		}
	}
	if target == nil {
		target = make(map[uuid.UUID]memoryLine, len(moving))
		t.s.carts[toKey] = target
	}

	now := t.s.now().UTC()
	for productID, line := range moving {
		line.UpdatedAt = now
		target[productID] = line
	}
	delete(t.s.carts, fromKey)
	return len(moving), nil
}

func (t *memoryTx) LockOwner(context.Context, Owner) error { return nil }

func (t *memoryTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memoryTx) Ping(ctx context.Context) error { return ctxErr(ctx) }

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "cart operation aborted")
	}
	return nil
}
