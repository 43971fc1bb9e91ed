package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// MemoryReader is an in-process catalog used when no database is available.
type MemoryReader struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
}

// NewMemoryReader returns a reader pre-populated with products.
func NewMemoryReader(products ...Product) *MemoryReader {
	m := &MemoryReader{products: make(map[uuid.UUID]Product, len(products))}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

// GetProduct returns a copy of the stored product.
func (m *MemoryReader) GetProduct(_ context.Context, id uuid.UUID) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Put inserts or replaces a product.
func (m *MemoryReader) Put(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// Remove deletes a product so later lookups report ErrNotFound.
func (m *MemoryReader) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

// Len reports how many products are loaded.
func (m *MemoryReader) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

// LoadSeedFile reads a JSON array of products from path.
func LoadSeedFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed %q: %w", path, err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog seed %q: %w", path, err)
	}
	for i, p := range products {
		if p.ID == uuid.Nil {
			return nil, fmt.Errorf("catalog seed %q: product %d has no id", path, i)
		}
		if p.Price.IsNegative() || p.StockQuantity < 0 {
			return nil, fmt.Errorf("catalog seed %q: product %s has negative price or stock", path, p.ID)
		}
	}
	return products, nil
}
