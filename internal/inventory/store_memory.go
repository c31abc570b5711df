package inventory

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemStore struct {
	mu         sync.RWMutex
	products   map[string]Product
	names      map[string]string // folded product name -> id
	categories map[string]Category
}

func NewMemStore() *MemStore {
	return &MemStore{
		products:   map[string]Product{},
		names:      map[string]string{},
		categories: map[string]Category{},
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }
func (s *MemStore) Close() error                   { return nil }

func (s *MemStore) InsertProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := foldName(p.Name)
	if _, taken := s.names[key]; taken {
		return alreadyExists("product with name %s already exists", p.Name)
	}
	s.products[p.ID] = detach(p)
	s.names[key] = p.ID
	return nil
}

func (s *MemStore) UpdateProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.products[p.ID]
	if !ok {
		return notFound("product not found with id %s", p.ID)
	}
	key := foldName(p.Name)
	if owner, taken := s.names[key]; taken && owner != p.ID {
		return alreadyExists("product with name %s already exists", p.Name)
	}

	delete(s.names, foldName(old.Name))
	s.products[p.ID] = detach(p)
	s.names[key] = p.ID
	return nil
}

func (s *MemStore) FindProductByID(ctx context.Context, id string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return detach(p), ok, nil
}

func (s *MemStore) FindProductByName(ctx context.Context, name string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[foldName(name)]
	if !ok {
		return Product{}, false, nil
	}
	return detach(s.products[id]), true, nil
}

func (s *MemStore) ListProducts(ctx context.Context) ([]Product, error) {
	return s.FilterProducts(ctx, Criteria{})
}

func (s *MemStore) FilterProducts(ctx context.Context, c Criteria) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if c.Matches(p) {
			out = append(out, detach(p))
		}
	}

	sortProducts(out)
	return out, nil
}

func (s *MemStore) DeleteProduct(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	delete(s.products, id)
	delete(s.names, foldName(p.Name))
	return true, nil
}

func (s *MemStore) SetStockQuantity(ctx context.Context, id string, qty int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	p.StockQuantity = qty
	p.UpdatedAt = at
	s.products[id] = p
	return true, nil
}

func (s *MemStore) InsertCategory(ctx context.Context, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.Name]; ok {
		return alreadyExists("category already exists: %s", c.Name)
	}
	s.categories[c.Name] = c
	return nil
}

func (s *MemStore) FindCategory(ctx context.Context, name string) (Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[name]
	return c, ok, nil
}

func (s *MemStore) CategoryExists(ctx context.Context, name string) (bool, error) {
	_, ok, err := s.FindCategory(ctx, name)
	return ok, err
}

func (s *MemStore) ListCategories(ctx context.Context) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func sortProducts(ps []Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}

// detach copies the expiration date so stored products share no memory with
// callers.
func detach(p Product) Product {
	if p.ExpirationDate != nil {
		d := *p.ExpirationDate
		p.ExpirationDate = &d
	}
	return p
}
