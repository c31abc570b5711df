package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingStore records how often the product store is touched.
type countingStore struct {
	*MemStore
	mu    sync.Mutex
	calls int
}

func (s *countingStore) touch() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) FindProductByID(ctx context.Context, id string) (Product, bool, error) {
	s.touch()
	return s.MemStore.FindProductByID(ctx, id)
}

func (s *countingStore) FindProductByName(ctx context.Context, name string) (Product, bool, error) {
	s.touch()
	return s.MemStore.FindProductByName(ctx, name)
}

func (s *countingStore) UpdateProduct(ctx context.Context, p Product) error {
	s.touch()
	return s.MemStore.UpdateProduct(ctx, p)
}

type failingStore struct {
	*MemStore
	err error
}

func (s failingStore) ListProducts(context.Context) ([]Product, error) { return nil, s.err }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServices(t *testing.T, store ProductStore, cats CategoryStore) (*ProductService, *CategoryService) {
	t.Helper()

	categories := NewCategoryService(cats)
	products := NewProductService(store, categories)
	products.now = func() time.Time { return fixedNow }

	n := 0
	products.newID = func() string {
		n++
		return fmt.Sprintf("p-%d", n)
	}

	for _, name := range []string{"Electronics", "Food"} {
		_, err := categories.CreateCategory(context.Background(), &CategoryInput{Name: name})
		require.NoError(t, err)
	}
	return products, categories
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	p, err := products.CreateProduct(ctx, &ProductInput{
		Name:          "  Laptop ",
		CategoryName:  "Electronics",
		UnitPrice:     MustMoney("1200.00"),
		StockQuantity: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "p-1", p.ID)
	require.Equal(t, "Laptop", p.Name)
	require.Equal(t, Category{Name: "Electronics"}, p.Category)
	require.Equal(t, fixedNow, p.CreatedAt)
	require.Equal(t, fixedNow, p.UpdatedAt)

	got, ok, err := store.FindProductByID(ctx, "p-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestCreateProduct_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      *ProductInput
		wantErr error
		wantMsg string
	}{
		{
			name:    "invalid input",
			in:      &ProductInput{Name: "X", CategoryName: "Food"},
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "unknown category",
			in:      &ProductInput{Name: "X", CategoryName: "Garden", UnitPrice: MustMoney("1"), StockQuantity: 1},
			wantErr: ErrNotFound,
			wantMsg: "category with name Garden doesn't exist",
		},
		{
			name:    "duplicate name ignoring case",
			in:      &ProductInput{Name: "LAPTOP", CategoryName: "Food", UnitPrice: MustMoney("1"), StockQuantity: 1},
			wantErr: ErrAlreadyExists,
			wantMsg: "product with name LAPTOP already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemStore()
			products, _ := newTestServices(t, store, store)
			_, err := products.CreateProduct(ctx, &ProductInput{
				Name: "Laptop", CategoryName: "Electronics", UnitPrice: MustMoney("1200"), StockQuantity: 5,
			})
			require.NoError(t, err)

			_, err = products.CreateProduct(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.Equal(t, tt.wantMsg, err.Error())
			}

			all, err := store.ListProducts(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			require.Equal(t, "Laptop", all[0].Name)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	created, err := products.CreateProduct(ctx, &ProductInput{
		Name: "Apples", CategoryName: "Food", UnitPrice: MustMoney("2.50"), StockQuantity: 100,
	})
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)
	products.now = func() time.Time { return later }
	exp := NewDate(fixedNow.AddDate(0, 0, 7))

	updated, err := products.UpdateProduct(ctx, &ProductInput{
		ID:             created.ID,
		Name:           "Green Apples",
		CategoryName:   "Electronics",
		UnitPrice:      MustMoney("3.10"),
		StockQuantity:  40,
		ExpirationDate: &exp,
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "Green Apples", updated.Name)
	require.Equal(t, "Electronics", updated.Category.Name)
	require.Equal(t, 40, updated.StockQuantity)
	require.Equal(t, fixedNow, updated.CreatedAt)
	require.Equal(t, later, updated.UpdatedAt)
	require.Equal(t, &exp, updated.ExpirationDate)

	// the old name is free again, the new one is taken
	_, found, err := store.FindProductByName(ctx, "apples")
	require.NoError(t, err)
	require.False(t, found)
	_, found, err = store.FindProductByName(ctx, "green apples")
	require.NoError(t, err)
	require.True(t, found)
}

func TestUpdateProduct_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id before any store access", func(t *testing.T) {
		mem := NewMemStore()
		store := &countingStore{MemStore: mem}
		products, _ := newTestServices(t, store, mem)

		_, err := products.UpdateProduct(ctx, validInput())
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Equal(t, "product id is required for updating", err.Error())
		require.Zero(t, store.calls)
	})

	t.Run("validation before id check", func(t *testing.T) {
		store := NewMemStore()
		products, _ := newTestServices(t, store, store)

		_, err := products.UpdateProduct(ctx, &ProductInput{ID: "p-1"})
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Equal(t, "product name cannot be empty", err.Error())
	})

	t.Run("unknown product", func(t *testing.T) {
		store := NewMemStore()
		products, _ := newTestServices(t, store, store)

		in := validInput()
		in.ID = "nope"
		_, err := products.UpdateProduct(ctx, in)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown category", func(t *testing.T) {
		store := NewMemStore()
		products, _ := newTestServices(t, store, store)
		p, err := products.CreateProduct(ctx, validInput())
		require.NoError(t, err)

		in := validInput()
		in.ID = p.ID
		in.CategoryName = "Garden"
		_, err = products.UpdateProduct(ctx, in)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rename onto another product", func(t *testing.T) {
		store := NewMemStore()
		products, _ := newTestServices(t, store, store)
		_, err := products.CreateProduct(ctx, validInput())
		require.NoError(t, err)

		other := validInput()
		other.Name = "Phone"
		p, err := products.CreateProduct(ctx, other)
		require.NoError(t, err)

		in := validInput()
		in.ID = p.ID
		in.Name = "laptop"
		_, err = products.UpdateProduct(ctx, in)
		require.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	p, err := products.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	require.ErrorIs(t, products.DeleteProduct(ctx, " "), ErrInvalidArgument)
	require.ErrorIs(t, products.DeleteProduct(ctx, "missing"), ErrNotFound)

	require.NoError(t, products.DeleteProduct(ctx, p.ID))
	_, err = products.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, products.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestGetProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	_, err := products.GetProduct(ctx, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	p, err := products.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	got, err := products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestSetStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	in := validInput()
	in.StockQuantity = 37
	p, err := products.CreateProduct(ctx, in)
	require.NoError(t, err)

	later := fixedNow.Add(time.Minute)
	products.now = func() time.Time { return later }

	require.NoError(t, products.SetStock(ctx, p.ID, false))
	got, err := products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Zero(t, got.StockQuantity)
	require.Equal(t, later, got.UpdatedAt)

	// restocking sets the fixed quantity, not the previous 37
	require.NoError(t, products.SetStock(ctx, p.ID, true))
	got, err = products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, RestockQuantity, got.StockQuantity)

	require.ErrorIs(t, products.SetStock(ctx, "missing", true), ErrNotFound)
}

func TestSetStock_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	p, err := products.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(in bool) {
			defer wg.Done()
			_ = products.SetStock(ctx, p.ID, in)
		}(i%2 == 0)
	}
	wg.Wait()

	got, err := products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Contains(t, []int{0, RestockQuantity}, got.StockQuantity)
	require.Equal(t, p.Name, got.Name)
}

func TestFilterProducts(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	for _, in := range []*ProductInput{
		{Name: "Laptop Pro", CategoryName: "Electronics", UnitPrice: MustMoney("1500"), StockQuantity: 10},
		{Name: "Gaming Laptop", CategoryName: "Electronics", UnitPrice: MustMoney("2000"), StockQuantity: 0},
		{Name: "Milk", CategoryName: "Food", UnitPrice: MustMoney("1.80"), StockQuantity: 60},
	} {
		_, err := products.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	yes, no := true, false
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{name: "no criteria", c: Criteria{}, want: []string{"Gaming Laptop", "Laptop Pro", "Milk"}},
		{name: "name ignores case", c: Criteria{Name: "LAPTOP"}, want: []string{"Gaming Laptop", "Laptop Pro"}},
		{name: "category", c: Criteria{Categories: []string{"Food"}}, want: []string{"Milk"}},
		{name: "in stock", c: Criteria{InStock: &yes}, want: []string{"Laptop Pro", "Milk"}},
		{name: "out of stock", c: Criteria{InStock: &no}, want: []string{"Gaming Laptop"}},
		{name: "combined", c: Criteria{Name: "laptop", Categories: []string{"Electronics", "Food"}, InStock: &yes}, want: []string{"Laptop Pro"}},
		{name: "no match", c: Criteria{Categories: []string{"Toys"}}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := products.FilterProducts(ctx, tt.c)
			require.NoError(t, err)

			names := make([]string, 0, len(got))
			for _, p := range got {
				names = append(names, p.Name)
			}
			require.Equal(t, tt.want, names)
		})
	}
}

func TestInventoryReport_FromLiveProducts(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	products, _ := newTestServices(t, store, store)

	for _, in := range []*ProductInput{
		{Name: "A", CategoryName: "Electronics", UnitPrice: MustMoney("1200"), StockQuantity: 2},
		{Name: "B", CategoryName: "Electronics", UnitPrice: MustMoney("800"), StockQuantity: 3},
		{Name: "C", CategoryName: "Food", UnitPrice: MustMoney("1.50"), StockQuantity: 10},
		{Name: "D", CategoryName: "Food", UnitPrice: MustMoney("2.00"), StockQuantity: 0},
	} {
		_, err := products.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	rep, err := products.InventoryReport(ctx)
	require.NoError(t, err)
	require.Equal(t, 15, rep.Overall.TotalUnitsInStock)
	requireMoney(t, "4815.00", rep.Overall.TotalValue)
	require.Len(t, rep.Categories, 2)
}

func TestInventoryReport_StoreFailure(t *testing.T) {
	boom := errors.New("db down")
	mem := NewMemStore()
	products := NewProductService(failingStore{MemStore: mem, err: boom}, NewCategoryService(mem))

	_, err := products.InventoryReport(context.Background())
	require.ErrorIs(t, err, boom)
	require.False(t, IsDomainError(err))
}

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	categories := NewCategoryService(store)

	c, err := categories.CreateCategory(ctx, &CategoryInput{Name: "  Toys "})
	require.NoError(t, err)
	require.Equal(t, "Toys", c.Name)

	_, err = categories.CreateCategory(ctx, &CategoryInput{Name: "Toys"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = categories.CreateCategory(ctx, &CategoryInput{Name: ""})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = categories.CategoryByName(ctx, "Garden")
	require.ErrorIs(t, err, ErrNotFound)

	all, err := categories.ListCategories(ctx)
	require.NoError(t, err)
	require.Equal(t, []Category{{Name: "Toys"}}, all)
}

func TestCreateProduct_NonASCIINameClash(t *testing.T) {
	for name, newStore := range map[string]storeFactory{"memory": newMemTestStore, "sqlite": newSQLiteTestStore} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			products, _ := newTestServices(t, store, store)

			in := validInput()
			in.Name, in.CategoryName = "Éclair", "Food"
			_, err := products.CreateProduct(ctx, in)
			require.NoError(t, err)

			in.Name = "éclair"
			_, err = products.CreateProduct(ctx, in)
			require.ErrorIs(t, err, ErrAlreadyExists)

			got, err := products.FilterProducts(ctx, Criteria{Name: "écl"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, "Éclair", got[0].Name)
		})
	}
}
