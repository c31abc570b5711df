package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryResolver looks up a category by its exact name and fails with
// ErrNotFound when there is none.
type CategoryResolver interface {
	CategoryByName(ctx context.Context, name string) (Category, error)
}

type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) CreateCategory(ctx context.Context, in *CategoryInput) (Category, error) {
	if err := ValidateCategoryInput(in); err != nil {
		return Category{}, err
	}
	c := Category{Name: strings.TrimSpace(in.Name)}

	exists, err := s.store.CategoryExists(ctx, c.Name)
	if err != nil {
		return Category{}, wrapStore("check category", err)
	}
	if exists {
		return Category{}, alreadyExists("category already exists: %s", c.Name)
	}

	if err := s.store.InsertCategory(ctx, c); err != nil {
		return Category{}, wrapStore("insert category", err)
	}
	return c, nil
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]Category, error) {
	out, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, wrapStore("list categories", err)
	}
	return out, nil
}

func (s *CategoryService) CategoryByName(ctx context.Context, name string) (Category, error) {
	c, ok, err := s.store.FindCategory(ctx, name)
	if err != nil {
		return Category{}, wrapStore("find category", err)
	}
	if !ok {
		return Category{}, notFound("category with name %s doesn't exist", name)
	}
	return c, nil
}

type ProductService struct {
	store      ProductStore
	categories CategoryResolver

	now   func() time.Time
	newID func() string
}

func NewProductService(store ProductStore, categories CategoryResolver) *ProductService {
	return &ProductService{
		store:      store,
		categories: categories,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, in *ProductInput) (Product, error) {
	if err := ValidateProductInput(in); err != nil {
		return Product{}, err
	}

	category, err := s.categories.CategoryByName(ctx, strings.TrimSpace(in.CategoryName))
	if err != nil {
		return Product{}, err
	}

	name := strings.TrimSpace(in.Name)
	_, taken, err := s.store.FindProductByName(ctx, name)
	if err != nil {
		return Product{}, wrapStore("find product", err)
	}
	if taken {
		return Product{}, alreadyExists("product with name %s already exists", name)
	}

	now := s.now().UTC()
	p := Product{
		ID:             s.newID(),
		Name:           name,
		Category:       category,
		UnitPrice:      in.UnitPrice,
		ExpirationDate: in.ExpirationDate,
		StockQuantity:  in.StockQuantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return Product{}, wrapStore("insert product", err)
	}
	return p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, in *ProductInput) (Product, error) {
	if err := ValidateProductInput(in); err != nil {
		return Product{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Product{}, invalidArgument("product id is required for updating")
	}

	p, ok, err := s.store.FindProductByID(ctx, id)
	if err != nil {
		return Product{}, wrapStore("find product", err)
	}
	if !ok {
		return Product{}, notFound("product not found with id %s", id)
	}

	category, err := s.categories.CategoryByName(ctx, strings.TrimSpace(in.CategoryName))
	if err != nil {
		return Product{}, err
	}

	name := strings.TrimSpace(in.Name)
	other, taken, err := s.store.FindProductByName(ctx, name)
	if err != nil {
		return Product{}, wrapStore("find product", err)
	}
	if taken && other.ID != id {
		return Product{}, alreadyExists("product with name %s already exists", name)
	}

	p.Name = name
	p.Category = category
	p.UnitPrice = in.UnitPrice
	p.ExpirationDate = in.ExpirationDate
	p.StockQuantity = in.StockQuantity
	p.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return Product{}, wrapStore("update product", err)
	}
	return p, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if isBlank(id) {
		return invalidArgument("product id cannot be empty for deletion")
	}

	deleted, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return wrapStore("delete product", err)
	}
	if !deleted {
		return notFound("product not found with id %s for deletion", id)
	}
	return nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (Product, error) {
	if isBlank(id) {
		return Product{}, invalidArgument("product id cannot be empty")
	}

	p, ok, err := s.store.FindProductByID(ctx, id)
	if err != nil {
		return Product{}, wrapStore("find product", err)
	}
	if !ok {
		return Product{}, notFound("product not found with id %s", id)
	}
	return p, nil
}

// SetStock marks a product in stock (RestockQuantity units) or out of stock (0).
func (s *ProductService) SetStock(ctx context.Context, id string, inStock bool) error {
	qty := 0
	if inStock {
		qty = RestockQuantity
	}

	found, err := s.store.SetStockQuantity(ctx, id, qty, s.now().UTC())
	if err != nil {
		return wrapStore("set stock", err)
	}
	if !found {
		return notFound("product not found with id %s", id)
	}
	return nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]Product, error) {
	out, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, wrapStore("list products", err)
	}
	return out, nil
}

// FilterProducts lists the products matching c, or all products when c is empty.
func (s *ProductService) FilterProducts(ctx context.Context, c Criteria) ([]Product, error) {
	if c.IsZero() {
		return s.ListProducts(ctx)
	}

	out, err := s.store.FilterProducts(ctx, c)
	if err != nil {
		return nil, wrapStore("filter products", err)
	}
	return out, nil
}

func (s *ProductService) InventoryReport(ctx context.Context) (InventoryReport, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return InventoryReport{}, wrapStore("list products", err)
	}
	return ComputeReport(products), nil
}
