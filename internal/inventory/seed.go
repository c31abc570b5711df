package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type seedProduct struct {
	name        string
	category    string
	price       string
	stock       int
	expiresDays int // 0 means no expiration date
}

var seedCategories = []string{
	"Electronics", "Food", "Books", "Clothing", "Home & Kitchen", "Sports", "Beauty", "Toys",
}

var seedProducts = []seedProduct{
	{"Laptop Pro", "Electronics", "1500.00", 10, 0},
	{"Smartphone X", "Electronics", "800.00", 25, 0},
	{"Wireless Headphones", "Electronics", "150.00", 40, 0},
	{"Smartwatch 5", "Electronics", "300.00", 15, 0},
	{"Gaming Mouse", "Electronics", "75.00", 30, 0},

	{"Organic Apples", "Food", "2.50", 100, 7},
	{"Whole Wheat Bread", "Food", "3.20", 50, 3},
	{"Milk Carton", "Food", "1.80", 60, 10},
	{"Cereal Box", "Food", "4.50", 80, 180},
	{"Coffee Beans", "Food", "12.00", 35, 0},

	{"The Great Novel", "Books", "25.00", 30, 0},
	{"Science Textbook", "Books", "70.00", 8, 0},
	{"Fantasy Series Vol. 1", "Books", "18.00", 20, 0},

	{"Summer T-Shirt", "Clothing", "15.99", 20, 0},
	{"Jeans Slim Fit", "Clothing", "45.00", 18, 0},
	{"Winter Jacket", "Clothing", "89.99", 5, 0},

	{"Blender Pro", "Home & Kitchen", "99.99", 12, 0},
	{"Coffee Maker", "Home & Kitchen", "70.00", 8, 0},

	{"Yoga Mat", "Sports", "29.99", 25, 0},
	{"Dumbbell Set", "Sports", "55.00", 10, 0},

	{"Face Moisturizer", "Beauty", "22.50", 30, 0},
	{"Shampoo Large", "Beauty", "10.00", 50, 0},

	{"Building Blocks Set", "Toys", "35.00", 40, 0},
	{"Remote Control Car", "Toys", "60.00", 15, 0},

	// out of stock and already expired
	{"Expired Milk", "Food", "1.00", 0, -1},
}

// Seeder loads the demo catalog through the services. Running it again is a no-op:
// entries that already exist are skipped.
type Seeder struct {
	Categories *CategoryService
	Products   *ProductService
	Log        *zap.Logger
	Now        func() time.Time
}

// Seed returns the first infrastructure failure. Validation failures are logged
// and skipped.
func (s *Seeder) Seed(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	log.Info("seeding inventory")

	for _, name := range seedCategories {
		_, err := s.Categories.CreateCategory(ctx, &CategoryInput{Name: name})
		switch {
		case err == nil:
			log.Info("category created", zap.String("category", name))
		case errors.Is(err, ErrAlreadyExists):
			log.Warn("category already exists", zap.String("category", name))
		case IsDomainError(err):
			log.Error("category rejected", zap.String("category", name), zap.Error(err))
		default:
			return err
		}
	}

	today := now()
	for _, sp := range seedProducts {
		in := &ProductInput{
			Name:          sp.name,
			CategoryName:  sp.category,
			UnitPrice:     MustMoney(sp.price),
			StockQuantity: sp.stock,
		}
		if sp.expiresDays != 0 {
			d := NewDate(today.AddDate(0, 0, sp.expiresDays))
			in.ExpirationDate = &d
		}

		_, err := s.Products.CreateProduct(ctx, in)
		switch {
		case err == nil:
			log.Info("product created", zap.String("product", sp.name))
		case errors.Is(err, ErrAlreadyExists):
			log.Warn("product already exists", zap.String("product", sp.name))
		case IsDomainError(err):
			log.Error("product rejected", zap.String("product", sp.name), zap.Error(err))
		default:
			return err
		}
	}

	log.Info("seeding finished")
	return nil
}
