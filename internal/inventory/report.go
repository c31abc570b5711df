package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

type CategoryMetrics struct {
	CategoryName      string `json:"category_name"`
	TotalUnitsInStock int    `json:"total_units_in_stock"`
	TotalValue        Money  `json:"total_value"`
	AverageUnitPrice  Money  `json:"average_unit_price"`
}

type OverallMetrics struct {
	TotalUnitsInStock int   `json:"total_units_in_stock"`
	TotalValue        Money `json:"total_value"`
	AverageUnitPrice  Money `json:"average_unit_price"`
}

type InventoryReport struct {
	Overall    OverallMetrics    `json:"overall"`
	Categories []CategoryMetrics `json:"categories"`
}

// tally accumulates in-stock products of one scope.
type tally struct {
	units    int
	value    decimal.Decimal
	priceSum decimal.Decimal
	count    int64
}

func (t *tally) add(p Product) {
	qty := decimal.NewFromInt(int64(p.StockQuantity))
	t.units += p.StockQuantity
	t.value = t.value.Add(p.UnitPrice.Mul(qty))
	t.priceSum = t.priceSum.Add(p.UnitPrice.Decimal)
	t.count++
}

func (t *tally) totalValue() Money {
	return NewMoney(t.value.Round(moneyPlaces))
}

// averagePrice is the mean unit price of the counted products. Quantities do not
// weigh in.
func (t *tally) averagePrice() Money {
	if t.count == 0 {
		return NewMoney(decimal.Zero)
	}
	return NewMoney(t.priceSum.DivRound(decimal.NewFromInt(t.count), moneyPlaces))
}

// ComputeReport folds products into overall and per-category metrics. Products
// with no stock are ignored entirely, so a category whose products are all out of
// stock is absent from the result. Every product must carry a category.
func ComputeReport(products []Product) InventoryReport {
	var overall tally
	byCategory := make(map[string]*tally)

	for _, p := range products {
		if !p.InStock() {
			continue
		}
		overall.add(p)

		t, ok := byCategory[p.Category.Name]
		if !ok {
			t = &tally{}
			byCategory[p.Category.Name] = t
		}
		t.add(p)
	}

	categories := make([]CategoryMetrics, 0, len(byCategory))
	for name, t := range byCategory {
		categories = append(categories, CategoryMetrics{
			CategoryName:      name,
			TotalUnitsInStock: t.units,
			TotalValue:        t.totalValue(),
			AverageUnitPrice:  t.averagePrice(),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].CategoryName < categories[j].CategoryName
	})

	return InventoryReport{
		Overall: OverallMetrics{
			TotalUnitsInStock: overall.units,
			TotalValue:        overall.totalValue(),
			AverageUnitPrice:  overall.averagePrice(),
		},
		Categories: categories,
	}
}
