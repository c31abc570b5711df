package inventory

import "strings"

// ValidateProductInput checks name, category, price and stock, in that order,
// and returns the first failure.
func ValidateProductInput(in *ProductInput) error {
	if in == nil {
		return invalidArgument("product information cannot be empty")
	}
	if isBlank(in.Name) {
		return invalidArgument("product name cannot be empty")
	}
	if isBlank(in.CategoryName) {
		return invalidArgument("product category cannot be empty")
	}
	if !in.UnitPrice.IsPositive() {
		return invalidArgument("product unit price must be greater than zero")
	}
	if in.StockQuantity < 0 {
		return invalidArgument("product stock cannot be negative")
	}
	return nil
}

func ValidateCategoryInput(in *CategoryInput) error {
	if in == nil || isBlank(in.Name) {
		return invalidArgument("category name cannot be empty")
	}
	return nil
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
