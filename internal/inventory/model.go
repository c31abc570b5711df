package inventory

import (
	"strconv"
	"time"
)

// RestockQuantity is the quantity a product gets when it is marked back in stock.
// The previous quantity is not restored.
const RestockQuantity = 10

type Category struct {
	Name string `json:"name"`
}

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	UnitPrice      Money     `json:"unit_price"`
	ExpirationDate *Date     `json:"expiration_date,omitempty"`
	StockQuantity  int       `json:"stock_quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p Product) InStock() bool { return p.StockQuantity > 0 }

// ProductInput is the caller-supplied data for creating or updating a product.
type ProductInput struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	CategoryName   string `json:"category_name"`
	UnitPrice      Money  `json:"unit_price"`
	ExpirationDate *Date  `json:"expiration_date,omitempty"`
	StockQuantity  int    `json:"stock_quantity"`
}

type CategoryInput struct {
	Name string `json:"name"`
}

const dateLayout = time.DateOnly

// Date is a calendar day without a time component.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
