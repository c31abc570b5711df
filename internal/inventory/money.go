package inventory

import "github.com/shopspring/decimal"

// moneyPlaces is the scale every computed monetary amount is rounded to.
const moneyPlaces = 2

// Money is an exact decimal amount. On the wire it is a JSON number with at least
// two fractional digits.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Decimal: d}, nil
}

// MustMoney is ParseMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) MarshalJSON() ([]byte, error) {
	places := int32(moneyPlaces)
	if exp := -m.Exponent(); exp > places {
		places = exp
	}
	return []byte(m.StringFixed(places)), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}
