package testentities

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in a currency. Its canonical text form is
// "<currency> <amount>", for example "USD 20".
type Money struct {
	Currency string
	Amount   float64
}

// ParseMoney parses the canonical text form.
func ParseMoney(s string) (Money, error) {
	currency, amount, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || len(currency) != 3 {
		return Money{}, fmt.Errorf("invalid money %q", s)
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", amount, err)
	}
	return Money{Currency: strings.ToUpper(currency), Amount: value}, nil
}

// MustParseMoney is ParseMoney that panics on error.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) String() string {
	return m.Currency + " " + strconv.FormatFloat(m.Amount, 'f', -1, 64)
}

func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := ParseMoney(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Cents stores an amount as integer cents, for fields registered with an
// explicit converter.
func Cents(value any) (any, error) {
	m, ok := value.(Money)
	if !ok {
		return nil, fmt.Errorf("cents: expected Money, got %T", value)
	}
	return int64(m.Amount*100 + 0.5), nil
}

// FromCents reverses Cents, assuming USD.
func FromCents(value any) (any, error) {
	switch v := value.(type) {
	case int64:
		return Money{Currency: "USD", Amount: float64(v) / 100}, nil
	case int:
		return Money{Currency: "USD", Amount: float64(v) / 100}, nil
	case float64:
		return Money{Currency: "USD", Amount: v / 100}, nil
	}
	return nil, fmt.Errorf("cents: unexpected %T", value)
}
