package domain

// Money represents an outcome value with its currency.
// Amounts may be negative; refunds are reported with a negated value on the
// platforms that use sign conventions.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount float64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// ZeroMoney returns a zero value in the given currency.
func ZeroMoney(currency string) Money {
	return Money{Amount: 0, Currency: currency}
}

// Negate flips the sign of the amount, preserving the currency.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}
