package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateState: снимок курсов валют. Rates[c] — цена одной единицы c в базовой валюте.
type RateState struct {
	Base      Currency
	Rates     map[Currency]decimal.Decimal
	UpdatedAt time.Time
}

// IdentityRates возвращает снимок, в котором известна только базовая валюта.
func IdentityRates(base Currency) *RateState {
	return &RateState{
		Base:  base,
		Rates: map[Currency]decimal.Decimal{base: decimal.NewFromInt(1)},
	}
}

// Rate возвращает курс валюты относительно базовой.
func (r *RateState) Rate(c Currency) (decimal.Decimal, bool) {
	if c == r.Base {
		return decimal.NewFromInt(1), true
	}
	rate, ok := r.Rates[c]
	if !ok || !rate.IsPositive() {
		return decimal.Decimal{}, false
	}

	return rate, true
}
