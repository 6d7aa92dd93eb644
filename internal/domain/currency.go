package domain

import (
	"strings"

	"github.com/DRSN-tech/shop-backend/pkg/e"
)

type Currency string

const (
	CurrencyUAH Currency = "UAH"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"

	DefaultCurrency = CurrencyUAH
)

// ParseCurrency разбирает код валюты без учёта регистра.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyUAH, CurrencyUSD, CurrencyEUR:
		return c, nil
	default:
		return "", e.ErrUnknownCurrency
	}
}

func (c Currency) String() string {
	return string(c)
}
