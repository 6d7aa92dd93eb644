// Package exchange пересчитывает суммы между валютами по снимку курсов.
// Функции чистые: без ввода-вывода и без изменения снимка.
package exchange

import (
	"fmt"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/shopspring/decimal"
)

// ConvertDecimal пересчитывает сумму в минимальных единицах без округления.
func ConvertDecimal(from, to domain.Currency, amountMinor int64, rates *domain.RateState) (decimal.Decimal, error) {
	amount := decimal.NewFromInt(amountMinor)
	if from == to {
		return amount, nil
	}
	if rates == nil {
		return decimal.Decimal{}, e.Wrap(fmt.Sprintf("%s->%s", from, to), e.ErrUnknownRate)
	}

	fromRate, ok := rates.Rate(from)
	if !ok {
		return decimal.Decimal{}, e.Wrap(from.String(), e.ErrUnknownRate)
	}
	toRate, ok := rates.Rate(to)
	if !ok {
		return decimal.Decimal{}, e.Wrap(to.String(), e.ErrUnknownRate)
	}

	return amount.Mul(fromRate).Div(toRate), nil
}

// Convert пересчитывает сумму и округляет до целой минимальной единицы (половина вверх).
func Convert(from, to domain.Currency, amountMinor int64, rates *domain.RateState) (int64, error) {
	v, err := ConvertDecimal(from, to, amountMinor, rates)
	if err != nil {
		return 0, err
	}

	return RoundMinor(v), nil
}

// RoundMinor округляет до целой минимальной единицы, половина от нуля.
func RoundMinor(v decimal.Decimal) int64 {
	return v.Round(0).IntPart()
}
