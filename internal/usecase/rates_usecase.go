package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/shopspring/decimal"
)

// RatesUseCase публикует снимок курсов, по которому заказы пересчитываются в валюту оплаты.
type RatesUseCase struct {
	ratesRepo       RatesRepository
	defaultCurrency domain.Currency
	now             func() time.Time
}

func NewRatesUC(ratesRepo RatesRepository, defaultCurrency domain.Currency) *RatesUseCase {
	return &RatesUseCase{
		ratesRepo:       ratesRepo,
		defaultCurrency: defaultCurrency,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// GetRates возвращает сохранённый снимок или тождественный, если снимка нет.
func (r *RatesUseCase) GetRates(ctx context.Context) (*domain.RateState, error) {
	const op = "RatesUseCase.GetRates"

	rates, err := r.ratesRepo.Get(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if rates == nil {
		return domain.IdentityRates(r.defaultCurrency), nil
	}

	return rates, nil
}

func (r *RatesUseCase) SetRates(ctx context.Context, req *SetRatesReq) (*domain.RateState, error) {
	const op = "RatesUseCase.SetRates"

	base := r.defaultCurrency
	if req.Base != "" {
		var err error
		if base, err = domain.ParseCurrency(req.Base); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	state := &domain.RateState{
		Base:      base,
		Rates:     make(map[domain.Currency]decimal.Decimal, len(req.Rates)+1),
		UpdatedAt: r.now(),
	}
	state.Rates[base] = decimal.NewFromInt(1)

	for code, rate := range req.Rates {
		c, err := domain.ParseCurrency(code)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		if !rate.IsPositive() {
			return nil, e.Wrap(op, e.ErrInvalidRequest)
		}
		if c == base && !rate.Equal(decimal.NewFromInt(1)) {
			return nil, e.Wrap(op, e.ErrInvalidRequest)
		}
		state.Rates[c] = rate
	}

	if err := r.ratesRepo.Set(ctx, state); err != nil {
		return nil, e.Wrap(op, err)
	}

	return state, nil
}
