package converter

import (
	"fmt"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/shopspring/decimal"
)

type ProductInfoConverter struct{}

func (ProductInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	return &ProductInfoRedisModel{
		ID:       entity.ID,
		PublicID: entity.PublicID,
		Title:    entity.Title,
		Price:    entity.Price,
		Currency: entity.Currency.String(),
		Quantity: entity.Quantity,
		Attrs:    entity.Attrs,
	}
}

func (ProductInfoConverter) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	return &usecase.ProductInfo{
		ID:       model.ID,
		PublicID: model.PublicID,
		Title:    model.Title,
		Price:    model.Price,
		Currency: domain.Currency(model.Currency),
		Quantity: model.Quantity,
		Attrs:    domain.Attributes(model.Attrs),
	}
}

func (c ProductInfoConverter) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	out := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		out = append(out, *c.ToRedisModel(&entities[i]))
	}
	return out
}

type RatesConverter struct{}

func (RatesConverter) ToRedisModel(entity *domain.RateState) *RatesRedisModel {
	rates := make(map[string]string, len(entity.Rates))
	for c, r := range entity.Rates {
		rates[c.String()] = r.String()
	}

	return &RatesRedisModel{
		Base:      entity.Base.String(),
		Rates:     rates,
		UpdatedAt: entity.UpdatedAt,
	}
}

func (RatesConverter) ToEntity(model *RatesRedisModel) (*domain.RateState, error) {
	rates := make(map[domain.Currency]decimal.Decimal, len(model.Rates))
	for c, s := range model.Rates {
		r, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", c, err)
		}
		rates[domain.Currency(c)] = r
	}

	return &domain.RateState{
		Base:      domain.Currency(model.Base),
		Rates:     rates,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
