package usecase

import (
	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/exchange"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/shopspring/decimal"
)

// reservation: результат подбора вариантов под все позиции заказа.
type reservation struct {
	items   []domain.OrderItem
	mutated []*domain.Product // в порядке первого изменения
	total   int64
}

// reserve подбирает варианты под каждую позицию и снимает их с товаров из products.
// Товары изменяются только в памяти. При ошибке вызывающий обязан откатить транзакцию,
// частичные изменения не сохраняются.
func reserve(
	products map[string]*domain.Product,
	lines []LineItemReq,
	currency domain.Currency,
	rates *domain.RateState,
) (*reservation, error) {
	res := &reservation{items: make([]domain.OrderItem, 0, len(lines))}
	touched := make(map[string]bool, len(products))
	total := decimal.Zero

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || !product.Active {
			return nil, e.Wrap(line.ProductID, e.ErrProductNotFound)
		}

		if len(product.Items) == 0 {
			return nil, e.Wrap(line.ProductID, e.ErrItemAlreadySold)
		}

		matcher := domain.NewMatcher(line.Sku, line.Criteria)
		item := domain.OrderItem{
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			Attributes: line.Criteria.Clone(),
			SKU:        line.Sku,
			Reserved:   make([]domain.ItemVariant, 0, line.Qty),
		}

		for range line.Qty {
			variant, ok := product.TakeFirst(matcher)
			if !ok {
				return nil, e.Wrap(line.ProductID, e.ErrItemAlreadySold)
			}
			item.Reserved = append(item.Reserved, variant)

			price, err := exchange.ConvertDecimal(product.Currency, currency, product.Price, rates)
			if err != nil {
				return nil, err
			}
			total = total.Add(price)
		}

		if !touched[product.ID] {
			touched[product.ID] = true
			res.mutated = append(res.mutated, product)
		}
		res.items = append(res.items, item)
	}

	res.total = exchange.RoundMinor(total)
	return res, nil
}
