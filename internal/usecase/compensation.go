package usecase

import (
	"context"
	"errors"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ReturnItems возвращает зарезервированные варианты отменённого заказа на склад.
// Ошибки не пробрасываются: они пишутся в лог и считаются метрикой orders.compensation.failures.
func (o *OrderUseCase) ReturnItems(ctx context.Context, id string) {
	if err := o.returnItems(ctx, id); err != nil {
		o.logger.With("order_id", id, "error_code", failureReason(err)).Ctx(ctx).
			Errorf(err, "failed to return reserved items, inventory may be orphaned")
		o.compensationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
	}
}

func (o *OrderUseCase) returnItems(ctx context.Context, id string) error {
	const op = "OrderUseCase.ReturnItems"

	ctx, span := o.tracer.Start(ctx, op)
	defer span.End()

	var mutated []string
	err := o.tm.Do(ctx, func(ctx context.Context) error {
		mutated = nil

		order, err := o.orderRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if order.IsItemsReturned {
			return nil
		}
		if order.Status != domain.OrderStatusFailed {
			return e.ErrOrderStatusNotFailed
		}

		products, err := o.loadProducts(ctx, order.ProductIDs())
		if err != nil {
			return err
		}

		var touched []*domain.Product
		for _, item := range order.ItemsData {
			product, ok := products[item.ProductID]
			if !ok {
				o.logger.With("order_id", order.ID, "product_id", item.ProductID).Ctx(ctx).
					Warnf("product of returned item not found, skipping %d unit(s)", item.Qty)
				continue
			}

			product.PutBack(o.restoredVariants(item)...)
			if !containsProduct(touched, product.ID) {
				touched = append(touched, product)
			}
		}

		for _, product := range touched {
			if err := o.productRepo.SaveItems(ctx, product); err != nil {
				return err
			}
		}

		if err := o.orderRepo.SetItemsReturned(ctx, order.ID); err != nil {
			return err
		}

		if err := o.addEvent(ctx, EventOrderItemsReturned, order.ID, OrderItemsReturnedPayload{
			Items: newEventItems(order.ItemsData),
		}); err != nil {
			return err
		}

		mutated = productIDs(touched)
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return e.Wrap(op, err)
	}

	o.invalidateProducts(ctx, mutated)
	return nil
}

// restoredVariants восстанавливает варианты позиции: сохранённые копии,
// а для заказов без них — qty новых вариантов с исходными характеристиками и новым SKU.
func (o *OrderUseCase) restoredVariants(item domain.OrderItem) []domain.ItemVariant {
	if len(item.Reserved) > 0 {
		out := make([]domain.ItemVariant, len(item.Reserved))
		for i, v := range item.Reserved {
			out[i] = v.Clone()
		}
		return out
	}

	out := make([]domain.ItemVariant, item.Qty)
	for i := range out {
		out[i] = domain.ItemVariant{SKU: o.newID(), Attributes: item.Attributes.Clone()}
	}

	return out
}

func containsProduct(products []*domain.Product, id string) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}

	return false
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, e.ErrWriteConflict):
		return "write_conflict"
	case e.Code(err) != "":
		return e.Code(err)
	default:
		return "internal"
	}
}
