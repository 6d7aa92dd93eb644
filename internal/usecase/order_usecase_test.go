package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/shopspring/decimal"
)

func colorProduct(id string, price int64, currency domain.Currency, colors ...string) *domain.Product {
	p := &domain.Product{ID: id, Title: id, Price: price, Currency: currency, Active: true}
	for i, c := range colors {
		p.Items = append(p.Items, variant(id+"-"+c+"-"+string(rune('a'+i)), domain.Attributes{"color": {c}}))
	}
	return p
}

func orderReq(lines ...LineItemReq) *CreateOrderReq {
	return &CreateOrderReq{
		FirstName:   "Olena",
		LastName:    "Shevchenko",
		PhoneNumber: "+380501112233",
		Currency:    "UAH",
		Delivery:    domain.Delivery{WhereToDeliver: "NOVA_POSHTA", Data: map[string]string{"branch": "12"}},
		ItemsData:   lines,
	}
}

func byColor(productID string, qty int, color string) LineItemReq {
	return LineItemReq{ProductID: productID, Qty: qty, Criteria: domain.Attributes{"color": {color}}}
}

func TestCreateOrderReservesFirstMatchingVariant(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(&domain.Product{
		ID: "P", Price: 100, Currency: domain.CurrencyUAH, Active: true,
		Items: []domain.ItemVariant{
			variant("red-1", domain.Attributes{"color": {"red"}}),
			variant("blue-1", domain.Attributes{"color": {"blue"}}),
		},
	})

	res, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if res.TotalPrice != 100 || res.Order.TotalPrice != 100 {
		t.Errorf("total = %d / %d, want 100", res.TotalPrice, res.Order.TotalPrice)
	}
	if res.Order.Status != domain.OrderStatusCreated || res.Order.IsItemsReturned {
		t.Errorf("order = %+v", res.Order)
	}

	p := f.s.product(t, "P")
	if got := skus(p.Items); !slices.Equal(got, []string{"blue-1"}) {
		t.Errorf("P variants = %v, want [blue-1]", got)
	}

	stored := f.s.order(t, res.Order.ID)
	if len(stored.ItemsData) != 1 || !slices.Equal(skus(stored.ItemsData[0].Reserved), []string{"red-1"}) {
		t.Errorf("stored items = %+v", stored.ItemsData)
	}
	if stored.Currency != domain.CurrencyUAH || len(stored.StatusHistory) != 1 {
		t.Errorf("stored order = %+v", stored)
	}

	if got := f.s.eventTypes(); !slices.Equal(got, []string{EventOrderCreated}) {
		t.Errorf("events = %v", got)
	}
	if len(f.cache.deleted) != 1 || !slices.Equal(f.cache.deleted[0], []string{"P"}) {
		t.Errorf("cache invalidations = %v", f.cache.deleted)
	}
}

func TestCreateOrderRemovesExactlyRequestedQty(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P1", 100, domain.CurrencyUAH, "red", "blue", "red", "red"))
	f.s.putProduct(colorProduct("P2", 250, domain.CurrencyUAH, "green", "green"))
	f.s.putProduct(colorProduct("P3", 50, domain.CurrencyUAH, "red"))

	res, err := f.uc.CreateOrder(context.Background(), orderReq(
		byColor("P1", 2, "red"),
		LineItemReq{ProductID: "P2", Qty: 1},
		byColor("P1", 1, "blue"),
	))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if got := f.s.product(t, "P1").Quantity(); got != 1 {
		t.Errorf("P1 quantity = %d, want 1", got)
	}
	if got := f.s.product(t, "P2").Quantity(); got != 1 {
		t.Errorf("P2 quantity = %d, want 1", got)
	}
	p3 := f.s.product(t, "P3")
	if p3.Quantity() != 1 || p3.Version != 0 {
		t.Errorf("P3 must not be touched: %+v", p3)
	}

	if res.TotalPrice != 100*3+250 {
		t.Errorf("total = %d, want %d", res.TotalPrice, 100*3+250)
	}
	if len(res.MutatedProducts) != 2 {
		t.Errorf("mutated products = %d, want 2", len(res.MutatedProducts))
	}
	for i, item := range res.Order.ItemsData {
		if len(item.Reserved) != item.Qty {
			t.Errorf("item %d reserved %d of %d", i, len(item.Reserved), item.Qty)
		}
	}
}

func TestCreateOrderFailsWhenNoVariantsLeft(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(&domain.Product{ID: "P", Price: 100, Currency: domain.CurrencyUAH, Active: true, Items: []domain.ItemVariant{}})

	for _, qty := range []int{1, 3} {
		_, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: qty}))
		if !errors.Is(err, e.ErrItemAlreadySold) {
			t.Fatalf("qty %d: error = %v, want ITEM_ALREADY_SOLD", qty, err)
		}
	}

	if p := f.s.product(t, "P"); len(p.Items) != 0 {
		t.Errorf("P variants = %v, want []", p.Items)
	}
	if f.s.ordersCount() != 0 || len(f.s.eventTypes()) != 0 {
		t.Error("failed order must not leave an order or an event")
	}
}

func TestCreateOrderQtyAboveAvailableLeavesInventoryUnchanged(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P1", 100, domain.CurrencyUAH, "red", "blue", "red"))
	f.s.putProduct(colorProduct("P2", 100, domain.CurrencyUAH, "black"))
	before1 := skus(f.s.product(t, "P1").Items)

	_, err := f.uc.CreateOrder(context.Background(), orderReq(
		LineItemReq{ProductID: "P2", Qty: 1},
		byColor("P1", 3, "red"),
	))
	if !errors.Is(err, e.ErrItemAlreadySold) {
		t.Fatalf("error = %v, want ITEM_ALREADY_SOLD", err)
	}
	if e.Code(err) != "ITEM_ALREADY_SOLD" {
		t.Errorf("code = %q", e.Code(err))
	}

	if got := skus(f.s.product(t, "P1").Items); !slices.Equal(got, before1) {
		t.Errorf("P1 variants = %v, want %v", got, before1)
	}
	if got := f.s.product(t, "P2").Quantity(); got != 1 {
		t.Errorf("P2 quantity = %d, want 1", got)
	}
	if f.s.ordersCount() != 0 {
		t.Error("no order must be created")
	}
	if len(f.cache.deleted) != 0 {
		t.Error("cache must not be invalidated for an aborted order")
	}
}

func TestCreateOrderProductNotFound(t *testing.T) {
	f := newOrderFixture(t)
	inactive := colorProduct("OFF", 100, domain.CurrencyUAH, "red")
	inactive.Active = false
	f.s.putProduct(inactive)

	for _, id := range []string{"missing", "OFF"} {
		_, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: id, Qty: 1}))
		if !errors.Is(err, e.ErrProductNotFound) || !e.IsNotFound(err) {
			t.Errorf("%s: error = %v, want PRODUCT_NOT_FOUND", id, err)
		}
	}
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *CreateOrderReq
		want error
	}{
		{"no items", orderReq(), e.ErrNoItems},
		{"zero qty", orderReq(LineItemReq{ProductID: "P", Qty: 0}), e.ErrInvalidQty},
		{"empty product id", orderReq(LineItemReq{Qty: 1}), e.ErrInvalidRequest},
		{"unknown currency", func() *CreateOrderReq {
			r := orderReq(LineItemReq{ProductID: "P", Qty: 1})
			r.Currency = "GBP"
			return r
		}(), e.ErrUnknownCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			_, err := f.uc.CreateOrder(context.Background(), tt.req)
			if !errors.Is(err, tt.want) || !e.IsDomain(err) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if f.tm.calls != 0 {
				t.Error("validation errors must not open a transaction")
			}
		})
	}
}

func TestCreateOrderBySku(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(&domain.Product{
		ID: "P", Price: 100, Currency: domain.CurrencyUAH, Active: true,
		Items: []domain.ItemVariant{
			variant("A", domain.Attributes{"color": {"red"}}),
			variant("B", domain.Attributes{"color": {"red"}}),
		},
	})

	res, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{
		ProductID: "P", Qty: 1, Sku: "B", Criteria: domain.Attributes{"color": {"blue"}},
	}))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if got := skus(res.Order.ItemsData[0].Reserved); !slices.Equal(got, []string{"B"}) {
		t.Errorf("reserved = %v, want [B]", got)
	}
	if res.Order.ItemsData[0].SKU != "B" {
		t.Errorf("line sku = %q", res.Order.ItemsData[0].SKU)
	}

	_, err = f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1, Sku: "B"}))
	if !errors.Is(err, e.ErrItemAlreadySold) {
		t.Fatalf("second sku reservation error = %v", err)
	}
}

func TestCreateOrderConvertsAndRoundsTotalOnce(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("UAH", 100, domain.CurrencyUAH, "red", "red", "red"))
	f.s.putProduct(colorProduct("USD", 1000, domain.CurrencyUSD, "red"))

	rates := &domain.RateState{
		Base:  domain.CurrencyUAH,
		Rates: map[domain.Currency]decimal.Decimal{domain.CurrencyUSD: decimal.RequireFromString("41.5")},
	}

	req := orderReq(LineItemReq{ProductID: "UAH", Qty: 3})
	req.Currency = "USD"
	req.Rates = rates

	res, err := f.uc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	// 3 * 100 / 41.5 = 7.228..., округление каждой единицы дало бы 6
	if res.TotalPrice != 7 || res.Order.Currency != domain.CurrencyUSD {
		t.Errorf("total = %d %s, want 7 USD", res.TotalPrice, res.Order.Currency)
	}

	f.rates.rates = rates
	res, err = f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "USD", Qty: 1}))
	if err != nil {
		t.Fatalf("CreateOrder() with stored rates error = %v", err)
	}
	if res.TotalPrice != 41500 {
		t.Errorf("total = %d, want 41500", res.TotalPrice)
	}
}

func TestCreateOrderUnknownRateAbortsReservation(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 1000, domain.CurrencyEUR, "red"))

	_, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1}))
	if !errors.Is(err, e.ErrUnknownRate) || e.IsDomain(err) {
		t.Fatalf("error = %v, want internal ErrUnknownRate", err)
	}
	if f.s.product(t, "P").Quantity() != 1 {
		t.Error("inventory must stay unchanged")
	}
}

func TestCreateOrderWriteConflict(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red", "red"))

	// Параллельная транзакция успела сохранить товар между чтением и записью.
	f.products.beforeSave = func(p *domain.Product) {
		f.s.mu.Lock()
		f.s.products[p.ID].Version++
		f.s.mu.Unlock()
	}

	_, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
	if !errors.Is(err, e.ErrWriteConflict) {
		t.Fatalf("error = %v, want ErrWriteConflict", err)
	}

	p := f.s.product(t, "P")
	if p.Quantity() != 2 || p.Version != 0 {
		t.Errorf("product after conflict = %+v", p)
	}
	if f.s.ordersCount() != 0 {
		t.Error("conflicting order must not be created")
	}
}

func TestCreateOrderSameUnitCannotBeReservedTwice(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red"))

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
			errs <- err
		}()
	}

	var succeeded, sold int
	for range 2 {
		err := <-errs
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, e.ErrItemAlreadySold), errors.Is(err, e.ErrWriteConflict):
			sold++
		default:
			t.Fatalf("unexpected error = %v", err)
		}
	}

	if succeeded != 1 || sold != 1 || f.s.ordersCount() != 1 {
		t.Fatalf("succeeded=%d failed=%d orders=%d", succeeded, sold, f.s.ordersCount())
	}
}

func TestUpdateOrderStatusFailedReturnsItems(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(&domain.Product{
		ID: "P", Price: 100, Currency: domain.CurrencyUAH, Active: true,
		Items: []domain.ItemVariant{
			variant("red-1", domain.Attributes{"color": {"red"}}),
			variant("blue-1", domain.Attributes{"color": {"blue"}}),
		},
	})

	res, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	order, err := f.uc.UpdateOrderStatus(context.Background(), res.Order.ID, domain.OrderStatusFailed,
		map[string]any{"reason": domain.ReasonCanceledByUser})
	if err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v", err)
	}

	if order.Status != domain.OrderStatusFailed || !order.IsItemsReturned {
		t.Errorf("returned order = %+v", order)
	}
	if len(order.StatusHistory) != 2 {
		t.Fatalf("history = %+v", order.StatusHistory)
	}
	last := order.StatusHistory[1]
	if last.Status != domain.OrderStatusFailed || last.AdditionalData["reason"] != domain.ReasonCanceledByUser {
		t.Errorf("last history entry = %+v", last)
	}
	if !order.LastStatusUpdateDate.Equal(last.Date) {
		t.Errorf("lastStatusUpdateDate = %v, want %v", order.LastStatusUpdateDate, last.Date)
	}

	if got := skus(f.s.product(t, "P").Items); !slices.Equal(got, []string{"blue-1", "red-1"}) {
		t.Errorf("P variants = %v, want [blue-1 red-1]", got)
	}
	if got := f.s.eventTypes(); !slices.Equal(got, []string{EventOrderCreated, EventOrderStatusChanged, EventOrderItemsReturned}) {
		t.Errorf("events = %v", got)
	}
}

func TestRoundTripRestoresVariantCounts(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P1", 100, domain.CurrencyUAH, "red", "blue", "red", "red"))
	f.s.putProduct(colorProduct("P2", 300, domain.CurrencyUAH, "green", "black"))
	before := map[string]int{"P1": 4, "P2": 2}

	res, err := f.uc.CreateOrder(context.Background(), orderReq(
		byColor("P1", 2, "red"),
		LineItemReq{ProductID: "P2", Qty: 2},
	))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if _, err := f.uc.UpdateOrderStatus(context.Background(), res.Order.ID, domain.OrderStatusFailed, nil); err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v", err)
	}
	if err := f.uc.returnItems(context.Background(), res.Order.ID); err != nil {
		t.Fatalf("returnItems() error = %v", err)
	}

	for id, want := range before {
		if got := f.s.product(t, id).Quantity(); got != want {
			t.Errorf("%s quantity = %d, want %d", id, got, want)
		}
	}
}

func TestReturnItemsIsIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red", "red"))

	res, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if _, err := f.uc.UpdateOrderStatus(context.Background(), res.Order.ID, domain.OrderStatusFailed, nil); err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v", err)
	}
	once := f.s.product(t, "P").Quantity()

	for range 2 {
		if err := f.uc.returnItems(context.Background(), res.Order.ID); err != nil {
			t.Fatalf("returnItems() error = %v", err)
		}
		f.uc.ReturnItems(context.Background(), res.Order.ID)
	}

	if got := f.s.product(t, "P").Quantity(); got != once || got != 2 {
		t.Errorf("quantity after repeated return = %d, want %d", got, once)
	}
}

func TestReturnItemsRequiresFailedOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red", "red"))

	res, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	err = f.uc.returnItems(context.Background(), res.Order.ID)
	if !errors.Is(err, e.ErrOrderStatusNotFailed) {
		t.Fatalf("returnItems() error = %v, want ORDER_STATUS_NOT_FAILED", err)
	}

	f.uc.ReturnItems(context.Background(), res.Order.ID)
	if f.s.product(t, "P").Quantity() != 1 || f.s.order(t, res.Order.ID).IsItemsReturned {
		t.Error("non-failed order must not be compensated")
	}
}

func TestReturnItemsSynthesizesVariantsWithoutCapturedItems(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "blue"))

	legacy := domain.NewOrder("legacy", testNow)
	legacy.ItemsData = []domain.OrderItem{{ProductID: "P", Qty: 2, Attributes: domain.Attributes{"color": {"red"}}}}
	legacy.ApplyStatus(domain.OrderStatusFailed, testNow, nil)
	if err := f.orders.Create(context.Background(), legacy); err != nil {
		t.Fatal(err)
	}

	if err := f.uc.returnItems(context.Background(), "legacy"); err != nil {
		t.Fatalf("returnItems() error = %v", err)
	}

	p := f.s.product(t, "P")
	if p.Quantity() != 3 {
		t.Fatalf("quantity = %d, want 3", p.Quantity())
	}
	for _, v := range p.Items[1:] {
		if v.SKU == "" || !v.Attributes.Contains(domain.Attributes{"color": {"red"}}) {
			t.Errorf("synthesized variant = %+v", v)
		}
	}
	if p.Items[1].SKU == p.Items[2].SKU {
		t.Error("synthesized variants must get distinct SKUs")
	}
	if !f.s.order(t, "legacy").IsItemsReturned {
		t.Error("isItemsReturned must be set")
	}
}

func TestReturnItemsSkipsMissingProducts(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH))

	o := domain.NewOrder("o", testNow)
	o.ItemsData = []domain.OrderItem{
		{ProductID: "gone", Qty: 1, Reserved: []domain.ItemVariant{variant("g-1", nil)}},
		{ProductID: "P", Qty: 1, Reserved: []domain.ItemVariant{variant("p-1", domain.Attributes{"color": {"red"}})}},
	}
	o.ApplyStatus(domain.OrderStatusFailed, testNow, nil)
	if err := f.orders.Create(context.Background(), o); err != nil {
		t.Fatal(err)
	}

	if err := f.uc.returnItems(context.Background(), "o"); err != nil {
		t.Fatalf("returnItems() error = %v", err)
	}
	if got := skus(f.s.product(t, "P").Items); !slices.Equal(got, []string{"p-1"}) {
		t.Errorf("P variants = %v", got)
	}
	if !f.s.order(t, "o").IsItemsReturned {
		t.Error("isItemsReturned must be set")
	}
}

func TestUpdateOrderStatusSwallowsCompensationFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red", "red"))

	res, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	f.orders.setReturnErr = errors.New("connection reset")
	order, err := f.uc.UpdateOrderStatus(context.Background(), res.Order.ID, domain.OrderStatusFailed, nil)
	if err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v, compensation errors must not propagate", err)
	}

	if order.Status != domain.OrderStatusFailed || order.IsItemsReturned {
		t.Errorf("order = %+v", order)
	}
	if f.s.product(t, "P").Quantity() != 1 {
		t.Error("failed compensation must roll back product changes")
	}

	f.orders.setReturnErr = nil
	f.uc.ReturnItems(context.Background(), res.Order.ID)
	if f.s.product(t, "P").Quantity() != 2 || !f.s.order(t, res.Order.ID).IsItemsReturned {
		t.Error("retried compensation must return the items")
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red"))

	res, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1}))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	id := res.Order.ID

	if _, err := f.uc.UpdateOrderStatus(context.Background(), "missing", domain.OrderStatusPaid, nil); !errors.Is(err, e.ErrOrderNotFound) {
		t.Errorf("missing order error = %v", err)
	}
	if _, err := f.uc.UpdateOrderStatus(context.Background(), id, domain.OrderStatus("SHIPPED"), nil); !errors.Is(err, e.ErrUnknownStatus) {
		t.Errorf("unknown status error = %v", err)
	}

	// Таблица переходов на этом вызове не применяется.
	for _, st := range []domain.OrderStatus{domain.OrderStatusFinished, domain.OrderStatusCreated, domain.OrderStatusPaid} {
		order, err := f.uc.UpdateOrderStatus(context.Background(), id, st, nil)
		if err != nil || order.Status != st {
			t.Fatalf("UpdateOrderStatus(%s) = %v, %v", st, order, err)
		}
	}

	stored := f.s.order(t, id)
	if len(stored.StatusHistory) != 4 || stored.IsItemsReturned {
		t.Errorf("stored order = %+v", stored)
	}
	if f.s.product(t, "P").Quantity() != 0 {
		t.Error("non-FAILED statuses must not return items")
	}
}

func TestCancelOrder(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.OrderStatus
		wantErr error
	}{
		{"created is canceled", domain.OrderStatusCreated, nil},
		{"paid", domain.OrderStatusPaid, e.ErrOrderAlreadyPaid},
		{"finished", domain.OrderStatusFinished, e.ErrOrderAlreadyFinished},
		{"failed", domain.OrderStatusFailed, e.ErrOrderAlreadyFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red", "red"))

			res, err := f.uc.CreateOrder(context.Background(), orderReq(byColor("P", 1, "red")))
			if err != nil {
				t.Fatalf("CreateOrder() error = %v", err)
			}
			id := res.Order.ID
			if tt.status != domain.OrderStatusCreated {
				f.s.mu.Lock()
				f.s.orders[id].Status = tt.status
				f.s.mu.Unlock()
			}
			historyBefore := len(f.s.order(t, id).StatusHistory)

			err = f.uc.CancelOrder(context.Background(), id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CancelOrder() error = %v, want %v", err, tt.wantErr)
			}

			stored := f.s.order(t, id)
			quantity := f.s.product(t, "P").Quantity()
			if tt.wantErr != nil {
				if stored.Status != tt.status || len(stored.StatusHistory) != historyBefore || quantity != 1 {
					t.Errorf("rejected cancel changed state: status=%s history=%d quantity=%d", stored.Status, len(stored.StatusHistory), quantity)
				}
				return
			}

			last := stored.StatusHistory[len(stored.StatusHistory)-1]
			if stored.Status != domain.OrderStatusFailed || last.AdditionalData["reason"] != domain.ReasonCanceledByUser {
				t.Errorf("canceled order = %+v", stored)
			}
			if !stored.IsItemsReturned || quantity != 2 {
				t.Errorf("items not returned: isItemsReturned=%v quantity=%d", stored.IsItemsReturned, quantity)
			}
		})
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	f := newOrderFixture(t)

	if err := f.uc.CancelOrder(context.Background(), "missing"); !errors.Is(err, e.ErrOrderNotFound) {
		t.Fatalf("CancelOrder() error = %v", err)
	}
}

func TestInvoiceLookup(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red"))

	res, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1}))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if err := f.uc.SetInvoice(context.Background(), res.Order.ID, "inv-42"); err != nil {
		t.Fatalf("SetInvoice() error = %v", err)
	}
	if err := f.uc.SetInvoice(context.Background(), "missing", "inv-1"); !errors.Is(err, e.ErrOrderNotFound) {
		t.Errorf("SetInvoice(missing) error = %v", err)
	}
	if err := f.uc.SetInvoice(context.Background(), res.Order.ID, " "); !errors.Is(err, e.ErrInvalidRequest) {
		t.Errorf("SetInvoice(blank) error = %v", err)
	}

	order, err := f.uc.GetOrderByInvoiceID(context.Background(), "inv-42")
	if err != nil || order == nil || order.ID != res.Order.ID || order.Status != domain.OrderStatusCreated {
		t.Fatalf("GetOrderByInvoiceID() = %+v, %v", order, err)
	}

	if order, err := f.uc.GetOrderByInvoiceID(context.Background(), "inv-404"); order != nil || err != nil {
		t.Errorf("GetOrderByInvoiceID(unknown) = %v, %v; want nil, nil", order, err)
	}
	if order, err := f.uc.GetOrder(context.Background(), "missing"); order != nil || err != nil {
		t.Errorf("GetOrder(missing) = %v, %v; want nil, nil", order, err)
	}
	if order, err := f.uc.GetOrder(context.Background(), res.Order.ID); err != nil || order.InvoiceID == nil || *order.InvoiceID != "inv-42" {
		t.Errorf("GetOrder() = %+v, %v", order, err)
	}
}

func TestHandlePaymentNotification(t *testing.T) {
	tests := []struct {
		name         string
		initial      domain.OrderStatus
		status       string
		want         domain.OrderStatus
		wantReturned bool
	}{
		{"success pays created order", domain.OrderStatusCreated, "success", domain.OrderStatusPaid, false},
		{"failure fails order and returns items", domain.OrderStatusCreated, "failure", domain.OrderStatusFailed, true},
		{"expired fails paid order", domain.OrderStatusPaid, "expired", domain.OrderStatusFailed, true},
		{"processing is ignored", domain.OrderStatusCreated, "processing", domain.OrderStatusCreated, false},
		{"illegal transition is ignored", domain.OrderStatusFinished, "success", domain.OrderStatusFinished, false},
		{"repeated success is ignored", domain.OrderStatusPaid, "success", domain.OrderStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red"))

			res, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1}))
			if err != nil {
				t.Fatalf("CreateOrder() error = %v", err)
			}
			id := res.Order.ID
			if err := f.uc.SetInvoice(context.Background(), id, "inv-1"); err != nil {
				t.Fatal(err)
			}
			f.s.mu.Lock()
			f.s.orders[id].Status = tt.initial
			f.s.mu.Unlock()

			payload := []byte(`{"invoiceId":"inv-1","status":"` + tt.status + `"}`)
			err = f.uc.HandlePaymentNotification(context.Background(), &PaymentNotificationReq{
				InvoiceID: "inv-1", Status: tt.status, Payload: payload,
			})
			if err != nil {
				t.Fatalf("HandlePaymentNotification() error = %v", err)
			}

			stored := f.s.order(t, id)
			if stored.Status != tt.want {
				t.Errorf("status = %s, want %s", stored.Status, tt.want)
			}
			if stored.IsItemsReturned != tt.wantReturned {
				t.Errorf("isItemsReturned = %v, want %v", stored.IsItemsReturned, tt.wantReturned)
			}
			if len(f.archive.puts) != 1 || string(f.archive.puts[0].Payload) != string(payload) {
				t.Errorf("archived = %+v", f.archive.puts)
			}
		})
	}
}

func TestHandlePaymentNotificationArchiveFailureDoesNotBlock(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red"))
	f.archive.err = errors.New("minio unavailable")

	res, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1}))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if err := f.uc.SetInvoice(context.Background(), res.Order.ID, "inv-1"); err != nil {
		t.Fatal(err)
	}

	err = f.uc.HandlePaymentNotification(context.Background(), &PaymentNotificationReq{InvoiceID: "inv-1", Status: "success"})
	if err != nil {
		t.Fatalf("HandlePaymentNotification() error = %v", err)
	}
	if st := f.s.order(t, res.Order.ID).Status; st != domain.OrderStatusPaid {
		t.Errorf("status = %s, want PAID", st)
	}

	err = f.uc.HandlePaymentNotification(context.Background(), &PaymentNotificationReq{InvoiceID: "inv-404", Status: "success"})
	if !errors.Is(err, e.ErrOrderNotFound) {
		t.Errorf("unknown invoice error = %v", err)
	}
	err = f.uc.HandlePaymentNotification(context.Background(), &PaymentNotificationReq{Status: "success"})
	if !errors.Is(err, e.ErrInvalidRequest) {
		t.Errorf("missing invoice error = %v", err)
	}
}

func TestFind(t *testing.T) {
	f := newOrderFixture(t)
	f.s.putProduct(colorProduct("P", 100, domain.CurrencyUAH, "red", "red", "red"))

	for range 3 {
		if _, err := f.uc.CreateOrder(context.Background(), orderReq(LineItemReq{ProductID: "P", Qty: 1})); err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
	}

	res, err := f.uc.Find(context.Background(), &FindOrdersReq{Statuses: []domain.OrderStatus{domain.OrderStatusCreated}, Limit: 2, SortDesc: true})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if res.Total != 3 || len(res.Orders) != 2 {
		t.Errorf("Find() total=%d page=%d", res.Total, len(res.Orders))
	}
	if !res.Orders[0].CreateDate.After(res.Orders[1].CreateDate) {
		t.Error("orders must be sorted by create date descending")
	}
	if f.orders.lastFind.SortBy != SortByCreateDate {
		t.Errorf("default sort = %q", f.orders.lastFind.SortBy)
	}

	if _, err := f.uc.Find(context.Background(), &FindOrdersReq{Limit: 1000}); err != nil || f.orders.lastFind.Limit != maxFindLimit {
		t.Errorf("limit cap: err=%v limit=%d", err, f.orders.lastFind.Limit)
	}
	if _, err := f.uc.Find(context.Background(), &FindOrdersReq{}); err != nil || f.orders.lastFind.Limit != defaultFindLimit {
		t.Errorf("default limit: err=%v limit=%d", err, f.orders.lastFind.Limit)
	}
	if _, err := f.uc.Find(context.Background(), &FindOrdersReq{SortBy: "phone"}); !errors.Is(err, e.ErrInvalidRequest) {
		t.Errorf("bad sort error = %v", err)
	}
	if _, err := f.uc.Find(context.Background(), &FindOrdersReq{Statuses: []domain.OrderStatus{"LOST"}}); !errors.Is(err, e.ErrUnknownStatus) {
		t.Errorf("bad status error = %v", err)
	}
}
