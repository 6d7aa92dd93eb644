package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/DRSN-tech/shop-backend/internal/usecase"

	defaultFindLimit = 20
	maxFindLimit     = 100
)

// OrderUseCase реализует резервирование товаров, жизненный цикл заказа и возврат остатков.
type OrderUseCase struct {
	tm          TxManager
	productRepo ProductRepository
	orderRepo   OrderRepository
	outboxRepo  OutboxRepository
	cacheRepo   CacheRepository
	ratesRepo   RatesRepository
	archiveRepo PaymentArchiveRepository
	logger      logger.Logger

	defaultCurrency domain.Currency
	now             func() time.Time
	newID           func() string

	tracer               trace.Tracer
	meter                metric.Meter
	compensationFailures metric.Int64Counter
}

type OrderOption func(*OrderUseCase)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) OrderOption {
	return func(o *OrderUseCase) {
		o.now = now
	}
}

// WithIDGenerator подменяет генератор id заказов, событий и SKU.
func WithIDGenerator(newID func() string) OrderOption {
	return func(o *OrderUseCase) {
		o.newID = newID
	}
}

func WithDefaultCurrency(c domain.Currency) OrderOption {
	return func(o *OrderUseCase) {
		o.defaultCurrency = c
	}
}

func WithMeter(m metric.Meter) OrderOption {
	return func(o *OrderUseCase) {
		o.meter = m
	}
}

func NewOrderUC(
	tm TxManager,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	cacheRepo CacheRepository,
	ratesRepo RatesRepository,
	archiveRepo PaymentArchiveRepository,
	logger logger.Logger,
	opts ...OrderOption,
) *OrderUseCase {
	o := &OrderUseCase{
		tm:              tm,
		productRepo:     productRepo,
		orderRepo:       orderRepo,
		outboxRepo:      outboxRepo,
		cacheRepo:       cacheRepo,
		ratesRepo:       ratesRepo,
		archiveRepo:     archiveRepo,
		logger:          logger,
		defaultCurrency: domain.DefaultCurrency,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
		tracer:          otel.Tracer(instrumentationName),
		meter:           otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}

	counter, err := o.meter.Int64Counter(
		"orders.compensation.failures",
		metric.WithDescription("Failed attempts to return reserved items of failed orders"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		logger.Warnf("failed to create compensation failures counter: %v", err)
		counter = noop.Int64Counter{}
	}
	o.compensationFailures = counter

	return o
}

// CreateOrder резервирует варианты под все позиции и создаёт заказ одной транзакцией.
func (o *OrderUseCase) CreateOrder(ctx context.Context, req *CreateOrderReq) (*CreateOrderRes, error) {
	const op = "OrderUseCase.CreateOrder"

	ctx, span := o.tracer.Start(ctx, op)
	defer span.End()

	currency, err := o.validateCreateOrder(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	rates, err := o.resolveRates(ctx, req.Rates)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var res *CreateOrderRes
	err = o.tm.Do(ctx, func(ctx context.Context) error {
		res = nil

		products, err := o.loadProducts(ctx, lineProductIDs(req.ItemsData))
		if err != nil {
			return err
		}

		r, err := reserve(products, req.ItemsData, currency, rates)
		if err != nil {
			return err
		}

		for _, product := range r.mutated {
			if err := o.productRepo.SaveItems(ctx, product); err != nil {
				return err
			}
		}

		order := domain.NewOrder(o.newID(), o.now())
		order.FirstName = req.FirstName
		order.LastName = req.LastName
		order.PhoneNumber = req.PhoneNumber
		order.Delivery = req.Delivery
		order.Currency = currency
		order.ItemsData = r.items
		order.TotalPrice = r.total

		if err := o.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		if err := o.addEvent(ctx, EventOrderCreated, order.ID, OrderCreatedPayload{
			Status:     order.Status,
			TotalPrice: order.TotalPrice,
			Currency:   order.Currency,
			Items:      newEventItems(order.ItemsData),
		}); err != nil {
			return err
		}

		res = &CreateOrderRes{Order: order, TotalPrice: order.TotalPrice, MutatedProducts: r.mutated}
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, e.Wrap(op, err)
	}
	if res == nil {
		return nil, e.Wrap(op, e.ErrImpossibleState)
	}

	span.SetAttributes(attribute.String("order.id", res.Order.ID), attribute.Int64("order.total", res.TotalPrice))
	o.invalidateProducts(ctx, productIDs(res.MutatedProducts))

	return res, nil
}

// UpdateOrderStatus безусловно выставляет статус и дописывает историю.
// Переход в FAILED запускает возврат товаров после фиксации статуса.
func (o *OrderUseCase) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, additionalData map[string]any) (*domain.Order, error) {
	return o.updateStatus(ctx, id, status, additionalData, nil)
}

// CancelOrder отменяет заказ покупателем, если он ещё не оплачен и не завершён.
func (o *OrderUseCase) CancelOrder(ctx context.Context, id string) error {
	const op = "OrderUseCase.CancelOrder"

	guard := func(order *domain.Order) error {
		switch order.Status {
		case domain.OrderStatusFinished, domain.OrderStatusFailed:
			return e.ErrOrderAlreadyFinished
		case domain.OrderStatusPaid:
			return e.ErrOrderAlreadyPaid
		}
		return nil
	}

	_, err := o.updateStatus(ctx, id, domain.OrderStatusFailed, map[string]any{"reason": domain.ReasonCanceledByUser}, guard)
	if err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// updateStatus применяет статус в транзакции. guard проверяется на заказе, прочитанном внутри неё.
func (o *OrderUseCase) updateStatus(
	ctx context.Context,
	id string,
	status domain.OrderStatus,
	additionalData map[string]any,
	guard func(order *domain.Order) error,
) (*domain.Order, error) {
	const op = "OrderUseCase.UpdateOrderStatus"

	ctx, span := o.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", status.String()),
	))
	defer span.End()

	status, err := domain.ParseStatus(status.String())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var order *domain.Order
	err = o.tm.Do(ctx, func(ctx context.Context) error {
		current, err := o.orderRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		current.ApplyStatus(status, o.now(), additionalData)
		if err := o.orderRepo.UpdateStatus(ctx, current); err != nil {
			return err
		}

		if err := o.addEvent(ctx, EventOrderStatusChanged, current.ID, OrderStatusChangedPayload{
			Status:         status,
			AdditionalData: additionalData,
		}); err != nil {
			return err
		}

		order = current
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, e.Wrap(op, err)
	}

	if status == domain.OrderStatusFailed && !order.IsItemsReturned {
		o.ReturnItems(ctx, id)

		fresh, err := o.orderRepo.GetByID(ctx, id)
		if err != nil {
			o.logger.Ctx(ctx).Warnf("failed to reload order %s after items return: %v", id, e.Wrap(op, err))
		} else {
			order = fresh
		}
	}

	return order, nil
}

// SetInvoice привязывает внешний платёжный счёт к заказу.
func (o *OrderUseCase) SetInvoice(ctx context.Context, id string, invoiceID string) error {
	const op = "OrderUseCase.SetInvoice"

	if strings.TrimSpace(invoiceID) == "" {
		return e.Wrap(op, e.ErrInvalidRequest)
	}

	if err := o.orderRepo.SetInvoice(ctx, id, invoiceID); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// GetOrder возвращает nil, nil, если заказа нет.
func (o *OrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	const op = "OrderUseCase.GetOrder"

	order, err := o.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrOrderNotFound) {
			return nil, nil
		}
		return nil, e.Wrap(op, err)
	}

	return order, nil
}

// GetOrderByInvoiceID возвращает nil, nil, если заказа с таким счётом нет.
func (o *OrderUseCase) GetOrderByInvoiceID(ctx context.Context, invoiceID string) (*domain.Order, error) {
	const op = "OrderUseCase.GetOrderByInvoiceID"

	order, err := o.orderRepo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, e.ErrOrderNotFound) {
			return nil, nil
		}
		return nil, e.Wrap(op, err)
	}

	return order, nil
}

// Find возвращает страницу заказов и общее количество подходящих под фильтр.
func (o *OrderUseCase) Find(ctx context.Context, req *FindOrdersReq) (*FindOrdersRes, error) {
	const op = "OrderUseCase.Find"

	q := *req
	switch q.SortBy {
	case "":
		q.SortBy = SortByCreateDate
	case SortByCreateDate, SortByTotalPrice, SortByLastStatusUpdate:
	default:
		return nil, e.Wrap(op, e.ErrInvalidRequest)
	}

	if q.Limit == 0 {
		q.Limit = defaultFindLimit
	}
	q.Limit = min(q.Limit, maxFindLimit)

	for _, st := range q.Statuses {
		if _, err := domain.ParseStatus(st.String()); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	orders, total, err := o.orderRepo.Find(ctx, &q)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &FindOrdersRes{Orders: orders, Total: total}, nil
}

// HandlePaymentNotification архивирует уведомление провайдера и переводит заказ по его статусу.
// Переходы, недопустимые для текущего статуса заказа, игнорируются.
func (o *OrderUseCase) HandlePaymentNotification(ctx context.Context, req *PaymentNotificationReq) error {
	const op = "OrderUseCase.HandlePaymentNotification"

	if strings.TrimSpace(req.InvoiceID) == "" {
		return e.Wrap(op, e.ErrInvalidRequest)
	}
	log := o.logger.With("invoice_id", req.InvoiceID, "payment_status", req.Status).Ctx(ctx)

	archiveKey, err := o.archiveRepo.Put(ctx, &ArchivePaymentReq{
		InvoiceID:  req.InvoiceID,
		Status:     req.Status,
		Payload:    req.Payload,
		ReceivedAt: o.now(),
	})
	if err != nil {
		log.Warnf("failed to archive payment notification: %v", e.Wrap(op, err))
	}

	order, err := o.orderRepo.GetByInvoiceID(ctx, req.InvoiceID)
	if err != nil {
		return e.Wrap(op, err)
	}

	var target domain.OrderStatus
	switch strings.ToLower(req.Status) {
	case PaymentStatusSuccess:
		target = domain.OrderStatusPaid
	case PaymentStatusFailure, PaymentStatusExpired:
		target = domain.OrderStatusFailed
	default:
		log.Debugf("payment status does not change order %s", order.ID)
		return nil
	}

	if order.Status == target {
		return nil
	}
	if !domain.CanTransition(order.Status, target) {
		log.Warnf("ignoring transition of order %s from %s to %s", order.ID, order.Status, target)
		return nil
	}

	data := map[string]any{"invoice_id": req.InvoiceID, "payment_status": req.Status}
	if archiveKey != "" {
		data["payment_payload_key"] = archiveKey
	}

	if _, err := o.UpdateOrderStatus(ctx, order.ID, target, data); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func (o *OrderUseCase) validateCreateOrder(req *CreateOrderReq) (domain.Currency, error) {
	if len(req.ItemsData) == 0 {
		return "", e.ErrNoItems
	}

	for _, item := range req.ItemsData {
		if item.Qty < 1 {
			return "", e.ErrInvalidQty
		}
		if strings.TrimSpace(item.ProductID) == "" {
			return "", e.ErrInvalidRequest
		}
	}

	if req.Currency == "" {
		return o.defaultCurrency, nil
	}

	return domain.ParseCurrency(req.Currency)
}

// resolveRates берёт снимок из запроса или из хранилища курсов.
// Если снимка нет, пересчёт возможен только внутри базовой валюты.
func (o *OrderUseCase) resolveRates(ctx context.Context, rates *domain.RateState) (*domain.RateState, error) {
	if rates != nil {
		return rates, nil
	}

	stored, err := o.ratesRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		o.logger.Ctx(ctx).Debugf("exchange rates are not stored, using identity rates for %s", o.defaultCurrency)
		return domain.IdentityRates(o.defaultCurrency), nil
	}

	return stored, nil
}

// loadProducts загружает товары одним запросом и индексирует их по id.
func (o *OrderUseCase) loadProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	products, err := o.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	return byID, nil
}

// addEvent пишет событие заказа в outbox в текущей транзакции.
func (o *OrderUseCase) addEvent(ctx context.Context, eventType string, orderID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return e.Wrap(eventType, err)
	}

	env := Envelope{
		EventID:    o.newID(),
		EventType:  eventType,
		OccurredAt: o.now(),
		OrderID:    orderID,
		Payload:    data,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return e.Wrap(eventType, err)
	}

	_, err = o.outboxRepo.Create(ctx, &OutboxEvent{
		EventID:     env.EventID,
		EventType:   eventType,
		AggregateID: orderID,
		Payload:     body,
		Status:      Pending,
		CreatedAt:   env.OccurredAt,
	})
	return err
}

// invalidateProducts удаляет из кэша данные товаров, остаток которых изменился.
func (o *OrderUseCase) invalidateProducts(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}

	if err := o.cacheRepo.DeleteProducts(ctx, ids); err != nil {
		o.logger.Ctx(ctx).Warnf("Failed to delete products from cache: %v", err)
	}
}

func lineProductIDs(lines []LineItemReq) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if !slices.Contains(ids, line.ProductID) {
			ids = append(ids, line.ProductID)
		}
	}

	return ids
}

func productIDs(products []*domain.Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	return ids
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
