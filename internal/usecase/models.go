package usecase

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ORDER USECASE

// LineItemReq: запрошенная позиция заказа. Если задан Sku, подбор идёт по нему, иначе по Criteria.
type LineItemReq struct {
	ProductID string
	Qty       int
	Criteria  domain.Attributes
	Sku       string
}

// CreateOrderReq: запрос на создание заказа.
type CreateOrderReq struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Currency    string
	Delivery    domain.Delivery
	ItemsData   []LineItemReq
	// Rates: снимок курсов. Если не задан, берётся из RatesRepository.
	Rates *domain.RateState
}

// CreateOrderRes: результат создания заказа.
type CreateOrderRes struct {
	Order           *domain.Order
	TotalPrice      int64
	MutatedProducts []*domain.Product
}

type OrderSortField string

const (
	SortByCreateDate       OrderSortField = "create_date"
	SortByTotalPrice       OrderSortField = "total_price"
	SortByLastStatusUpdate OrderSortField = "last_status_update_date"
)

// FindOrdersReq: фильтр, сортировка и пагинация журнала заказов.
type FindOrdersReq struct {
	Statuses    []domain.OrderStatus
	PhoneNumber string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      OrderSortField
	SortDesc    bool
	Skip        uint64
	Limit       uint64
}

type FindOrdersRes struct {
	Orders []*domain.Order
	Total  int64
}

// Статусы, которые присылает платёжный провайдер.
const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailure = "failure"
	PaymentStatusExpired = "expired"
)

// PaymentNotificationReq: уведомление платёжного провайдера по счёту.
type PaymentNotificationReq struct {
	InvoiceID string
	Status    string
	Payload   []byte // Сырое тело уведомления
}

// ArchivePaymentReq: запрос на сохранение уведомления в объектное хранилище.
type ArchivePaymentReq struct {
	InvoiceID  string
	Status     string
	Payload    []byte
	ReceivedAt time.Time
}

// RATES USECASE

// SetRatesReq: новый снимок курсов: цена одной единицы валюты в базовой валюте.
type SetRatesReq struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// PRODUCT USECASE

type VariantReq struct {
	SKU        string
	Attributes domain.Attributes
}

// CreateProductReq: запрос на добавление товара вместе с начальным остатком.
type CreateProductReq struct {
	PublicID string
	Title    string
	Price    int64
	Currency string
	Items    []VariantReq
}

// GetProductsReq запрос информации о продуктах по их идентификаторам.
type GetProductsReq struct {
	IDs []string
}

// GetProductsRes: ответ с данными запрошенных продуктов.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []string
}

// ProductInfo: DTO с информацией о продукте для внешнего использования.
type ProductInfo struct {
	ID       string
	PublicID string
	Title    string
	Price    int64
	Currency domain.Currency
	Quantity int
	Attrs    domain.Attributes
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "PENDING"
	Processing OutboxStatus = "PROCESSING"
	Processed  OutboxStatus = "PROCESSED"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderItemsReturned = "order.items_returned"
)

// Заголовки сообщений о событиях заказа.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// OutboxEvent: событие, записанное в одной транзакции с изменением заказа.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   string
	AggregateID string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Envelope: формат сообщения о событии заказа в Kafka.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	OrderID    string          `json:"order_id"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	Status     domain.OrderStatus `json:"status"`
	TotalPrice int64              `json:"total_price"`
	Currency   domain.Currency    `json:"currency"`
	Items      []EventItem        `json:"items"`
}

type EventItem struct {
	ProductID string   `json:"product_id"`
	Qty       int      `json:"qty"`
	SKUs      []string `json:"skus"`
}

type OrderStatusChangedPayload struct {
	Status         domain.OrderStatus `json:"status"`
	AdditionalData map[string]any     `json:"additional_data,omitempty"`
}

type OrderItemsReturnedPayload struct {
	Items []EventItem `json:"items"`
}

// INFRASTRUCTURE

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
	Headers map[string]string
}

// MAPPERS

// NewOutboxMessageReq готовит сообщение из события outbox с ключом по id заказа.
func NewOutboxMessageReq(event *OutboxEvent) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     event.AggregateID,
		Payload: event.Payload,
		Headers: map[string]string{
			HeaderEventID:   event.EventID,
			HeaderEventType: event.EventType,
		},
	}
}

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []string) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []string) *GetProductsReq {
	return &GetProductsReq{IDs: ids}
}

func NewProductInfo(p *domain.Product) ProductInfo {
	return ProductInfo{
		ID:       p.ID,
		PublicID: p.PublicID,
		Title:    p.Title,
		Price:    p.Price,
		Currency: p.Currency,
		Quantity: p.Quantity(),
		Attrs:    p.Attrs(),
	}
}

func newEventItems(items []domain.OrderItem) []EventItem {
	out := make([]EventItem, 0, len(items))
	for _, item := range items {
		skus := make([]string, 0, len(item.Reserved))
		for _, v := range item.Reserved {
			skus = append(skus, v.SKU)
		}
		out = append(out, EventItem{ProductID: item.ProductID, Qty: item.Qty, SKUs: skus})
	}

	return out
}
