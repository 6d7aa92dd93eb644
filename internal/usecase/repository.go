package usecase

import (
	"context"

	"github.com/DRSN-tech/shop-backend/internal/domain"
)

// ProductRepository: хранилище товаров и их вариантов.
type ProductRepository interface {
	// GetByIDs загружает товары одним запросом. Отсутствующие id просто не попадают в результат.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// SaveItems сохраняет список вариантов, если версия товара не изменилась.
	// При расхождении версии возвращает e.ErrWriteConflict, при успехе увеличивает product.Version.
	SaveItems(ctx context.Context, product *domain.Product) error
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductsInfo(ctx context.Context, ids []string) ([]ProductInfo, error)
}

// OrderRepository: журнал заказов.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	// GetByID возвращает e.ErrOrderNotFound, если заказа нет.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.Order, error)
	// UpdateStatus сохраняет status, statusHistory и lastStatusUpdateDate заказа.
	UpdateStatus(ctx context.Context, order *domain.Order) error
	// SetItemsReturned выставляет флаг возврата, только если он ещё не выставлен.
	SetItemsReturned(ctx context.Context, id string) error
	SetInvoice(ctx context.Context, id string, invoiceID string) error
	Find(ctx context.Context, req *FindOrdersReq) ([]*domain.Order, int64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []string) error
}

// RatesRepository хранит последний снимок курсов валют.
type RatesRepository interface {
	// Get возвращает nil, nil, если снимок ещё не сохранён.
	Get(ctx context.Context) (*domain.RateState, error)
	Set(ctx context.Context, rates *domain.RateState) error
}

// PaymentArchiveRepository сохраняет сырые уведомления платёжного провайдера.
type PaymentArchiveRepository interface {
	Put(ctx context.Context, req *ArchivePaymentReq) (string, error)
}

// TxManager выполняет fn как единицу работы: всё или ничего.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
