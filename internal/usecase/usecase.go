package usecase

import (
	"context"

	"github.com/DRSN-tech/shop-backend/internal/domain"
)

type OrderUC interface {
	CreateOrder(ctx context.Context, req *CreateOrderReq) (*CreateOrderRes, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, additionalData map[string]any) (*domain.Order, error)
	CancelOrder(ctx context.Context, id string) error
	ReturnItems(ctx context.Context, id string)
	SetInvoice(ctx context.Context, id string, invoiceID string) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByInvoiceID(ctx context.Context, invoiceID string) (*domain.Order, error)
	Find(ctx context.Context, req *FindOrdersReq) (*FindOrdersRes, error)
	HandlePaymentNotification(ctx context.Context, req *PaymentNotificationReq) error
}

type ProductUC interface {
	CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}

type RatesUC interface {
	GetRates(ctx context.Context) (*domain.RateState, error)
	SetRates(ctx context.Context, req *SetRatesReq) (*domain.RateState, error)
}
