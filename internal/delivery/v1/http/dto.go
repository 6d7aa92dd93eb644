package http

import (
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/shopspring/decimal"
)

type lineItemRequest struct {
	ProductID string              `json:"product_id"`
	Qty       int                 `json:"qty"`
	Criteria  map[string][]string `json:"criteria,omitempty"`
	Sku       string              `json:"sku,omitempty"`
}

type deliveryDTO struct {
	WhereToDeliver string            `json:"where_to_deliver"`
	Data           map[string]string `json:"data,omitempty"`
}

type createOrderRequest struct {
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	PhoneNumber string            `json:"phone_number"`
	Currency    string            `json:"currency"`
	Delivery    deliveryDTO       `json:"delivery"`
	Items       []lineItemRequest `json:"items"`
}

func (r *createOrderRequest) toUseCase() *usecase.CreateOrderReq {
	items := make([]usecase.LineItemReq, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, usecase.LineItemReq{
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Criteria:  domain.Attributes(it.Criteria),
			Sku:       it.Sku,
		})
	}

	return &usecase.CreateOrderReq{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Currency:    r.Currency,
		Delivery:    domain.Delivery{WhereToDeliver: r.Delivery.WhereToDeliver, Data: r.Delivery.Data},
		ItemsData:   items,
	}
}

type updateStatusRequest struct {
	Status         string         `json:"status"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

type setInvoiceRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// paymentWebhookRequest: поля уведомления monobank, которые нужны для смены статуса.
type paymentWebhookRequest struct {
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`
}

type variantDTO struct {
	SKU        string              `json:"sku"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

type orderItemResponse struct {
	ProductID  string              `json:"product_id"`
	Qty        int                 `json:"qty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
	Sku        string              `json:"sku,omitempty"`
	Reserved   []variantDTO        `json:"reserved"`
}

type statusHistoryResponse struct {
	Status         string         `json:"status"`
	Date           time.Time      `json:"date"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

type orderResponse struct {
	ID                   string                  `json:"id"`
	FirstName            string                  `json:"first_name"`
	LastName             string                  `json:"last_name"`
	PhoneNumber          string                  `json:"phone_number"`
	Items                []orderItemResponse     `json:"items"`
	Delivery             deliveryDTO             `json:"delivery"`
	TotalPrice           int64                   `json:"total_price"`
	Currency             string                  `json:"currency"`
	Status               string                  `json:"status"`
	CreateDate           time.Time               `json:"create_date"`
	StatusHistory        []statusHistoryResponse `json:"status_history"`
	LastStatusUpdateDate time.Time               `json:"last_status_update_date"`
	IsItemsReturned      bool                    `json:"is_items_returned"`
	InvoiceID            *string                 `json:"invoice_id,omitempty"`
}

type findOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
}

func newOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.ItemsData))
	for _, it := range o.ItemsData {
		items = append(items, orderItemResponse{
			ProductID:  it.ProductID,
			Qty:        it.Qty,
			Attributes: it.Attributes,
			Sku:        it.SKU,
			Reserved:   newVariantsDTO(it.Reserved),
		})
	}

	history := make([]statusHistoryResponse, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, statusHistoryResponse{
			Status:         h.Status.String(),
			Date:           h.Date,
			AdditionalData: h.AdditionalData,
		})
	}

	return orderResponse{
		ID:                   o.ID,
		FirstName:            o.FirstName,
		LastName:             o.LastName,
		PhoneNumber:          o.PhoneNumber,
		Items:                items,
		Delivery:             deliveryDTO{WhereToDeliver: o.Delivery.WhereToDeliver, Data: o.Delivery.Data},
		TotalPrice:           o.TotalPrice,
		Currency:             o.Currency.String(),
		Status:               o.Status.String(),
		CreateDate:           o.CreateDate,
		StatusHistory:        history,
		LastStatusUpdateDate: o.LastStatusUpdateDate,
		IsItemsReturned:      o.IsItemsReturned,
		InvoiceID:            o.InvoiceID,
	}
}

func newFindOrdersResponse(res *usecase.FindOrdersRes) findOrdersResponse {
	orders := make([]orderResponse, 0, len(res.Orders))
	for _, o := range res.Orders {
		orders = append(orders, newOrderResponse(o))
	}
	return findOrdersResponse{Orders: orders, Total: res.Total}
}

// createProductRequest: цена передаётся строкой в основных единицах, например "599.99".
type createProductRequest struct {
	PublicID string       `json:"public_id"`
	Title    string       `json:"title"`
	Price    string       `json:"price"`
	Currency string       `json:"currency"`
	Items    []variantDTO `json:"items"`
}

type productResponse struct {
	ID        string       `json:"id"`
	PublicID  string       `json:"public_id"`
	Title     string       `json:"title"`
	Price     int64        `json:"price"`
	Currency  string       `json:"currency"`
	Items     []variantDTO `json:"items"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

func newProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		PublicID:  p.PublicID,
		Title:     p.Title,
		Price:     p.Price,
		Currency:  p.Currency.String(),
		Items:     newVariantsDTO(p.Items),
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

type productInfoResponse struct {
	ID       string              `json:"id"`
	PublicID string              `json:"public_id"`
	Title    string              `json:"title"`
	Price    int64               `json:"price"`
	Currency string              `json:"currency"`
	Quantity int                 `json:"quantity"`
	Attrs    map[string][]string `json:"attrs"`
}

type productsInfoResponse struct {
	Products []productInfoResponse `json:"products"`
	NotFound []string              `json:"not_found"`
}

func newProductsInfoResponse(res *usecase.GetProductsRes) productsInfoResponse {
	products := make([]productInfoResponse, 0, len(res.Products))
	for _, p := range res.Products {
		products = append(products, productInfoResponse{
			ID:       p.ID,
			PublicID: p.PublicID,
			Title:    p.Title,
			Price:    p.Price,
			Currency: p.Currency.String(),
			Quantity: p.Quantity,
			Attrs:    p.Attrs,
		})
	}
	return productsInfoResponse{Products: products, NotFound: res.NotFoundProducts}
}

func newVariantsDTO(items []domain.ItemVariant) []variantDTO {
	out := make([]variantDTO, 0, len(items))
	for _, v := range items {
		out = append(out, variantDTO{SKU: v.SKU, Attributes: v.Attributes})
	}
	return out
}

type ratesDTO struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	UpdatedAt *time.Time                 `json:"updated_at,omitempty"`
}

func newRatesDTO(r *domain.RateState) ratesDTO {
	rates := make(map[string]decimal.Decimal, len(r.Rates))
	for c, v := range r.Rates {
		rates[c.String()] = v
	}

	dto := ratesDTO{Base: r.Base.String(), Rates: rates}
	if !r.UpdatedAt.IsZero() {
		dto.UpdatedAt = &r.UpdatedAt
	}
	return dto
}
