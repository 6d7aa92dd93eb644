package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	orderUsecase usecase.OrderUC
	logger       logger.Logger
}

func NewOrderHandler(orderUsecase usecase.OrderUC, logger logger.Logger) *OrderHandler {
	return &OrderHandler{orderUsecase: orderUsecase, logger: logger}
}

// createOrder
//
//	@Summary		Создание заказа
//	@Description	Резервирует конкретные варианты товаров и создаёт заказ в статусе CREATED
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			order	body		createOrderRequest	true	"Заказ"
//	@Success		201		{object}	orderResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		404		{object}	ErrorResponse	"Товар не найден"
//	@Failure		409		{object}	ErrorResponse	"Товар уже продан"
//	@Router			/orders [post]
func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.orderUsecase.CreateOrder(r.Context(), req.toUseCase())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, newOrderResponse(res.Order))
}

// findOrders
//
//	@Summary	Журнал заказов
//	@Tags		orders
//	@Produce	json
//	@Param		status			query		string	false	"Статусы через запятую"
//	@Param		phone			query		string	false	"Телефон покупателя"
//	@Param		created_from	query		string	false	"RFC3339, включительно"
//	@Param		created_to		query		string	false	"RFC3339, не включительно"
//	@Param		sort_by			query		string	false	"create_date | total_price | last_status_update_date"
//	@Param		sort_desc		query		bool	false	"Сортировка по убыванию"
//	@Param		skip			query		int		false	"Смещение"
//	@Param		limit			query		int		false	"Размер страницы, не больше 100"
//	@Success	200				{object}	findOrdersResponse
//	@Failure	400				{object}	ErrorResponse
//	@Router		/orders [get]
func (h *OrderHandler) findOrders(w http.ResponseWriter, r *http.Request) {
	req, err := parseFindOrdersQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.orderUsecase.Find(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newFindOrdersResponse(res))
}

// getOrder
//
//	@Summary	Заказ по id
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"ID заказа"
//	@Success	200	{object}	orderResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/orders/{id} [get]
func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderUsecase.GetOrder(r.Context(), chi.URLParam(r, "id"))
	h.writeOrder(w, r, order, err)
}

// getOrderByInvoice
//
//	@Summary	Заказ по id платёжного счёта
//	@Tags		orders
//	@Produce	json
//	@Param		invoiceID	path		string	true	"ID счёта"
//	@Success	200			{object}	orderResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/orders/by-invoice/{invoiceID} [get]
func (h *OrderHandler) getOrderByInvoice(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderUsecase.GetOrderByInvoiceID(r.Context(), chi.URLParam(r, "invoiceID"))
	h.writeOrder(w, r, order, err)
}

// updateStatus
//
//	@Summary		Смена статуса заказа
//	@Description	Переход в FAILED возвращает зарезервированные варианты на склад
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"ID заказа"
//	@Param			status	body		updateStatusRequest	true	"Новый статус"
//	@Success		200		{object}	orderResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/orders/{id}/status [patch]
func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.orderUsecase.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status), req.AdditionalData)
	h.writeOrder(w, r, order, err)
}

// cancelOrder
//
//	@Summary	Отмена заказа покупателем
//	@Tags		orders
//	@Param		id	path	string	true	"ID заказа"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse	"Заказ уже оплачен или завершён"
//	@Router		/orders/{id}/cancel [post]
func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderUsecase.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setInvoice
//
//	@Summary	Привязка платёжного счёта
//	@Tags		orders
//	@Accept		json
//	@Param		id		path	string				true	"ID заказа"
//	@Param		invoice	body	setInvoiceRequest	true	"Счёт"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/orders/{id}/invoice [put]
func (h *OrderHandler) setInvoice(w http.ResponseWriter, r *http.Request) {
	var req setInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.orderUsecase.SetInvoice(r.Context(), chi.URLParam(r, "id"), req.InvoiceID); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// paymentWebhook
//
//	@Summary		Уведомление платёжного провайдера
//	@Description	Сырое тело сохраняется в архив, статус счёта переводит заказ в PAID или FAILED
//	@Tags			orders
//	@Accept			json
//	@Param			notification	body	paymentWebhookRequest	true	"Уведомление"
//	@Success		200
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/orders/webhook/payment [post]
func (h *OrderHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Провайдер присылает больше полей, чем нам нужно, поэтому разбор нестрогий
	var req paymentWebhookRequest
	if err := jsonUnmarshal(payload, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	err = h.orderUsecase.HandlePaymentNotification(r.Context(), &usecase.PaymentNotificationReq{
		InvoiceID: req.InvoiceID,
		Status:    req.Status,
		Payload:   payload,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *OrderHandler) writeOrder(w http.ResponseWriter, r *http.Request, order *domain.Order, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if order == nil {
		h.fail(w, r, e.ErrOrderNotFound)
		return
	}

	WriteSuccess(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	log := h.logger.Ctx(r.Context())
	if code >= http.StatusInternalServerError {
		log.Errorf(err, "%s %s", r.Method, r.URL.Path)
	} else {
		log.Warnf("%d %s %s: %v", code, r.Method, r.URL.Path, err)
	}

	WriteError(w, err)
}

func parseFindOrdersQuery(r *http.Request) (*usecase.FindOrdersReq, error) {
	q := r.URL.Query()
	req := &usecase.FindOrdersReq{
		PhoneNumber: q.Get("phone"),
		SortBy:      usecase.OrderSortField(q.Get("sort_by")),
	}

	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Statuses = append(req.Statuses, domain.OrderStatus(s))
			}
		}
	}

	if raw := q.Get("sort_desc"); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, e.Wrap("sort_desc", e.ErrInvalidRequest)
		}
		req.SortDesc = desc
	}

	var err error
	if req.Skip, err = parseUintQuery(r, "skip"); err != nil {
		return nil, err
	}
	if req.Limit, err = parseUintQuery(r, "limit"); err != nil {
		return nil, err
	}
	if req.CreatedFrom, err = parseTimeQuery(r, "created_from"); err != nil {
		return nil, err
	}
	if req.CreatedTo, err = parseTimeQuery(r, "created_to"); err != nil {
		return nil, err
	}

	return req, nil
}
