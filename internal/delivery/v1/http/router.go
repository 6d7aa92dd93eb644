package http

import (
	"net/http"

	_ "github.com/DRSN-tech/shop-backend/docs" // Регистрация swagger-спецификации
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "shop-backend"

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(allowOrigins []string, orderUC usecase.OrderUC, prUC usecase.ProductUC, ratesUC usecase.RatesUC) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Recoverer)
	r.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerOrderRoutes(v1, NewOrderHandler(orderUC, r.logger))
		registerProductRoutes(v1, NewProductHandler(prUC, r.logger))
		registerRatesRoutes(v1, NewRatesHandler(ratesUC, r.logger))
	})
}

// Handler оборачивает маршрутизатор в otelhttp: у каждого запроса свой span,
// trace_id которого попадает в логи.
func (r *Router) Handler() http.Handler {
	return otelhttp.NewHandler(r.router, serviceName)
}

func registerOrderRoutes(router chi.Router, h *OrderHandler) {
	router.Route("/orders", func(or chi.Router) {
		or.Post("/", h.createOrder)
		or.Get("/", h.findOrders)
		or.Post("/webhook/payment", h.paymentWebhook)
		or.Get("/by-invoice/{invoiceID}", h.getOrderByInvoice)
		or.Get("/{id}", h.getOrder)
		or.Patch("/{id}/status", h.updateStatus)
		or.Post("/{id}/cancel", h.cancelOrder)
		or.Put("/{id}/invoice", h.setInvoice)
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Post("/", h.createProduct)
		pr.Get("/", h.getProductsInfo)
		pr.Get("/{id}", h.getProduct)
	})
}

func registerRatesRoutes(router chi.Router, h *RatesHandler) {
	router.Route("/rates", func(rr chi.Router) {
		rr.Get("/", h.getRates)
		rr.Put("/", h.setRates)
	})
}
