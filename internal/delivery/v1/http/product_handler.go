package http

import (
	"net/http"
	"strings"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// createProduct
//
//	@Summary		Заведение товара
//	@Description	Создаёт товар с начальным набором вариантов. Вариантам без SKU он генерируется
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			product	body		createProductRequest	true	"Товар"
//	@Success		201		{object}	productResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/products [post]
func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		p.fail(w, r, err)
		return
	}

	price, err := parsePriceToMinor(req.Price)
	if err != nil {
		p.fail(w, r, err)
		return
	}

	items := make([]usecase.VariantReq, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.VariantReq{SKU: it.SKU, Attributes: domain.Attributes(it.Attributes)})
	}

	product, err := p.productUsecase.CreateProduct(r.Context(), &usecase.CreateProductReq{
		PublicID: req.PublicID,
		Title:    req.Title,
		Price:    price,
		Currency: req.Currency,
		Items:    items,
	})
	if err != nil {
		p.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, newProductResponse(product))
}

// getProduct
//
//	@Summary	Товар с доступными вариантами
//	@Tags		products
//	@Produce	json
//	@Param		id	path		string	true	"ID товара"
//	@Success	200	{object}	productResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/products/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := p.productUsecase.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newProductResponse(product))
}

// getProductsInfo
//
//	@Summary	Витринная информация о товарах
//	@Tags		products
//	@Produce	json
//	@Param		ids	query		string	true	"ID товаров через запятую"
//	@Success	200	{object}	productsInfoResponse
//	@Failure	400	{object}	ErrorResponse
//	@Router		/products [get]
func (p *ProductHandler) getProductsInfo(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	res, err := p.productUsecase.GetProductsInfo(r.Context(), usecase.NewGetProductsReq(ids))
	if err != nil {
		p.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newProductsInfoResponse(res))
}

func (p *ProductHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		p.logger.Ctx(r.Context()).Errorf(err, "%s %s", r.Method, r.URL.Path)
	} else {
		p.logger.Ctx(r.Context()).Warnf("%d %s %s: %v", code, r.Method, r.URL.Path, err)
	}

	WriteError(w, err)
}
