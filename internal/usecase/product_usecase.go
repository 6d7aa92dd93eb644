package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/google/uuid"
)

const cacheRefillTimeout = 500 * time.Millisecond

// ProductUseCase реализует заведение товаров и чтение каталога через кэш.
type ProductUseCase struct {
	tm          TxManager
	productRepo ProductRepository
	cacheRepo   CacheRepository
	logger      logger.Logger
	now         func() time.Time
	newID       func() string
}

func NewProductUC(
	tm TxManager,
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		tm:          tm,
		productRepo: productRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// CreateProduct заводит товар с начальным набором вариантов.
// Вариантам без SKU присваивается сгенерированный.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	currency, err := p.validateProduct(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	product := &domain.Product{
		ID:        p.newID(),
		PublicID:  strings.TrimSpace(req.PublicID),
		Title:     strings.TrimSpace(req.Title),
		Price:     req.Price,
		Currency:  currency,
		Items:     make([]domain.ItemVariant, 0, len(req.Items)),
		Active:    true,
		CreatedAt: p.now(),
	}
	if product.PublicID == "" {
		product.PublicID = product.ID
	}

	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			sku = p.newID()
		}
		if seen[sku] {
			return nil, e.Wrap(op, e.ErrInvalidRequest)
		}
		seen[sku] = true

		product.Items = append(product.Items, domain.ItemVariant{SKU: sku, Attributes: item.Attributes.Clone()})
	}

	var created *domain.Product
	err = p.tm.Do(ctx, func(ctx context.Context) error {
		created, err = p.productRepo.Create(ctx, product)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return created, nil
}

// GetProduct возвращает товар вместе с доступными вариантами.
func (p *ProductUseCase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return product, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	if len(req.IDs) == 0 {
		return nil, e.Wrap(op, e.ErrNoProducts)
	}

	// Поиск продуктов в кэше
	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, req.IDs)
	var nonCacheable []string
	if err != nil {
		nonCacheable = append(nonCacheable, req.IDs...)
	} else {
		for _, id := range req.IDs {
			if _, ok := cacheProductsMap[id]; !ok {
				nonCacheable = append(nonCacheable, id)
			}
		}
	}

	// Получение продуктов из БД
	var productsInfoFromDB []ProductInfo
	if len(nonCacheable) > 0 {
		productsInfoFromDB, err = p.productRepo.GetProductsInfo(ctx, nonCacheable)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		if len(productsInfoFromDB) > 0 {
			// Фоновое добавление продуктов в кэш
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), cacheRefillTimeout)
				defer cancel()

				if err := p.cacheRepo.SetProducts(bgCtx, productsInfoFromDB); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	dbProductsMap := make(map[string]ProductInfo, len(productsInfoFromDB))
	for _, productInfo := range productsInfoFromDB {
		dbProductsMap[productInfo.ID] = productInfo
	}

	// Формирование результата
	result := make([]ProductInfo, 0, len(req.IDs))
	notFoundProducts := make([]string, 0)
	for _, id := range req.IDs {
		if pr, ok := cacheProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return NewGetProductsRes(result, notFoundProducts), nil
}

// validateProduct проверяет корректность входных данных запроса на добавление продукта.
func (p *ProductUseCase) validateProduct(req *CreateProductReq) (domain.Currency, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", e.ErrProductNameRequired
	}

	if req.Price <= 0 {
		return "", e.ErrPriceMustBePositive
	}

	if req.Currency == "" {
		return domain.DefaultCurrency, nil
	}

	return domain.ParseCurrency(req.Currency)
}
