package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const productColumns = `id, public_id, title, price, currency, items, version, active, created_at`

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := conn(ctx, p.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]*domain.Product, 0, len(ids))
	for rows.Next() {
		product, err := p.scan(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := p.scan(conn(ctx, p.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return product, nil
}

// SaveItems перезаписывает варианты товара при совпадении версии.
// Версия в БД и в product увеличивается на единицу.
func (p *ProductRepo) SaveItems(ctx context.Context, product *domain.Product) error {
	items, err := converter.MarshalVariants(product.Items)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE products
		SET items = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`

	tag, err := conn(ctx, p.pool).Exec(ctx, query, items, product.ID, product.Version)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrWriteConflict)
	}

	product.Version++

	return nil
}

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model, err := p.conv.ToModel(product)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO products (id, public_id, title, price, currency, items, version, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + productColumns

	created, err := p.scan(conn(ctx, p.pool).QueryRow(ctx, query,
		model.ID, model.PublicID, model.Title, model.Price, model.Currency,
		model.Items, model.Version, model.Active, model.CreatedAt,
	))
	if err != nil {
		if postgresDuplicate(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidRequest)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return created, nil
}

// GetProductsInfo возвращает витринную информацию об активных товарах.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []string) ([]usecase.ProductInfo, error) {
	products, err := p.GetByIDs(ctx, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make([]usecase.ProductInfo, 0, len(products))
	for _, product := range products {
		if !product.Active {
			continue
		}
		result = append(result, usecase.NewProductInfo(product))
	}

	return result, nil
}

func (p *ProductRepo) scan(row pgx.Row) (*domain.Product, error) {
	var model converter.ProductModel
	err := row.Scan(
		&model.ID, &model.PublicID, &model.Title, &model.Price, &model.Currency,
		&model.Items, &model.Version, &model.Active, &model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return p.conv.ToEntity(&model)
}
