package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

var orderColumns = []string{
	"id", "first_name", "last_name", "phone_number", "items_data", "delivery",
	"total_price", "currency", "status", "create_date", "status_history",
	"last_status_update_date", "is_items_returned", "invoice_id",
}

// OrderRepo реализует журнал заказов поверх PostgreSQL.
type OrderRepo struct {
	pool *pgxpool.Pool
	conv converter.OrderConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		conv: conv,
	}
}

func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	model, err := o.conv.ToModel(order)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query, args, err := psql.Insert("orders").
		Columns(orderColumns...).
		Values(
			model.ID, model.FirstName, model.LastName, model.PhoneNumber, model.ItemsData, model.Delivery,
			model.TotalPrice, model.Currency, model.Status, model.CreateDate, model.StatusHistory,
			model.LastStatusUpdateDate, model.IsItemsReturned, model.InvoiceID,
		).
		ToSql()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := conn(ctx, o.pool).Exec(ctx, query, args...); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (o *OrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return o.getOne(ctx, sq.Eq{"id": id})
}

func (o *OrderRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.Order, error) {
	return o.getOne(ctx, sq.Eq{"invoice_id": invoiceID})
}

func (o *OrderRepo) UpdateStatus(ctx context.Context, order *domain.Order) error {
	history, err := converter.MarshalStatusHistory(order.StatusHistory)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE orders
		SET status = $1, status_history = $2, last_status_update_date = $3
		WHERE id = $4
	`

	tag, err := conn(ctx, o.pool).Exec(ctx, query, order.Status.String(), history, order.LastStatusUpdateDate, order.ID)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
	}

	return nil
}

// SetItemsReturned выставляет флаг только с false на true.
func (o *OrderRepo) SetItemsReturned(ctx context.Context, id string) error {
	q := conn(ctx, o.pool)

	tag, err := q.Exec(ctx, `UPDATE orders SET is_items_returned = true WHERE id = $1 AND is_items_returned = false`, id)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
	}

	// Флаг уже выставлен параллельным возвратом
	return e.Wrap(whereami.WhereAmI(), e.ErrWriteConflict)
}

func (o *OrderRepo) SetInvoice(ctx context.Context, id string, invoiceID string) error {
	tag, err := conn(ctx, o.pool).Exec(ctx, `UPDATE orders SET invoice_id = $1 WHERE id = $2`, invoiceID, id)
	if err != nil {
		if postgresDuplicate(err) {
			return e.Wrap(whereami.WhereAmI(), e.ErrInvalidRequest)
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
	}

	return nil
}

// Find возвращает страницу заказов и общее число заказов под фильтром.
func (o *OrderRepo) Find(ctx context.Context, req *usecase.FindOrdersReq) ([]*domain.Order, int64, error) {
	where := findFilter(req)
	q := conn(ctx, o.pool)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}

	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}

	direction := " ASC"
	if req.SortDesc {
		direction = " DESC"
	}

	// SortBy уже проверен в usecase, в запрос попадает только имя колонки из белого списка
	query, args, err := psql.Select(orderColumns...).
		From("orders").
		Where(where).
		OrderBy(string(req.SortBy)+direction, "id"+direction).
		Limit(req.Limit).
		Offset(req.Skip).
		ToSql()
	if err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0, req.Limit)
	for rows.Next() {
		order, err := o.scan(rows)
		if err != nil {
			return nil, 0, e.Wrap(whereami.WhereAmI(), err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return orders, total, nil
}

func findFilter(req *usecase.FindOrdersReq) sq.And {
	where := sq.And{}

	if len(req.Statuses) > 0 {
		statuses := make([]string, 0, len(req.Statuses))
		for _, s := range req.Statuses {
			statuses = append(statuses, s.String())
		}
		where = append(where, sq.Eq{"status": statuses})
	}
	if req.PhoneNumber != "" {
		where = append(where, sq.Eq{"phone_number": req.PhoneNumber})
	}
	if req.CreatedFrom != nil {
		where = append(where, sq.GtOrEq{"create_date": *req.CreatedFrom})
	}
	if req.CreatedTo != nil {
		where = append(where, sq.Lt{"create_date": *req.CreatedTo})
	}

	return where
}

func (o *OrderRepo) getOne(ctx context.Context, pred sq.Eq) (*domain.Order, error) {
	query, args, err := psql.Select(orderColumns...).From("orders").Where(pred).ToSql()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	order, err := o.scan(conn(ctx, o.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return order, nil
}

func (o *OrderRepo) scan(row pgx.Row) (*domain.Order, error) {
	var model converter.OrderModel
	err := row.Scan(
		&model.ID, &model.FirstName, &model.LastName, &model.PhoneNumber, &model.ItemsData, &model.Delivery,
		&model.TotalPrice, &model.Currency, &model.Status, &model.CreateDate, &model.StatusHistory,
		&model.LastStatusUpdateDate, &model.IsItemsReturned, &model.InvoiceID,
	)
	if err != nil {
		return nil, err
	}

	return o.conv.ToEntity(&model)
}
