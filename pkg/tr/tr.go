package tr

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/jitter"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

type txKey struct{}

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}

// WithTx кладёт транзакцию в контекст.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Manager: единица работы: открывает транзакцию, выполняет замыкание и
// фиксирует либо откатывает результат целиком.
type Manager struct {
	db         transaction.Transactional
	opts       pgx.TxOptions
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     logger.Logger
}

type Option func(*Manager)

// WithRetries включает повтор транзакции при конфликте записи.
func WithRetries(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(m *Manager) {
		m.maxRetries = maxRetries
		m.baseDelay = baseDelay
		m.maxDelay = maxDelay
	}
}

func WithTxOptions(opts pgx.TxOptions) Option {
	return func(m *Manager) {
		m.opts = opts
	}
}

// NewManager создаёт менеджер транзакций. По умолчанию используется
// RepeatableRead: параллельная запись в ту же строку завершается ошибкой 40001.
func NewManager(db transaction.Transactional, logger logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		db:        db,
		opts:      pgx.TxOptions{IsoLevel: pgx.RepeatableRead},
		baseDelay: 50 * time.Millisecond,
		maxDelay:  time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Do выполняет fn в транзакции. Вложенный вызов присоединяется к внешней транзакции.
// Конфликты записи возвращаются как e.ErrWriteConflict.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := TxFromCtx(ctx); err == nil {
		return fn(ctx)
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = m.do(ctx, fn)
		if err == nil || !errors.Is(err, e.ErrWriteConflict) || attempt >= m.maxRetries {
			return err
		}

		delay := jitter.ExponentialBackoff(m.baseDelay, m.maxDelay, attempt, jitter.DefaultJitter)
		m.logger.Warnf("transaction conflict, retry %d/%d in %s", attempt+1, m.maxRetries, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		}
	}
}

func (m *Manager) do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "tr.Manager.Do"

	ctx, tx, err := transaction.NewTransaction(ctx, m.opts, m.db)
	if err != nil {
		return e.Wrap(op, Classify(err))
	}
	defer func() {
		if err != nil && tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				m.logger.Warnf("%s: rollback failed: %v", op, rbErr)
			}
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return e.Wrap(op, e.ErrTransactionNotFound)
	}

	if err = fn(WithTx(ctx, pgxTx)); err != nil {
		return Classify(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, Classify(err))
	}

	return nil
}

// Classify превращает ошибки сериализации PostgreSQL в e.ErrWriteConflict,
// сохраняя исходную ошибку в цепочке.
func Classify(err error) error {
	if err == nil || errors.Is(err, e.ErrWriteConflict) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return errors.Join(e.ErrWriteConflict, err)
		}
	}

	return err
}
