package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/jitter"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	listenWaitTimeout = 30 * time.Second
	reconnectDelay    = 2 * time.Second
)

// OutboxWorker переносит события из outbox_events в Kafka.
// Разбор очереди запускается при старте, по NOTIFY и по таймеру опроса.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	channel   string
	batchSize int
	poll      time.Duration
	dbConnStr string

	tracer trace.Tracer
	notify chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dbConnStr string,
	channel string,
	batchSize int,
	poll time.Duration,
) *OutboxWorker {
	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		channel:   channel,
		batchSize: batchSize,
		poll:      poll,
		dbConnStr: dbConnStr,
		tracer:    otel.Tracer("github.com/DRSN-tech/shop-backend/internal/infrastructure/kafka"),
		notify:    make(chan struct{}, 1),
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	// Запускаем слушатель уведомлений
	go func() {
		defer w.wg.Done()
		w.listenOutboxNotifications(ctx)
	}()
}

// Stop останавливает worker и ждёт завершения текущей пачки.
func (w *OutboxWorker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *OutboxWorker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Outbox worker stopped")
			return
		case <-w.notify:
			w.drain(ctx)
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	var conn *pgx.Conn

	connect := func() error {
		var err error
		conn, err = pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err = conn.Exec(ctx, "LISTEN "+w.channel); err != nil {
			_ = conn.Close(ctx)
			conn = nil
			return e.Wrap("failed to LISTEN", err)
		}

		w.logger.Infof("Subscribed to '%s' channel", w.channel)
		return nil
	}

	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for ctx.Err() == nil {
		if conn == nil {
			if err := connect(); err != nil {
				// Без LISTEN события всё равно разбираются по таймеру
				w.logger.Warnf("Listen connect failed: %v", err)
				sleep(ctx, jitter.Duration(reconnectDelay, 0.2))
				continue
			}
		}

		waitCtx, cancel := context.WithTimeout(ctx, listenWaitTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
			_ = conn.Close(ctx)
			conn = nil
			continue
		}

		if notif != nil && notif.Channel == w.channel {
			w.logger.Debugf("Received outbox notification")
			w.wake()
		}
	}
}

// wake не блокируется: одного ожидающего сигнала достаточно для разбора всей очереди.
func (w *OutboxWorker) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// processBatch отправляет одну пачку событий. hasMore = false, если пачка неполная
// или хотя бы одно событие не ушло: повтор будет на следующем тике.
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	// Заказы, у которых событие не ушло: их следующие события тоже откладываются
	blocked := make(map[string]struct{})
	for _, event := range events {
		if _, ok := blocked[event.AggregateID]; ok {
			w.requeue(ctx, event)
			continue
		}

		if err := w.processEvent(ctx, event); err != nil {
			blocked[event.AggregateID] = struct{}{}
			w.logger.With("event_id", event.EventID, "order_id", event.AggregateID).Warnf("send failed: %v", err)
			w.requeue(ctx, event)
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	return len(blocked) == 0 && len(events) == w.batchSize, nil
}

func (w *OutboxWorker) requeue(ctx context.Context, event *usecase.OutboxEvent) {
	if err := w.repo.MarkAsPending(ctx, event.ID); err != nil {
		w.logger.Warnf("mark pending failed, event_id=%s: %v", event.EventID, err)
	}
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	ctx, span := w.tracer.Start(ctx, "OutboxWorker.publish", trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.type", event.EventType),
			attribute.String("order.id", event.AggregateID),
		))
	defer span.End()

	if err := w.producer.WriteRawMessage(ctx, usecase.NewOutboxMessageReq(event)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka write failed")
		if isRetryableError(err) {
			return e.Wrap("Temporary Kafka failure, will retry", err)
		}
		return e.Wrap("Permanent Kafka failure", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
