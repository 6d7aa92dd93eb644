package kafka

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	writeBatchSize    = 10
	writeBatchTimeout = 500 * time.Millisecond
	writeTimeout      = 10 * time.Second
)

// Producer публикует события заказов. Партиция выбирается хэшем ключа (id заказа),
// поэтому события одного заказа читаются в порядке записи.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchSize:    writeBatchSize,
			BatchTimeout: writeBatchTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger,
		cfg:    cfg,
	}
}

// WriteRawMessage синхронно пишет сообщение. Ошибка означает, что брокер запись не подтвердил
// и событие нужно вернуть в очередь outbox.
func (p *Producer) WriteRawMessage(ctx context.Context, req *usecase.WriteRawMessageReq) error {
	msg := kafka.Message{
		Key:     []byte(req.Key),
		Value:   req.Payload,
		Headers: messageHeaders(ctx, req.Headers),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Ctx(ctx).Warnf("kafka write failed, key=%s topic=%s: %v", req.Key, p.cfg.Topic, err)
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// EnsureTopic создаёт топик событий, если его ещё нет.
func (p *Producer) EnsureTopic(timeout time.Duration) error {
	if len(p.cfg.Brokers) == 0 {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("no kafka brokers configured"))
	}

	conn, err := kafka.DialContext(context.Background(), p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	if partitions, err := conn.ReadPartitions(p.cfg.Topic); err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		p.logger.Infof("kafka topic %s created with %d partitions", p.cfg.Topic, p.cfg.Partitions)
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close(context.Context) error {
	return p.writer.Close()
}

// messageHeaders переносит заголовки события и контекст трассировки в заголовки Kafka.
// Порядок ключей стабильный.
func messageHeaders(ctx context.Context, headers map[string]string) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	all := make(map[string]string, len(headers)+len(carrier))
	maps.Copy(all, carrier)
	maps.Copy(all, headers)

	out := make([]kafka.Header, 0, len(all))
	for _, k := range slices.Sorted(maps.Keys(all)) {
		if all[k] == "" {
			continue
		}
		out = append(out, kafka.Header{Key: k, Value: []byte(all[k])})
	}
	return out
}
