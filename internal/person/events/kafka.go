package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"person-registry/internal/person/metrics"
	"person-registry/pkg/platform/circuit"
)

// ErrPublisherUnavailable is returned while the breaker is rejecting publishes.
var ErrPublisherUnavailable = errors.New("event publisher unavailable")

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	CreateTopic bool
}

// KafkaPublisher produces events as JSON records keyed by person id or
// attribute name. Consecutive failures open a circuit breaker; while open,
// events are dropped and counted instead of blocking requests on the broker.
type KafkaPublisher struct {
	client  producer
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewKafkaPublisher connects to the brokers and, when asked, makes sure the
// topic exists.
func NewKafkaPublisher(ctx context.Context, cfg KafkaConfig, logger *slog.Logger, m *metrics.Metrics) (*KafkaPublisher, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProduceRequestTimeout(5*time.Second),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	if cfg.CreateTopic {
		if err := ensureTopic(ctx, kadm.NewClient(cl), cfg.Topic); err != nil {
			cl.Close()
			return nil, err
		}
	}
	return newKafkaPublisher(cl, cfg.Topic, logger, m), nil
}

func newKafkaPublisher(p producer, topic string, logger *slog.Logger, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		client:  p,
		topic:   topic,
		breaker: circuit.New("kafka-events", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)),
		logger:  logger,
		metrics: m,
	}
}

func ensureTopic(ctx context.Context, adm *kadm.Client, topic string) error {
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncrementEventDropped()
		}
		return ErrPublisherUnavailable
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   recordKey(e),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "request_id", Value: []byte(e.RequestID)},
		},
		Timestamp: e.OccurredAt,
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.recordFailure(ctx)
		p.incrementPublished(e.Type, "error")
		return fmt.Errorf("produce %s: %w", e.Type, err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "event publisher recovered", "breaker", p.breaker.Name())
		p.setBreakerGauge(false)
	}
	p.incrementPublished(e.Type, "ok")
	return nil
}

func (p *KafkaPublisher) recordFailure(ctx context.Context) {
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.WarnContext(ctx, "event publisher circuit opened", "breaker", p.breaker.Name())
		p.setBreakerGauge(true)
	}
}

func (p *KafkaPublisher) incrementPublished(t Type, result string) {
	if p.metrics != nil {
		p.metrics.IncrementEventPublished(string(t), result)
	}
}

func (p *KafkaPublisher) setBreakerGauge(open bool) {
	if p.metrics != nil {
		p.metrics.SetEventBreakerOpen(open)
	}
}

// Close flushes and closes the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

func recordKey(e Event) []byte {
	if e.PersonID != 0 {
		return []byte(strconv.FormatInt(e.PersonID, 10))
	}
	return []byte(e.Attribute)
}
