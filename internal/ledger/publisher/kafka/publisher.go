// Package kafka publishes committed ledger events to a Kafka topic. Records
// are JSON, keyed by account so one account's events stay ordered within a
// partition.
package kafka

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

	"tipjar/internal/ledger/models"
	"tipjar/pkg/platform/circuit"
)

var ErrCircuitOpen = errors.New("kafka publisher circuit open")

// producer is the subset of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type Publisher struct {
	client  producer
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithTimeout bounds each produce call.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// Config holds broker connection settings.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewClient builds a franz-go client that produces to cfg.Topic with
// all-replica acknowledgement.
func NewClient(cfg Config) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "tipjar"
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic unless it already exists.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		if errors.Is(err, kerr.TopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

func New(client producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		topic:   topic,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = circuit.New("kafka", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

func (p *Publisher) Name() string { return "kafka" }

// Publish produces one record and waits for the broker acknowledgement.
// While the breaker is open it fails fast with ErrCircuitOpen.
func (p *Publisher) Publish(ctx context.Context, event *models.Event) error {
	if !p.breaker.Allow() {
		return ErrCircuitOpen
	}
	record, err := p.record(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.ErrorContext(ctx, "kafka publisher circuit opened", "error", err, "topic", p.topic)
		}
		return fmt.Errorf("produce event %d: %w", event.Seq, err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "kafka publisher circuit closed", "topic", p.topic)
	}
	return nil
}

func (p *Publisher) record(event *models.Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(event.Account.String()),
		Value:     value,
		Timestamp: event.OccurredAt,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "topic", Value: []byte(event.Topic)},
			{Key: "seq", Value: []byte(strconv.FormatUint(event.Seq, 10))},
		},
	}, nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
