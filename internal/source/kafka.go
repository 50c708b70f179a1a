package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/IBM/sarama"

	"github.com/jittakal/avrobq/internal/config/dto"
	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/internal/storage"
	"github.com/jittakal/avrobq/pkg/avro"
	"github.com/jittakal/avrobq/pkg/source"
)

// Ensure implementation satisfies interface at compile time.
var _ source.Source = (*KafkaSource)(nil)

const confluentMagic = 0

// offsetReader is the part of sarama.Client the source needs.
type offsetReader interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, time int64) (int64, error)
}

// messageStream is the part of sarama.PartitionConsumer the source needs.
type messageStream interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	HighWaterMarkOffset() int64
	Close() error
}

type streamOpener func(topic string, partition int32, offset int64) (messageStream, error)

// KafkaSource drains a topic from the oldest retained offset up to the
// high-water mark observed when each partition is opened. It does not join
// a consumer group and commits nothing.
type KafkaSource struct {
	topic     string
	codec     *avro.Codec
	offsets   offsetReader
	open      streamOpener
	closers   []func() error
	confluent bool
	idle      time.Duration
	logger    *slog.Logger
	metrics   MetricsCollector
}

// NewKafkaSource connects to the brokers in cfg for the topic named by ref
// (kafka://topic).
func NewKafkaSource(cfg dto.KafkaConfig, ref string, codec *avro.Codec, logger *slog.Logger, metrics MetricsCollector) (*KafkaSource, error) {
	topic, err := TopicOf(ref)
	if err != nil {
		return nil, err
	}
	saramaConfig, err := newSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := sarama.NewClient(cfg.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, &apperrors.SourceError{Source: ref, Err: fmt.Errorf("failed to create kafka client: %w", err)}
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		client.Close()
		return nil, &apperrors.SourceError{Source: ref, Err: fmt.Errorf("failed to create kafka consumer: %w", err)}
	}

	s := newKafkaSource(topic, codec, client, func(topic string, partition int32, offset int64) (messageStream, error) {
		return consumer.ConsumePartition(topic, partition, offset)
	}, logger, metrics)
	s.closers = []func() error{consumer.Close, client.Close}
	s.confluent = cfg.ConfluentWireFormat
	if cfg.FetchTimeoutSeconds > 0 {
		s.idle = time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	}

	logger.Info("kafka source connected",
		"topic", topic,
		"brokers", cfg.BootstrapServers,
		"security_protocol", cfg.SecurityProtocol,
	)
	return s, nil
}

func newKafkaSource(topic string, codec *avro.Codec, offsets offsetReader, open streamOpener, logger *slog.Logger, metrics MetricsCollector) *KafkaSource {
	return &KafkaSource{
		topic:   topic,
		codec:   codec,
		offsets: offsets,
		open:    open,
		idle:    30 * time.Second,
		logger:  logger.With("source", storage.SchemeKafka+"://"+topic),
		metrics: metrics,
	}
}

// TopicOf extracts the topic from a kafka://topic reference.
func TopicOf(ref string) (string, error) {
	loc, err := storage.ParseLocation(ref)
	if err != nil {
		return "", err
	}
	if loc.Scheme != storage.SchemeKafka {
		return "", fmt.Errorf("%w: %s is not a kafka reference", apperrors.ErrUnsupportedScheme, ref)
	}
	if loc.Key != "" {
		return "", fmt.Errorf("invalid kafka reference %s: expected kafka://topic", ref)
	}
	return loc.Bucket, nil
}

// Name returns the kafka://topic reference.
func (s *KafkaSource) Name() string {
	return storage.SchemeKafka + "://" + s.topic
}

// Each drains every partition in ascending partition order.
func (s *KafkaSource) Each(ctx context.Context, fn source.RecordFunc) error {
	partitions, err := s.offsets.Partitions(s.topic)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.Name(), Err: fmt.Errorf("failed to list partitions: %w", err)}
	}
	sorted := append([]int32(nil), partitions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, partition := range sorted {
		if err := s.drainPartition(ctx, partition, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *KafkaSource) drainPartition(ctx context.Context, partition int32, fn source.RecordFunc) error {
	oldest, err := s.offsets.GetOffset(s.topic, partition, sarama.OffsetOldest)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.Name(), Err: fmt.Errorf("partition %d: oldest offset: %w", partition, err)}
	}
	highWater, err := s.offsets.GetOffset(s.topic, partition, sarama.OffsetNewest)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.Name(), Err: fmt.Errorf("partition %d: high-water mark: %w", partition, err)}
	}
	if oldest >= highWater {
		s.logger.Debug("partition empty", "partition", partition, "offset", highWater)
		return nil
	}

	s.logger.Info("draining partition",
		"partition", partition,
		"from_offset", oldest,
		"high_water_mark", highWater,
	)

	stream, err := s.open(s.topic, partition, oldest)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.Name(), Offset: oldest, Err: err}
	}
	defer stream.Close()

	idle := time.NewTimer(s.idle)
	defer idle.Stop()

	next := oldest
	errs := stream.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-stream.Messages():
			if !ok {
				return &apperrors.SourceError{Source: s.Name(), Err: apperrors.ErrSourceClosed}
			}
			if err := s.handle(msg, fn); err != nil {
				return err
			}
			if msg.Offset >= highWater-1 {
				return nil
			}
			next = msg.Offset + 1
			idle.Reset(s.idle)

		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.incErrors()
			return &apperrors.SourceError{Source: s.Name(), Err: fmt.Errorf("partition %d: %w", partition, cerr.Err)}

		case <-idle.C:
			// Transaction markers, aborted batches and compacted gaps below
			// the bound are never delivered. A fetch response that already
			// reported the bound means nothing readable is left.
			if hwm := stream.HighWaterMarkOffset(); hwm >= highWater {
				s.logger.Debug("partition drained without messages at its tail",
					"partition", partition,
					"next_offset", next,
					"high_water_mark", highWater,
				)
				return nil
			}
			s.incErrors()
			return &apperrors.SourceError{
				Source: s.Name(),
				Err:    fmt.Errorf("partition %d: no message for %s before offset %d: %w", partition, s.idle, highWater, apperrors.ErrConnectionLost),
			}
		}
	}
}

func (s *KafkaSource) handle(msg *sarama.ConsumerMessage, fn source.RecordFunc) error {
	if s.metrics != nil {
		s.metrics.IncMessagesConsumed(msg.Topic, msg.Partition)
	}

	payload := msg.Value
	if s.confluent {
		var err error
		if payload, err = stripConfluentHeader(payload); err != nil {
			s.incErrors()
			return &apperrors.SourceError{Source: s.Name(), Offset: msg.Offset, Err: err}
		}
	}

	native, _, err := s.codec.Goavro.NativeFromBinary(payload)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.Name(), Offset: msg.Offset, Err: fmt.Errorf("partition %d: %w", msg.Partition, err)}
	}
	rec, err := avro.RecordFromNative(native, s.codec.Schema)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.Name(), Offset: msg.Offset, Err: err}
	}
	if s.metrics != nil {
		s.metrics.IncRecordsRead(s.Name())
	}
	return fn(rec)
}

// stripConfluentHeader removes the magic byte and 4-byte schema id that
// Confluent serializers put in front of the Avro body.
func stripConfluentHeader(payload []byte) ([]byte, error) {
	if len(payload) < 5 {
		return nil, errors.New("message shorter than the confluent wire header")
	}
	if payload[0] != confluentMagic {
		return nil, fmt.Errorf("unexpected confluent magic byte %d", payload[0])
	}
	return payload[5:], nil
}

// Close closes the consumer and the client.
func (s *KafkaSource) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *KafkaSource) incErrors() {
	if s.metrics != nil {
		s.metrics.IncSourceErrors(s.Name())
	}
}
