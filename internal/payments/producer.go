package payments

import (
	"context"
	"fmt"
	"time"

	"transigo/internal/bookings"
	"transigo/pkg/logger"

	"github.com/IBM/sarama"
)

// ProducerConfig contains configuration for the booking event producer
type ProducerConfig struct {
	Brokers          []string
	BookingTopic     string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:          []string{"localhost:9092"},
		BookingTopic:     "booking-events",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// Producer publishes booking lifecycle events to Kafka. It satisfies the
// publisher interfaces of both the bookings and cancellation services.
type Producer struct {
	producer sarama.SyncProducer
	config   *ProducerConfig
	log      *logger.Logger
}

// NewProducer creates a new Kafka booking event producer
func NewProducer(config *ProducerConfig) (*Producer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps all events for a booking on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	p := &Producer{
		producer: producer,
		config:   config,
		log:      logger.GetDefault(),
	}

	p.log.Info("✅ Kafka booking event producer created", "topic", config.BookingTopic)
	return p, nil
}

// PublishBookingCreated publishes a booking.created event
func (p *Producer) PublishBookingCreated(ctx context.Context, booking *bookings.Booking) error {
	return p.publish(ctx, &BookingEvent{
		Type:       EventBookingCreated,
		BookingID:  booking.ID,
		BookingRef: booking.BookingRef,
		UserID:     booking.UserID,
		RouteID:    booking.RouteID,
		ScheduleID: booking.ScheduleID,
		PriceDA:    booking.PriceDA,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishBookingCancelled publishes a booking.cancelled event
func (p *Producer) PublishBookingCancelled(ctx context.Context, booking *bookings.Booking, actor string) error {
	return p.publish(ctx, &BookingEvent{
		Type:       EventBookingCancelled,
		BookingID:  booking.ID,
		BookingRef: booking.BookingRef,
		UserID:     booking.UserID,
		RouteID:    booking.RouteID,
		ScheduleID: booking.ScheduleID,
		PriceDA:    booking.PriceDA,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, event *BookingEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.config.BookingTopic,
		Key:   sarama.StringEncoder(event.BookingID.String()),
		Value: sarama.ByteEncoder(messageBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("booking_id"), Value: []byte(event.BookingID.String())},
			{Key: []byte("producer"), Value: []byte("transigo-bookings")},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send booking event to Kafka: %w", err)
	}

	p.log.Info("Booking event published",
		"type", event.Type,
		"booking_id", event.BookingID.String(),
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// HealthCheck validates the producer is configured and usable
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.producer == nil {
		return fmt.Errorf("producer is nil")
	}
	if p.config.BookingTopic == "" {
		return fmt.Errorf("booking topic not configured")
	}
	return nil
}
