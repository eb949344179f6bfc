package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transigo/internal/bookings"
	"transigo/internal/cancellation"
	"transigo/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/go-playground/validator/v10"
)

// ConsumerConfig contains configuration for the payment verdict consumer
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	PaymentTopic     string
	SessionTimeoutMs int
	HeartbeatMs      int
	OffsetOldest     bool
}

// DefaultConsumerConfig returns a default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "transigo-payments",
		PaymentTopic:     "payment-events",
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		OffsetOldest:     true,
	}
}

// Consumer applies payment authority verdicts to bookings. A paid verdict
// marks the booking paid; a failed verdict cancels it through the same
// workflow as a user cancel so the seat is returned.
type Consumer struct {
	consumerGroup  sarama.ConsumerGroup
	config         *ConsumerConfig
	bookingService bookings.Service
	cancelService  cancellation.Service
	validator      *validator.Validate
	ctx            context.Context
	cancel         context.CancelFunc
	log            *logger.Logger
}

// NewConsumer creates a new payment verdict consumer
func NewConsumer(config *ConsumerConfig, bookingService bookings.Service, cancelService cancellation.Service) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		consumerGroup:  consumerGroup,
		config:         config,
		bookingService: bookingService,
		cancelService:  cancelService,
		validator:      validator.New(),
		ctx:            ctx,
		cancel:         cancel,
		log:            logger.GetDefault(),
	}, nil
}

// Start runs the consume loop until Stop is called
func (c *Consumer) Start() {
	go c.handleErrors()
	go c.runLoop()

	c.log.Info("✅ Payment verdict consumer started",
		"topic", c.config.PaymentTopic,
		"group", c.config.GroupID,
	)
}

func (c *Consumer) runLoop() {
	handler := &verdictHandler{consumer: c}
	topics := []string{c.config.PaymentTopic}

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			if err := c.consumerGroup.Consume(c.ctx, topics, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.log.ErrorWithContext(c.ctx, "payment consumer error", err, nil)
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *Consumer) handleErrors() {
	for err := range c.consumerGroup.Errors() {
		c.log.ErrorWithContext(c.ctx, "payment consumer group error", err, nil)
	}
}

// Stop shuts the consumer down
func (c *Consumer) Stop() error {
	c.cancel()
	if err := c.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

type verdictHandler struct {
	consumer *Consumer
}

func (h *verdictHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *verdictHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *verdictHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				h.consumer.log.ErrorWithContext(session.Context(), "failed to process payment verdict", err, nil)
			}
			// Mark even on failure: verdicts for unknown or settled bookings
			// would otherwise wedge the partition
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *verdictHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event PaymentEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal payment event: %w", err)
	}

	if err := h.consumer.validator.Struct(&event); err != nil {
		return fmt.Errorf("invalid payment event: %w", err)
	}

	switch event.Status {
	case VerdictPaid:
		if err := h.consumer.bookingService.MarkPaid(ctx, event.BookingID); err != nil {
			return fmt.Errorf("failed to mark booking %s paid: %w", event.BookingID, err)
		}

	case VerdictFailed:
		reason := event.Reason
		if reason == "" {
			reason = "payment failed"
		}
		if _, err := h.consumer.cancelService.Cancel(ctx, event.BookingID, cancellation.ActorPaymentAuthority, reason); err != nil {
			// A booking already cancelled by the expiry sweep is fine
			if errors.Is(err, bookings.ErrBookingNotFound) {
				h.consumer.log.Warn("payment verdict for unknown booking", "booking_id", event.BookingID.String())
				return nil
			}
			return fmt.Errorf("failed to cancel booking %s after payment failure: %w", event.BookingID, err)
		}
	}

	return nil
}
