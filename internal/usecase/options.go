package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
	"marketplace/pkg/metrics"
)

type options struct {
	idempotency  domain.IdempotencyStore
	publisher    domain.OrderEventPublisher
	metrics      *metrics.Metrics
	orderNumbers func() string
}

type Option func(*options)

// WithIdempotency enables Idempotency-Key handling on order creation.
func WithIdempotency(store domain.IdempotencyStore) Option {
	return func(o *options) { o.idempotency = store }
}

func WithPublisher(p domain.OrderEventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithOrderNumbers replaces the order number generator.
func WithOrderNumbers(gen func() string) Option {
	return func(o *options) { o.orderNumbers = gen }
}

func buildOptions(opts []Option) options {
	o := options{orderNumbers: NewOrderNumber}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewOrderNumber returns ORD-<unix millis>-<8 hex chars>. Uniqueness is best effort;
// the orders table enforces it and creation retries on a collision.
func NewOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

func (o options) orderCreated() {
	if o.metrics != nil {
		o.metrics.OrdersCreated.Inc()
	}
}

func (o options) orderFailed(reason string) {
	if o.metrics != nil {
		o.metrics.OrderFailures.WithLabelValues(reason).Inc()
	}
}

func (o options) compensated(n int) {
	if o.metrics != nil && n > 0 {
		o.metrics.Compensations.Add(float64(n))
	}
}

func (o options) statusChanged(status domain.OrderStatus) {
	if o.metrics != nil {
		o.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	}
}
