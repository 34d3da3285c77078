package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onboardhq/account-service/internal/api/metrics"
	"github.com/onboardhq/account-service/internal/core/domain"
	"github.com/onboardhq/account-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	maxAttempts    = 3
	retryBaseDelay = 2 * time.Second
)

// SentGuard abstracts the duplicate-suppression store (Redis). A nil guard
// disables suppression.
type SentGuard interface {
	RecentlySent(ctx context.Context, recipient, subject, body string) (bool, error)
	Mark(ctx context.Context, recipient, subject, body string) error
}

// Dispatcher routes outbound mail to a fixed set of workers using consistent
// hashing on the recipient, keeping per-recipient delivery ordered. Failed
// deliveries are retried with backoff before being dropped and counted.
type Dispatcher struct {
	workers []chan domain.MailMessage
	sender  ports.MailSender
	guard   SentGuard
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.MailSender, guard SentGuard, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.MailMessage, numWorkers),
		sender:  sender,
		guard:   guard,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.MailMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue queues a message for delivery, assigning it an id when missing.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(msg domain.MailMessage) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	i := d.shardIndex(msg.Recipient)
	d.workers[i] <- msg
	metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.MailMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, msg)
			metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
		}
	}
}

// deliver attempts the send up to maxAttempts times with linear backoff.
// Exhausted messages are dropped; the failure is logged and counted rather
// than silently lost.
func (d *Dispatcher) deliver(ctx context.Context, workerID int, msg domain.MailMessage) {
	if d.guard != nil {
		dup, err := d.guard.RecentlySent(ctx, msg.Recipient, msg.Subject, msg.Body)
		if err != nil {
			d.log.Warn().Err(err).Str("mail_id", msg.ID).Msg("mail guard check failed, sending anyway")
		} else if dup {
			d.log.Debug().Str("mail_id", msg.ID).Str("recipient", msg.Recipient).Msg("duplicate mail suppressed")
			return
		}
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := d.sender.Send(ctx, msg); err != nil {
			lastErr = err
			d.log.Warn().Err(err).
				Str("mail_id", msg.ID).
				Int("attempt", attempt).
				Int("worker_id", workerID).
				Msg("mail delivery attempt failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
			continue
		}

		metrics.MailSentTotal.Inc()
		metrics.MailDeliveryDuration.Observe(time.Since(start).Seconds())
		if d.guard != nil {
			if err := d.guard.Mark(ctx, msg.Recipient, msg.Subject, msg.Body); err != nil {
				d.log.Warn().Err(err).Str("mail_id", msg.ID).Msg("failed to set mail guard key")
			}
		}
		d.log.Info().Str("mail_id", msg.ID).Str("recipient", msg.Recipient).Msg("mail delivered")
		return
	}

	metrics.MailErrorsTotal.Inc()
	d.log.Error().Err(lastErr).
		Str("mail_id", msg.ID).
		Str("recipient", msg.Recipient).
		Msg("mail dropped after exhausting retries")
}
