package ports

import (
	"context"

	"github.com/onboardhq/account-service/internal/core/domain"
)

// MailSender delivers a single message over the configured transport.
type MailSender interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}

// MailQueue accepts messages for asynchronous delivery. Enqueue must not
// block the calling request beyond channel-buffer backpressure.
type MailQueue interface {
	Enqueue(msg domain.MailMessage)
}
