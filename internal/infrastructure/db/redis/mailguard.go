package redis

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardTTL = 10 * time.Minute

// MailGuard suppresses byte-identical outbound emails inside a short window,
// so a handler retried by an impatient client does not spam the recipient.
// Key format: mail:<recipient>:<sha256(subject|body)>
type MailGuard struct {
	client *redis.Client
}

// NewMailGuard creates a MailGuard wrapping the given Redis client.
func NewMailGuard(client *redis.Client) *MailGuard {
	return &MailGuard{client: client}
}

// RecentlySent reports whether an identical message went to this recipient
// inside the guard window.
func (g *MailGuard) RecentlySent(ctx context.Context, recipient, subject, body string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(recipient, subject, body)).Result()
	if err != nil {
		return false, fmt.Errorf("mail guard check: %w", err)
	}
	return n > 0, nil
}

// Mark records a delivery (expires after guardTTL).
func (g *MailGuard) Mark(ctx context.Context, recipient, subject, body string) error {
	return g.client.Set(ctx, g.key(recipient, subject, body), "1", guardTTL).Err()
}

func (g *MailGuard) key(recipient, subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "|" + body))
	return fmt.Sprintf("mail:%s:%x", recipient, sum[:8])
}
