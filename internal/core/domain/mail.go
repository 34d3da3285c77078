package domain

import "time"

// MailMessage is one outbound notification. ID is assigned when the message
// is enqueued so delivery failures can be correlated across retries.
type MailMessage struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	CreatedAt time.Time
}
