package adapter

import "context"

// MailMessage is a single outbound transactional email.
type MailMessage struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string // optional provider-side tag, e.g. "purchase-receipt"
}

type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
