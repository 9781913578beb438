package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"fitness-coaching-platform/internal/config"
	"fitness-coaching-platform/internal/domain/ports/adapter"
)

var ErrInvalidMailConfig = errors.New("invalid mail configuration")

var _ adapter.Mailer = (*PostmarkMailer)(nil)

// PostmarkMailer sends transactional mail through Postmark.
type PostmarkMailer struct {
	client  *postmark.Client
	sender  string
	replyTo string
}

func NewPostmarkMailer(cfg config.MailConfig) (*PostmarkMailer, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: postmark_server_token is required", ErrInvalidMailConfig)
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidMailConfig)
	}
	replyTo := cfg.ReplyTo
	if replyTo == "" {
		replyTo = cfg.Sender
	}
	return &PostmarkMailer{
		client:  postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		sender:  cfg.Sender,
		replyTo: replyTo,
	}, nil
}

func (m *PostmarkMailer) Send(ctx context.Context, msg adapter.MailMessage) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:       m.sender,
		ReplyTo:    m.replyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.BodyHTML,
		TrackOpens: true,
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
