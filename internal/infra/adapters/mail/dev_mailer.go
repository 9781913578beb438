package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fitness-coaching-platform/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*DevMailer)(nil)

// DevMailer writes outbound mail to disk instead of sending it, so local
// development needs no Postmark account.
type DevMailer struct {
	dir string
}

func NewDevMailer(dir string) *DevMailer {
	if dir == "" {
		dir = "./mail-out"
	}
	return &DevMailer{dir: dir}
}

func (m *DevMailer) Send(ctx context.Context, msg adapter.MailMessage) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	slug := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, strings.ToLower(msg.Subject))
	name := fmt.Sprintf("%d_%s.html", time.Now().UnixNano(), slug)
	body := fmt.Sprintf("<!-- to: %s | tag: %s -->\n%s", msg.To, msg.Tag, msg.BodyHTML)
	return os.WriteFile(filepath.Join(m.dir, name), []byte(body), 0o644)
}
