package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPSender dials the relay once per message.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log; used when SMTP is not configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, m Message) error {
	s.Log.Info("email (smtp disabled)", zap.String("to", m.To), zap.String("subject", m.Subject))
	return nil
}

// Render builds the email for a job.
func Render(j Job, name string) Message {
	if name == "" {
		name = "customer"
	}
	name = html.EscapeString(name)
	var b strings.Builder
	switch j.Kind {
	case KindOrderPlaced:
		fmt.Fprintf(&b, "<h2>Thanks for your order, %s!</h2>", name)
		fmt.Fprintf(&b, "<p>Order <strong>%s</strong> has been received.</p><table>", j.OrderNumber)
		for _, l := range j.Lines {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>x%d</td><td>%s</td></tr>", html.EscapeString(l.Name), l.Quantity, l.Total)
		}
		fmt.Fprintf(&b, "</table><p>Subtotal: %s<br>Shipping: %s<br>Tax: %s<br><strong>Total: %s</strong></p>",
			j.Subtotal, j.Shipping, j.Tax, j.Total)
		return Message{Subject: "Order confirmation " + j.OrderNumber, HTML: b.String()}
	default:
		fmt.Fprintf(&b, "<p>Hi %s,</p><p>Order <strong>%s</strong> is now <strong>%s</strong>.</p>", name, j.OrderNumber, j.Status)
		return Message{Subject: fmt.Sprintf("Order %s is %s", j.OrderNumber, j.Status), HTML: b.String()}
	}
}
