package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Logger is the subset of structured logging the log sender needs.
type Logger interface {
	Info(msg string, args ...any)
}

// LogNotifier writes composed messages to a logger.
type LogNotifier struct {
	Pipeline string
	Logger   Logger
}

// Send implements Notifier.
func (n LogNotifier) Send(_ context.Context, event Event, p Payload) error {
	msg, err := Compose(n.Pipeline, event, p)
	if err != nil {
		return err
	}
	if n.Logger != nil {
		n.Logger.Info("notification", "event", string(event), "run", p.RunID, "subject", msg.Subject)
	}
	return nil
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails composed messages to a recipient list.
type SMTPNotifier struct {
	Pipeline   string
	Addr       string // host:port
	From       string
	Recipients []string
	Auth       smtp.Auth
	SendMail   SendMailFunc // defaults to smtp.SendMail
}

// Send implements Notifier.
func (n SMTPNotifier) Send(ctx context.Context, event Event, p Payload) error {
	if n.Addr == "" || n.From == "" || len(n.Recipients) == 0 {
		return fmt.Errorf("notify: smtp notifier needs addr, sender and recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := Compose(n.Pipeline, event, p)
	if err != nil {
		return err
	}
	send := n.SendMail
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(n.Addr, n.Auth, n.From, n.Recipients, n.render(msg)); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

func (n SMTPNotifier) render(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

// WebhookNotifier POSTs a JSON document per event.
type WebhookNotifier struct {
	Pipeline string
	URL      string
	Client   *http.Client
}

type webhookBody struct {
	Event   Event   `json:"event"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	Payload Payload `json:"payload"`
	SentAt  string  `json:"sent_at"`
}

// Send implements Notifier. Non-2xx responses are errors.
func (n WebhookNotifier) Send(ctx context.Context, event Event, p Payload) error {
	msg, err := Compose(n.Pipeline, event, p)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(webhookBody{
		Event:   event,
		Subject: msg.Subject,
		Body:    msg.Body,
		Payload: p,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("notify: encode webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("notify: webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned %s", resp.Status)
	}
	return nil
}
