// Package notify turns run lifecycle events into human-readable messages and
// hands them to a transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Event is the lifecycle point being announced.
type Event string

const (
	EventStart    Event = "start"
	EventComplete Event = "complete"
)

// Payload is the run data a message is built from.
type Payload struct {
	RunID     string   `json:"run_id"`
	Samples   []string `json:"samples"`
	Motifs    []string `json:"motifs"`
	State     string   `json:"state,omitempty"`
	ReportURL string   `json:"report_url,omitempty"`
}

// Message is a composed notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers one event.
type Notifier interface {
	Send(ctx context.Context, event Event, payload Payload) error
}

// ErrUnknownEvent is returned for events other than start and complete.
var ErrUnknownEvent = errors.New("notify: unknown event")

// Compose renders subject and body for event.
func Compose(pipelineName string, event Event, p Payload) (Message, error) {
	var subject, status string
	switch event {
	case EventStart:
		subject = fmt.Sprintf("%s New Analysis config : %s", pipelineName, p.RunID)
		status = "Analysis started"
	case EventComplete:
		subject = fmt.Sprintf("%s Complete Analysis run %s", pipelineName, p.RunID)
		status = "Analysis complete"
		if p.State != "" {
			status += " (" + p.State + ")"
		}
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s report : %s\n\n%s\n\n", pipelineName, p.RunID, status)
	b.WriteString("Samples list :\n")
	for _, s := range p.Samples {
		b.WriteString(s + "\n")
	}
	fmt.Fprintf(&b, "\nMotifs use : %s\n", strings.Join(p.Motifs, ", "))
	if p.ReportURL != "" {
		fmt.Fprintf(&b, "\nFinal report : %s\n", p.ReportURL)
	}
	return Message{Subject: subject, Body: b.String()}, nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, Event, Payload) error { return nil }
