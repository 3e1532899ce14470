package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
)

func TestComposeStartAndComplete(t *testing.T) {
	p := Payload{RunID: "run1", Samples: []string{"s1", "s2"}, Motifs: []string{"A", "B"}}
	start, err := Compose("HiTransMeth", EventStart, p)
	if err != nil {
		t.Fatalf("compose start: %v", err)
	}
	if start.Subject != "HiTransMeth New Analysis config : run1" {
		t.Fatalf("unexpected subject %q", start.Subject)
	}
	for _, want := range []string{"HiTransMeth report : run1", "Analysis started", "s1\ns2\n", "Motifs use : A, B"} {
		if !strings.Contains(start.Body, want) {
			t.Fatalf("start body missing %q:\n%s", want, start.Body)
		}
	}
	p.State = "ERROR"
	p.ReportURL = "file:///results/runs/run1/run1.final.log"
	done, err := Compose("HiTransMeth", EventComplete, p)
	if err != nil {
		t.Fatalf("compose complete: %v", err)
	}
	if done.Subject != "HiTransMeth Complete Analysis run run1" {
		t.Fatalf("unexpected subject %q", done.Subject)
	}
	if !strings.Contains(done.Body, "Analysis complete (ERROR)") || !strings.Contains(done.Body, "Final report : file:///") {
		t.Fatalf("unexpected complete body:\n%s", done.Body)
	}
	if _, err := Compose("x", Event("paused"), p); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestSMTPNotifierRendersMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n := SMTPNotifier{
		Pipeline:   "HiTransMeth",
		Addr:       "mail.local:25",
		From:       "pipeline@lab.org",
		Recipients: []string{"a@lab.org", "b@lab.org"},
		SendMail: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		},
	}
	if err := n.Send(context.Background(), EventStart, Payload{RunID: "run1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mail.local:25" || gotFrom != "pipeline@lab.org" || len(gotTo) != 2 {
		t.Fatalf("unexpected envelope %s %s %v", gotAddr, gotFrom, gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: HiTransMeth New Analysis config : run1\r\n") || !strings.Contains(msg, "To: a@lab.org, b@lab.org\r\n") {
		t.Fatalf("unexpected message:\n%s", msg)
	}
	if err := (SMTPNotifier{}).Send(context.Background(), EventStart, Payload{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got webhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	n := WebhookNotifier{Pipeline: "HiTransMeth", URL: srv.URL, Client: srv.Client()}
	if err := n.Send(context.Background(), EventComplete, Payload{RunID: "run9", State: "DONE"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Event != EventComplete || got.Payload.RunID != "run9" || !strings.Contains(got.Subject, "run9") {
		t.Fatalf("unexpected webhook body %+v", got)
	}
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	n := WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	if err := n.Send(context.Background(), EventStart, Payload{RunID: "r"}); err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type captureLogger struct{ msgs []string }

func (c *captureLogger) Info(msg string, _ ...any) { c.msgs = append(c.msgs, msg) }

type failingNotifier struct{ err error }

func (f failingNotifier) Send(context.Context, Event, Payload) error { return f.err }

func TestMultiJoinsErrorsAndContinues(t *testing.T) {
	log := &captureLogger{}
	boom := errors.New("boom")
	m := Multi{failingNotifier{err: boom}, nil, LogNotifier{Pipeline: "p", Logger: log}, Nop{}}
	err := m.Send(context.Background(), EventStart, Payload{RunID: "r"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(log.msgs) != 1 {
		t.Fatalf("later notifiers must still run")
	}
}
