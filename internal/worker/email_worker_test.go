package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/config"
	"github.com/oksasatya/go-water-tracker/pkg/mailer"
	mailtpl "github.com/oksasatya/go-water-tracker/pkg/mailer/templates"
)

type sent struct {
	to, subject, text, html string
}

type fakeSender struct {
	err  error
	sent []sent
}

func (f *fakeSender) Send(ctx context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, subject, text, html})
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func body(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandle_RendersUniversal(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s, nil, quietLogger())
	data := mailtpl.NewVerifyEmailData(&config.Config{}, "Jane", "jane@example.com", "https://x.test/v/1")

	got := w.Handle(context.Background(), body(t, mailer.EmailJob{To: "jane@example.com", Template: mailtpl.Universal, Data: data}))
	if got != Ack {
		t.Fatalf("outcome = %v, want Ack", got)
	}
	if len(s.sent) != 1 || s.sent[0].subject != "Verify your email address" || !strings.Contains(s.sent[0].text, "https://x.test/v/1") {
		t.Fatalf("unexpected email: %+v", s.sent)
	}
}

func TestHandle_LegacyTemplateName(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s, nil, quietLogger())
	job := mailer.EmailJob{To: "a@example.com", Template: mailtpl.AccountDeleted, Data: map[string]any{"RecordsDeleted": 2}}

	if got := w.Handle(context.Background(), body(t, job)); got != Ack {
		t.Fatalf("outcome = %v, want Ack", got)
	}
	if s.sent[0].subject != "Your account was deleted" || !strings.Contains(s.sent[0].text, "a@example.com") {
		t.Fatalf("unexpected email: %+v", s.sent[0])
	}
}

func TestHandle_RawBody(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s, nil, quietLogger())
	job := mailer.EmailJob{To: "a@example.com", Subject: "Hi", Text: "plain"}
	if got := w.Handle(context.Background(), body(t, job)); got != Ack {
		t.Fatalf("outcome = %v, want Ack", got)
	}
	if s.sent[0].subject != "Hi" || s.sent[0].text != "plain" {
		t.Fatalf("unexpected email: %+v", s.sent[0])
	}
}

func TestHandle_Failures(t *testing.T) {
	w := NewEmailWorker(&fakeSender{}, nil, quietLogger())
	if got := w.Handle(context.Background(), []byte("{not json")); got != Drop {
		t.Fatalf("bad json: outcome = %v, want Drop", got)
	}
	if got := w.Handle(context.Background(), body(t, mailer.EmailJob{Subject: "x"})); got != Drop {
		t.Fatalf("no recipient: outcome = %v, want Drop", got)
	}
	if got := w.Handle(context.Background(), body(t, mailer.EmailJob{To: "a@example.com", Template: "missing"})); got != Drop {
		t.Fatalf("unknown template: outcome = %v, want Drop", got)
	}

	w = NewEmailWorker(&fakeSender{err: errors.New("mailgun down")}, nil, quietLogger())
	if got := w.Handle(context.Background(), body(t, mailer.EmailJob{To: "a@example.com", Subject: "x", Text: "y"})); got != Requeue {
		t.Fatalf("send failure: outcome = %v, want Requeue", got)
	}
}
