package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/pkg/mailer"
	mailtpl "github.com/oksasatya/go-water-tracker/pkg/mailer/templates"
)

// Sender delivers one rendered email. *mailer.Mailgun satisfies it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Drop
	Requeue
)

// EmailWorker renders queued email jobs and hands them to a Sender.
type EmailWorker struct {
	Sender      Sender
	Geo         mailtpl.GeoResolver
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewEmailWorker(sender Sender, geo mailtpl.GeoResolver, logger *logrus.Logger) *EmailWorker {
	return &EmailWorker{Sender: sender, Geo: geo, Logger: logger, SendTimeout: 15 * time.Second}
}

// Handle processes one message body. Malformed or unrenderable jobs are
// dropped; send failures are requeued.
func (w *EmailWorker) Handle(ctx context.Context, body []byte) Outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		return Drop
	}
	if job.To == "" {
		w.Logger.Warn("email job without recipient")
		return Drop
	}

	normalizeJob(&job)

	subject, text, html, err := w.render(ctx, &job)
	if err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Error("render email failed")
		return Drop
	}

	c, cancel := context.WithTimeout(ctx, w.SendTimeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithFields(logrus.Fields{"job_id": job.ID, "to": job.To}).Warn("send email failed")
		return Requeue
	}
	w.Logger.WithFields(logrus.Fields{"job_id": job.ID, "to": job.To, "type": job.Data["Type"]}).Info("email sent")
	return Ack
}

func (w *EmailWorker) render(ctx context.Context, job *mailer.EmailJob) (subject, text, html string, err error) {
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	localize(ctx, w.Geo, job.Data)
	subject, text, html, err = mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return "", "", "", err
	}
	if job.Template == mailtpl.Universal && subject == "" {
		subject = subjectFor(job.Data)
	}
	return subject, text, html, nil
}
