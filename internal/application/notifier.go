package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/config"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/pkg/mailer"
	tpl "github.com/oksasatya/go-water-tracker/pkg/mailer/templates"
)

// Notifier turns account events into email jobs on the queue. Publishing
// failures are logged and never fail the calling operation.
type Notifier struct {
	Pub    EmailPublisher
	Cfg    *config.Config
	Geo    tpl.GeoResolver
	Logger *logrus.Logger
}

func NewNotifier(pub EmailPublisher, cfg *config.Config, geo tpl.GeoResolver, logger *logrus.Logger) *Notifier {
	return &Notifier{Pub: pub, Cfg: cfg, Geo: geo, Logger: loggerOrDiscard(logger)}
}

func (n *Notifier) enabled() bool {
	return n != nil && n.Pub != nil && n.Cfg != nil && n.Cfg.MailSendEnabled
}

func (n *Notifier) metaOpts(ctx context.Context, meta RequestMeta) []tpl.Option {
	return []tpl.Option{
		tpl.WithTime(time.Now()),
		tpl.WithIP(meta.IP),
		tpl.WithUserAgent(meta.UserAgent),
		tpl.WithGeoFromIP(ctx, n.Geo, meta.IP),
	}
}

func (n *Notifier) publish(ctx context.Context, to string, data map[string]any) {
	job := mailer.EmailJob{ID: uuid.NewString(), To: to, Template: tpl.Universal, Data: data}
	if err := n.Pub.PublishJSON(ctx, job); err != nil {
		n.Logger.WithError(err).WithFields(logrus.Fields{"job_id": job.ID, "to": to, "type": data["Type"]}).Warn("publish email job failed")
	}
}

// VerifyLink builds the link embedded in verification emails.
func (n *Notifier) VerifyLink(token string) string {
	base := "/api/auth/verify"
	if n != nil && n.Cfg != nil && n.Cfg.VerifyEmailURL != "" {
		base = n.Cfg.VerifyEmailURL
	}
	return strings.TrimRight(base, "/") + "/" + token
}

// ResetLink builds the link embedded in password recovery emails.
func (n *Notifier) ResetLink(token string) string {
	base := "/api/auth/recover-password"
	if n != nil && n.Cfg != nil && n.Cfg.ResetPasswordURL != "" {
		base = n.Cfg.ResetPasswordURL
	}
	return strings.TrimRight(base, "/") + "/" + token
}

func (n *Notifier) VerifyEmail(ctx context.Context, u *entity.User, meta RequestMeta) {
	if !n.enabled() {
		if n != nil {
			n.Logger.WithFields(logrus.Fields{"email": u.Email, "link": n.VerifyLink(u.VerificationToken)}).Debug("mail disabled, verification link not sent")
		}
		return
	}
	opts := append(n.metaOpts(ctx, meta), tpl.WithExpiresIn(24*time.Hour))
	n.publish(ctx, u.Email, tpl.NewVerifyEmailData(n.Cfg, u.Name, u.Email, n.VerifyLink(u.VerificationToken), opts...))
}

func (n *Notifier) PasswordReset(ctx context.Context, u *entity.User, token string, ttl time.Duration, meta RequestMeta) {
	if !n.enabled() {
		return
	}
	opts := append(n.metaOpts(ctx, meta), tpl.WithExpiresIn(ttl))
	n.publish(ctx, u.Email, tpl.NewForgotPasswordData(n.Cfg, u.Name, u.Email, n.ResetLink(token), opts...))
}

func (n *Notifier) LoginNotification(ctx context.Context, u *entity.User, meta RequestMeta) {
	if !n.enabled() {
		return
	}
	n.publish(ctx, u.Email, tpl.NewLoginNotificationData(n.Cfg, u.Name, u.Email, n.metaOpts(ctx, meta)...))
}

func (n *Notifier) ProfileUpdated(ctx context.Context, u *entity.User, changes map[string]string, meta RequestMeta) {
	if !n.enabled() || len(changes) == 0 {
		return
	}
	n.publish(ctx, u.Email, tpl.NewProfileUpdatedData(n.Cfg, u.Name, u.Email, changes, n.metaOpts(ctx, meta)...))
}

func (n *Notifier) AccountDeleted(ctx context.Context, email, name string, recordsDeleted int64, meta RequestMeta) {
	if !n.enabled() {
		return
	}
	n.publish(ctx, email, tpl.NewAccountDeletedData(n.Cfg, name, email, recordsDeleted, n.metaOpts(ctx, meta)...))
}
