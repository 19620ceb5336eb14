package application

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
)

// EmailPublisher enqueues an email job. helpers.RabbitPublisher satisfies it.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AvatarStorage stores an uploaded image and returns its public URL.
type AvatarStorage interface {
	Upload(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error)
}

// UserIndex is the searchable user directory.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, userID string) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// RequestMeta describes the client that triggered an operation. It is only
// used to annotate outgoing emails.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func loggerOrDiscard(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	nl := logrus.New()
	nl.SetOutput(io.Discard)
	return nl
}
