package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry: без DSN отчёты об ошибках выключены, это не ошибка.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
