// internal/services/notifier.go
package services

import (
	"context"
	"time"

	"authsystem/internal/models"
	helpers "authsystem/internal/utils/helpres"
)

// Notifier ставит в очередь письма со ссылкой на сброс пароля.
type Notifier struct {
	queue    *EmailQueue
	resetTTL time.Duration
	html     bool
}

// html=false: письма простым текстом (удобно читать в логе без SMTP).
func NewNotifier(queue *EmailQueue, resetTTL time.Duration, html bool) *Notifier {
	return &Notifier{queue: queue, resetTTL: resetTTL, html: html}
}

func (n *Notifier) SendPasswordReset(_ context.Context, user *models.User, resetLink string) error {
	job := EmailJob{
		To:      []string{user.Email},
		Subject: "Password reset",
		Body:    helpers.BuildPasswordResetText(user.FullName, resetLink, n.resetTTL),
	}
	if n.html {
		job.Body = helpers.BuildPasswordResetHTML(user.FullName, resetLink, n.resetTTL)
		job.IsHTML = true
	}
	return n.queue.Enqueue(job)
}
