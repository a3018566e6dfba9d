package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"authsystem/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingSender struct {
	mu   sync.Mutex
	jobs []EmailJob
	fail bool
	done chan struct{}
}

func (r *recordingSender) record(to []string, subject, body string, html bool) error {
	r.mu.Lock()
	r.jobs = append(r.jobs, EmailJob{To: to, Subject: subject, Body: body, IsHTML: html})
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	if r.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (r *recordingSender) Send(to []string, subject, body string) error {
	return r.record(to, subject, body, false)
}

func (r *recordingSender) SendHTML(to []string, subject, body string) error {
	return r.record(to, subject, body, true)
}

func TestEmailQueue_DeliversAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{done: make(chan struct{}, 4)}
	q := NewEmailQueue(sender, 10)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 3)

	require.NoError(t, q.Enqueue(EmailJob{To: []string{"a@b.com"}, Subject: "hi", Body: "text"}))
	require.NoError(t, q.Enqueue(EmailJob{To: []string{"c@d.com"}, Subject: "hi", Body: "<p>x</p>", IsHTML: true}))

	for i := 0; i < 2; i++ {
		select {
		case <-sender.done:
		case <-time.After(2 * time.Second):
			t.Fatal("email not delivered")
		}
	}

	cancel()
	q.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.jobs, 2)
}

func TestEmailQueue_DrainsBufferOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{}
	q := NewEmailQueue(sender, 10)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(EmailJob{To: []string{"a@b.com"}, Subject: "reset", Body: "text"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Start(ctx, 2)
	q.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.jobs, 5)
}

func TestEmailQueue_FailuresDoNotStopWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{fail: true, done: make(chan struct{}, 4)}
	q := NewEmailQueue(sender, 10)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 1)

	for i := 0; i < 2; i++ {
		require.NoError(t, q.Enqueue(EmailJob{To: []string{"a@b.com"}, Subject: "s"}))
		select {
		case <-sender.done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after a failed send")
		}
	}

	cancel()
	q.Wait()
}

func TestEmailQueue_FullQueueDoesNotBlock(t *testing.T) {
	q := NewEmailQueue(&recordingSender{}, 1)
	require.NoError(t, q.Enqueue(EmailJob{}))
	assert.ErrorIs(t, q.Enqueue(EmailJob{}), ErrEmailQueueFull)
}

func TestNotifier_SendPasswordReset(t *testing.T) {
	user := &models.User{Email: "real@x.com", FullName: "Real"}

	q := NewEmailQueue(&recordingSender{}, 2)
	require.NoError(t, NewNotifier(q, time.Hour, true).SendPasswordReset(context.Background(), user, "http://f/reset-password?token=abc"))
	require.NoError(t, NewNotifier(q, time.Hour, false).SendPasswordReset(context.Background(), user, "http://f/reset-password?token=abc"))

	html := <-q.jobs
	assert.True(t, html.IsHTML)
	assert.Equal(t, []string{"real@x.com"}, html.To)
	assert.Contains(t, html.Body, "token=abc")

	text := <-q.jobs
	assert.False(t, text.IsHTML)
	assert.True(t, strings.Contains(text.Body, "http://f/reset-password?token=abc"))
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@x.com", []string{"a@b.com", "c@d.com"}, "Subj", "text/html", "<p>body</p>"))
	assert.Contains(t, msg, "From: noreply@x.com\r\n")
	assert.Contains(t, msg, "To: a@b.com, c@d.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=\"utf-8\"\r\n\r\n<p>body</p>")
}

func TestLogEmailSender(t *testing.T) {
	assert.NoError(t, LogEmailSender{}.Send([]string{"a@b.com"}, "s", "b"))
	assert.NoError(t, LogEmailSender{}.SendHTML([]string{"a@b.com"}, "s", "<b>"))
}
