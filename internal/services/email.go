package services

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"authsystem/internal/config"
	"authsystem/internal/logger"

	"go.uber.org/zap"
)

type EmailSender interface {
	Send(to []string, subject, body string) error
	SendHTML(to []string, subject, body string) error
}

type EmailService struct {
	auth smtp.Auth
	from string
	host string
	port string
}

func NewEmailService(cfg *config.Config) *EmailService {
	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	return &EmailService{
		auth: auth,
		from: cfg.SMTPFrom,
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
	}
}

func (s *EmailService) Send(to []string, subject, body string) error {
	return s.send(to, subject, "text/plain", body)
}

func (s *EmailService) SendHTML(to []string, subject, body string) error {
	return s.send(to, subject, "text/html", body)
}

func (s *EmailService) send(to []string, subject, contentType, body string) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, s.auth, s.from, to, buildMessage(s.from, to, subject, contentType, body))
}

func buildMessage(from string, to []string, subject, contentType, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: " + contentType + "; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogEmailSender транспорт без SMTP, письмо целиком уходит в лог (dev-режим).
type LogEmailSender struct{}

func (LogEmailSender) Send(to []string, subject, body string) error {
	logger.Log.Info("Письмо (SMTP не настроен)",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

func (l LogEmailSender) SendHTML(to []string, subject, body string) error {
	return l.Send(to, subject, body)
}

type EmailJob struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

var ErrEmailQueueFull = errors.New("email queue is full")

// EmailQueue: буфер писем и пул воркеров, останавливается отменой контекста.
type EmailQueue struct {
	jobs   chan EmailJob
	sender EmailSender
	wg     sync.WaitGroup
}

func NewEmailQueue(sender EmailSender, size int) *EmailQueue {
	if size <= 0 {
		size = 100
	}
	return &EmailQueue{jobs: make(chan EmailJob, size), sender: sender}
}

// Enqueue не блокирует: запрос пользователя не ждёт SMTP.
func (q *EmailQueue) Enqueue(job EmailJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrEmailQueueFull
	}
}

func (q *EmailQueue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					q.drain()
					return
				case job := <-q.jobs:
					q.deliver(job)
				}
			}
		}()
	}
}

// drain отправляет то, что уже лежит в буфере на момент остановки.
func (q *EmailQueue) drain() {
	for {
		select {
		case job := <-q.jobs:
			q.deliver(job)
		default:
			return
		}
	}
}

// Wait ждёт остановки всех воркеров.
func (q *EmailQueue) Wait() {
	q.wg.Wait()
}

func (q *EmailQueue) deliver(job EmailJob) {
	var err error
	if job.IsHTML {
		err = q.sender.SendHTML(job.To, job.Subject, job.Body)
	} else {
		err = q.sender.Send(job.To, job.Subject, job.Body)
	}
	if err != nil {
		logger.Log.Error("Не удалось отправить письмо", zap.Strings("to", job.To), zap.String("subject", job.Subject), zap.Error(err))
	}
}
