// Package notify queues sale receipts in Redis and delivers them over SMTP.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"becard/internal/logger"
	"becard/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey    = "receipts"
	failedKey   = "receipts:failed"
	maxAttempts = 3
)

// Sender delivers one message.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	from     string
	fromName string
	host     string
	port     string
	user     string
	pass     string
}

func NewSMTPSender(from, fromName, host, port, user, pass string) *SMTPSender {
	return &SMTPSender{
		from:     from,
		fromName: fromName,
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "\r\n" + body

	var auth smtp.Auth
	if s.user != "" && s.pass != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, []byte(message))
}

type Queue struct {
	redis      *redis.Client
	sender     Sender
	retryDelay time.Duration
}

func New(rdb *redis.Client, sender Sender) *Queue {
	return &Queue{
		redis:      rdb,
		sender:     sender,
		retryDelay: 5 * time.Second,
	}
}

// EnqueueReceipt pushes a receipt job for the worker.
func (q *Queue) EnqueueReceipt(ctx context.Context, r Receipt) error {
	r.Tries = 0
	r.Created = time.Now()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	if err := q.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		metrics.RecordReceipt("enqueue_failed")
		return fmt.Errorf("queue receipt: %w", err)
	}

	metrics.RecordReceipt("queued")
	logger.Debug("receipt queued", "sale_id", r.SaleID, "to", r.To)
	return nil
}

// Start consumes the queue until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	logger.Info("receipt worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("receipt worker stopped")
			return
		default:
			q.processNext(ctx)
		}
	}
}

func (q *Queue) processNext(ctx context.Context) {
	result, err := q.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var r Receipt
	if err := json.Unmarshal([]byte(result[1]), &r); err != nil {
		logger.Error("bad receipt payload", "error", err)
		return
	}

	r.Tries++
	if err := q.sender.Send(r.To, r.Subject(), r.Body()); err != nil {
		logger.Warn("receipt delivery failed", "sale_id", r.SaleID, "attempt", r.Tries, "error", err)

		if r.Tries < maxAttempts {
			time.Sleep(q.retryDelay)
			data, _ := json.Marshal(r)
			q.redis.LPush(context.Background(), queueKey, string(data))
			return
		}
		q.saveFailed(r, err)
		return
	}

	metrics.RecordReceipt("sent")
	logger.Info("receipt sent", "sale_id", r.SaleID, "to", r.To)
}

func (q *Queue) saveFailed(r Receipt, err error) {
	failed := map[string]interface{}{
		"job":   r,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	q.redis.LPush(context.Background(), failedKey, string(data))

	metrics.RecordReceipt("failed")
	logger.Error("receipt moved to failed queue", "sale_id", r.SaleID, "attempts", r.Tries)
}

// QueueLength reports the pending receipts and refreshes the queue gauge.
func (q *Queue) QueueLength(ctx context.Context) int64 {
	length, _ := q.redis.LLen(ctx, queueKey).Result()
	metrics.ReceiptQueueLength.Set(float64(length))
	return length
}

func (q *Queue) Close() error {
	return q.redis.Close()
}
