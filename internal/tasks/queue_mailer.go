package tasks

import (
	"context"

	"github.com/cira/cira-backend/internal/mailer"
	"github.com/hibiken/asynq"
)

// QueueMailer satisfies mailer.Mailer by enqueueing delivery tasks for
// the worker instead of sending inline. Enqueue failures surface to the
// caller; delivery failures are the worker's problem (fire and forget).
type QueueMailer struct {
	client *asynq.Client
}

func NewQueueMailer(client *asynq.Client) *QueueMailer {
	return &QueueMailer{client: client}
}

var _ mailer.Mailer = (*QueueMailer)(nil)

func (q *QueueMailer) SendOTPEmail(ctx context.Context, to, otp string) error {
	task, err := NewOTPEmailTask(OTPEmailPayload{To: to, OTP: otp})
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task)
	return err
}

func (q *QueueMailer) SendResetEmail(ctx context.Context, to, link string) error {
	task, err := NewResetEmailTask(ResetEmailPayload{To: to, Link: link})
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task)
	return err
}
