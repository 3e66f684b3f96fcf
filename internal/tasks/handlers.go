package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cira/cira-backend/internal/mailer"
	"github.com/hibiken/asynq"
)

type Handler struct {
	mail   mailer.Mailer
	logger *slog.Logger
}

func NewHandler(mail mailer.Mailer, logger *slog.Logger) *Handler {
	return &Handler{mail: mail, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOTPEmail, h.HandleOTPEmail)
	mux.HandleFunc(TypeResetEmail, h.HandleResetEmail)
}

func (h *Handler) HandleOTPEmail(ctx context.Context, t *asynq.Task) error {
	var payload OTPEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.mail.SendOTPEmail(ctx, payload.To, payload.OTP); err != nil {
		h.logger.Error("otp email send failed", "to", payload.To, "error", err)
		return err
	}

	h.logger.Info("otp email sent", "to", payload.To)
	return nil
}

func (h *Handler) HandleResetEmail(ctx context.Context, t *asynq.Task) error {
	var payload ResetEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.mail.SendResetEmail(ctx, payload.To, payload.Link); err != nil {
		h.logger.Error("reset email send failed", "to", payload.To, "error", err)
		return err
	}

	h.logger.Info("reset email sent", "to", payload.To)
	return nil
}
