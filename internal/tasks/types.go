package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeOTPEmail   = "email:otp"
	TypeResetEmail = "email:reset"
)

// OTPEmailPayload contains the data for an OTP delivery task
type OTPEmailPayload struct {
	To  string `json:"to"`
	OTP string `json:"otp"`
}

func NewOTPEmailTask(payload OTPEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOTPEmail, data, asynq.Queue("critical")), nil
}

// ResetEmailPayload contains the data for a reset-link delivery task
type ResetEmailPayload struct {
	To   string `json:"to"`
	Link string `json:"link"`
}

func NewResetEmailTask(payload ResetEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResetEmail, data, asynq.Queue("critical")), nil
}
