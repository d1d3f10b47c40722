package user

import (
	"context"

	"go.uber.org/zap"
)

// SMSSender delivers one-time codes to a mobile number.
type SMSSender interface {
	SendCode(ctx context.Context, mobile, code string) error
}

// LogSender writes codes to the log instead of sending them. Development only.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) SendCode(_ context.Context, mobile, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("one-time code issued", zap.String("mobile", mobile), zap.String("code", code))
	return nil
}
