package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
)

// LogNotifier implements port.Notifier by writing each intent as a structured log line.
// It stands in for a mail or chat transport.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

// Notify implements port.Notifier
func (n *LogNotifier) Notify(ctx context.Context, msg port.Notification) error {
	fields := []zap.Field{
		zap.String("kind", msg.Kind),
		zap.Int64("request_id", msg.RequestID),
		zap.String("request_code", msg.RequestCode),
		zap.Strings("audience", msg.Audience),
	}
	for k, v := range msg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	n.logger.Info(msg.Subject, fields...)
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
