// Package notify delivers approval decisions to submitters. Delivery is
// fire-and-forget: the approval transition never rolls back on a failed
// notification.
package notify

import (
	"context"
	"log/slog"
)

// LogNotifier records decisions on the application log. Deployments with a
// messaging system put their own domain.Notifier in front of the approval
// service instead.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, username string, approved bool, reason string) error {
	if approved {
		n.logger.Info("query approved", "submitter", username)
		return nil
	}
	n.logger.Info("query rejected", "submitter", username, "reason", reason)
	return nil
}
