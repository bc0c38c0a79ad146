package audit

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/observability"
)

// LogLogger writes activities as structured log lines
type LogLogger struct {
	logger *observability.Logger
}

// NewLogLogger creates a log-backed activity logger
func NewLogLogger(logger *observability.Logger) *LogLogger {
	return &LogLogger{logger: logger.WithField("component", "activity")}
}

// LogActivity implements ActivityLogger
func (l *LogLogger) LogActivity(ctx context.Context, activity Activity) error {
	entry := l.logger.WithFields(map[string]interface{}{
		"kind":       string(activity.Kind),
		"subject_id": activity.SubjectID,
	})
	if activity.RequestID != "" {
		entry = entry.WithField("request_id", activity.RequestID)
	}
	entry.Info("activity")
	return nil
}
