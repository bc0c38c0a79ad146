package audit

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/huddle/pkg/async"
	"github.com/platinummonkey/huddle/pkg/contextkeys"
)

// Kind names an activity
type Kind string

// Activity kinds
const (
	KindParentalApproval Kind = "PARENTAL_APPROVAL"
	KindSchoolCreated    Kind = "SCHOOL_CREATED"
	KindSchoolUpdated    Kind = "SCHOOL_UPDATED"
	KindUserUpdated      Kind = "USER_UPDATED"
	KindEmailConfirmed   Kind = "EMAIL_CONFIRMED"
)

// Activity is one recorded event
type Activity struct {
	Kind      Kind      `json:"kind"`
	SubjectID string    `json:"subjectId"`
	RequestID string    `json:"requestId,omitempty"`
	At        time.Time `json:"at"`
}

// ActivityLogger is a sink for activities
type ActivityLogger interface {
	LogActivity(ctx context.Context, activity Activity) error
}

// NoOpLogger discards activities
type NoOpLogger struct{}

// LogActivity implements ActivityLogger
func (NoOpLogger) LogActivity(context.Context, Activity) error { return nil }

// MultiLogger writes every activity to all of its sinks
type MultiLogger struct {
	loggers []ActivityLogger
}

// NewMultiLogger creates a logger that writes to multiple sinks
func NewMultiLogger(loggers ...ActivityLogger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// LogActivity writes to every sink even when one fails and joins the errors
func (m *MultiLogger) LogActivity(ctx context.Context, activity Activity) error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.LogActivity(ctx, activity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder writes activities in the background
type Recorder struct {
	logger  ActivityLogger
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder creates a Recorder. Each write is bounded by timeout.
func NewRecorder(logger ActivityLogger, timeout time.Duration) *Recorder {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Recorder{logger: logger, timeout: timeout, now: time.Now}
}

// Record schedules kind for subjectID and returns immediately. The request
// id in ctx is carried over; cancellation of ctx is not. A nil Recorder
// records nothing.
func (r *Recorder) Record(ctx context.Context, kind Kind, subjectID string) {
	if r == nil {
		return
	}
	activity := Activity{Kind: kind, SubjectID: subjectID, At: r.now()}
	if id, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok {
		activity.RequestID = id
	}

	async.SafeGo(ctx, r.timeout, "log activity "+string(kind), func(ctx context.Context) error {
		return r.logger.LogActivity(ctx, activity)
	})
}
