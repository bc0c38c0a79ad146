package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DBLogger writes activities to the activities table
type DBLogger struct {
	db sqlx.ExecerContext
}

// NewDBLogger creates a database-backed activity logger
func NewDBLogger(db sqlx.ExecerContext) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// LogActivity implements ActivityLogger
func (l *DBLogger) LogActivity(ctx context.Context, activity Activity) error {
	requestID := sql.NullString{String: activity.RequestID, Valid: activity.RequestID != ""}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activities (kind, subject_id, request_id, created_at) VALUES ($1, $2, $3, $4)`,
		string(activity.Kind), activity.SubjectID, requestID, activity.At,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}
