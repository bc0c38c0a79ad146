package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/huddle/pkg/contextkeys"
	"github.com/platinummonkey/huddle/pkg/observability"
)

type captureLogger struct {
	mu      sync.Mutex
	got     []Activity
	ctxErrs []error
	err     error
	done    chan struct{}
}

func newCapture() *captureLogger {
	return &captureLogger{done: make(chan struct{}, 10)}
}

func (c *captureLogger) LogActivity(ctx context.Context, a Activity) error {
	c.mu.Lock()
	c.got = append(c.got, a)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	c.mu.Unlock()
	c.done <- struct{}{}
	return c.err
}

func TestRecorder_RecordsAfterCancellation(t *testing.T) {
	capture := newCapture()
	rec := NewRecorder(capture, time.Second)

	ctx, cancel := context.WithCancel(contextkeys.WithRequestID(context.Background(), "req-1"))
	cancel()
	rec.Record(ctx, KindSchoolCreated, "s1")

	select {
	case <-capture.done:
	case <-time.After(2 * time.Second):
		t.Fatal("activity was not written")
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()
	require.Len(t, capture.got, 1)
	assert.Equal(t, KindSchoolCreated, capture.got[0].Kind)
	assert.Equal(t, "s1", capture.got[0].SubjectID)
	assert.Equal(t, "req-1", capture.got[0].RequestID)
	assert.NoError(t, capture.ctxErrs[0], "the write is detached from the request")
}

func TestRecorder_SinkErrorDoesNotPanic(t *testing.T) {
	capture := newCapture()
	capture.err = errors.New("sink down")
	NewRecorder(capture, time.Second).Record(context.Background(), KindUserUpdated, "u1")

	select {
	case <-capture.done:
	case <-time.After(2 * time.Second):
		t.Fatal("activity was not attempted")
	}
}

func TestMultiLogger(t *testing.T) {
	a, b := newCapture(), newCapture()
	a.err = errors.New("a failed")

	err := NewMultiLogger(a, b).LogActivity(context.Background(), Activity{Kind: KindParentalApproval, SubjectID: "c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Len(t, b.got, 1, "later sinks still receive the activity")
}

func TestDBLogger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activities (kind, subject_id, request_id, created_at) VALUES ($1, $2, $3, $4)")).
		WithArgs("SCHOOL_UPDATED", "s1", nil, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	logger, err := NewDBLogger(sqlx.NewDb(db, "postgres"))
	require.NoError(t, err)
	require.NoError(t, logger.LogActivity(context.Background(), Activity{Kind: KindSchoolUpdated, SubjectID: "s1", At: at}))
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = NewDBLogger(nil)
	assert.Error(t, err)
}

func TestLogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogLogger(observability.NewLogger(observability.InfoLevel, &buf))

	require.NoError(t, logger.LogActivity(context.Background(), Activity{Kind: KindEmailConfirmed, SubjectID: "u1", RequestID: "r1"}))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "EMAIL_CONFIRMED", entry["kind"])
	assert.Equal(t, "u1", entry["subject_id"])
	assert.Equal(t, "activity", entry["component"])
}
