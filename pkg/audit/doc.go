// Package audit records domain activities (a school was created, a parent
// approved a child) to one or more sinks.
//
// Sinks implement ActivityLogger:
//
//	DBLogger   - the activities table
//	LogLogger  - structured log lines through logrus
//	NoOpLogger - discards everything
//
// MultiLogger fans out to several sinks. Recorder is what services use: it
// writes after the operation committed, on a detached goroutine, so a slow or
// failing sink never blocks or fails the operation.
package audit
