// Package async provides safe concurrent execution primitives for background tasks.
//
// SafeGo runs fire-and-forget work (activity logging after a mutation
// commits) with panic recovery, a timeout and structured error logging.
//
// Batch fans a slice of items out to a bounded number of goroutines and
// collects per-item errors. The upload janitor uses it to delete stale blobs.
package async
