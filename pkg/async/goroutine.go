package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/huddle/pkg/observability"
)

// SafeGo runs fn in a goroutine with panic recovery, a timeout and error
// logging. The task keeps the values of parentCtx (request id, caller) but
// not its cancellation, so work scheduled at the end of a request still
// runs after the response has been written.
//
//	async.SafeGo(ctx, 5*time.Second, "activity log", func(ctx context.Context) error {
//	    return activities.LogActivity(ctx, audit.KindSchoolCreated, school.ID)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	logger := observability.FromContext(parentCtx).WithField("task", taskName)

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).Warn("background task failed")
		}
	}()
}

// Batch runs fn for every item with at most workers concurrent calls and
// returns the errors of the items that failed. A panic in one item is
// reported as that item's error. Items not yet started when ctx is
// cancelled report ctx.Err().
//
//	errs := async.Batch(ctx, uploads, 4, "purge uploads", 10*time.Second, func(ctx context.Context, u assets.Upload) error {
//	    return blobs.Delete(ctx, u.BlobName)
//	})
func Batch[T any](ctx context.Context, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for _, item := range items {
		if ctx.Err() != nil {
			record(fmt.Errorf("%s: %w", taskName, ctx.Err()))
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if perr := observability.MustRecover(recover()); perr != nil {
					record(fmt.Errorf("%s: %w", taskName, perr))
				}
			}()

			taskCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if err := fn(taskCtx, item); err != nil {
				record(fmt.Errorf("%s: %w", taskName, err))
			}
			// errors are collected, never returned, so one failure does not stop the rest
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
