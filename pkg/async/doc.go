// Package async provides goroutine helpers for background work.
//
// SafeGo runs a single background task with panic recovery and error
// logging. Pool and Batch fan work out to a fixed number of workers and
// collect every error, including recovered panics.
//
//	errs := async.Batch(ctx, ids, 8, "page export", 30*time.Second, logger,
//		func(ctx context.Context, id int64) error {
//			return export(ctx, id)
//		})
package async
