package common

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// FanOut calls fn for every index in [0, n) with at most limit calls in
// flight. Each call gets its own context bounded by timeout. fn reports
// failure through its own result slot, so one item never cancels another.
func FanOut(ctx context.Context, n, limit int, timeout time.Duration, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	if limit <= 0 {
		limit = n
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			itemCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			fn(itemCtx, i)
			return nil
		})
	}
	_ = g.Wait()
}
