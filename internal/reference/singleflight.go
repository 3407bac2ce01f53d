package reference

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// flight collapses concurrent loads of the same key. The shared call runs
// detached from the first caller's cancellation; each caller still stops
// waiting when its own ctx ends.
func flight[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	resultChan := group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
