package retry

import "context"

// DoWithResultTyped runs fn under r and returns the value of the successful
// attempt together with the typed Result.
//
// Usage:
//
//	vecs, res := retry.DoWithResultTyped(ctx, r, func(ctx context.Context) ([][]float64, error) {
//	    return provider.Embed(ctx, batch)
//	})
//	if !res.OK() { ... }
func DoWithResultTyped[T any](ctx context.Context, r Retryer, fn func(ctx context.Context) (T, error)) (T, Result) {
	var value T
	res := r.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if !res.OK() {
		var zero T
		return zero, res
	}
	return value, res
}
