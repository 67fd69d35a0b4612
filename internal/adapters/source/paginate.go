package source

import (
	"context"
	"fmt"
	"iter"
)

// PageFunc fetches one 1-based page.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// Paginate lazily walks pages starting at 1 and yields their items. It stops
// after the first empty page. A fetch error is yielded once and ends the
// sequence; items already yielded stay valid, so each caller decides whether
// a partial listing is usable. maxPages <= 0 disables the cap.
func Paginate[T any](ctx context.Context, fetch PageFunc[T], maxPages int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for page := 1; ; page++ {
			if maxPages > 0 && page > maxPages {
				yield(zero, fmt.Errorf("%w: %d", ErrPageLimit, maxPages))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			items, err := fetch(ctx, page)
			if err != nil {
				yield(zero, fmt.Errorf("page %d: %w", page, err))
				return
			}
			if len(items) == 0 {
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect drains seq. On error it returns the items gathered so far together
// with the error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
