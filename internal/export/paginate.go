package export

import (
	"context"
	"fmt"
)

// MaxPageSize is the largest page the history endpoint accepts.
const MaxPageSize = 1000

// PageFunc fetches the page at cursor ("" for the first page) and returns its
// items plus the next cursor ("" when there are no more pages).
type PageFunc[T any] func(ctx context.Context, cursor string) ([]T, string, error)

// Paginate follows cursors until the remote side stops returning one and
// concatenates the pages in the order they were received. An empty first page
// is a valid, empty result. A cursor that was already followed is treated as
// exhaustion so an oscillating remote cannot spin the loop.
func Paginate[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var items []T
	seen := make(map[string]bool)
	cursor := ""
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, next, err := fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		items = append(items, batch...)

		if next == "" || seen[next] {
			return items, nil
		}
		seen[next] = true
		cursor = next
	}
}

// clampPageSize keeps a requested page size inside (0, MaxPageSize].
func clampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
