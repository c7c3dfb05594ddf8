package lagoon

import (
	"context"
	"net/http"
)

// Page is one page of a listed collection. Results preserve server order.
// Next and Previous are opaque cursors: pass them back verbatim, never
// parse or construct them. A nil Next is the authoritative end of the
// collection.
type Page[T any] struct {
	Results  []T     `json:"results"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

func listPage[T any](ctx context.Context, c *Client, path string, cursor *string) (Page[T], error) {
	var page Page[T]
	u := path
	if cursor != nil && *cursor != "" {
		u = *cursor
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

// Paginate drains every page, concatenating results in server order. If
// the remote collection mutates concurrently, items may be duplicated or
// skipped across page boundaries; that weak consistency is inherent to
// cursor pagination and not corrected here.
func Paginate[T any](ctx context.Context, list func(ctx context.Context, cursor *string) (Page[T], error)) ([]T, error) {
	var all []T
	var cursor *string
	for {
		page, err := list(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.Next == nil || *page.Next == "" {
			return all, nil
		}
		cursor = page.Next
	}
}
