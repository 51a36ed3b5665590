package client

import (
	"context"
	"errors"
	"iter"

	"github.com/teco-project/teco-core/tcerr"
)

// ErrStopPagination stops a Paginate fold early. When the fold function
// returns it, Paginate keeps the pages folded so far and returns a nil
// error, the same way breaking out of a Pages loop does.
var ErrStopPagination = errors.New("stop pagination")

// ListOutput is the shape of a page in a paginated listing: the items on
// this page and, when the service reports one, the total element count.
type ListOutput[T any] interface {
	// Items returns this page's elements.
	Items() []T
	// TotalCount returns the total element count across all pages and
	// whether the service reported one.
	TotalCount() (int64, bool)
}

// ListInput is a paginated request. NextInput derives the request for the
// page after last, or reports that last was the final page.
type ListInput[T any, O ListOutput[T]] interface {
	InputModel
	NextInput(last O) (ListInput[T, O], bool)
}

// Pager walks a paginated listing one page at a time. Pages are fetched
// serially; a Pager is not safe for concurrent use.
//
// While walking, the total count reported by the service must not change: a
// different total on a later non-empty page means the collection mutated
// under the reader, and NextPage returns a totalCountChanged error instead
// of that page. An all-empty page may report any total.
type Pager[T any, O ListOutput[T]] struct {
	client    *Client
	action    string
	next      ListInput[T, O]
	newOutput func() O
	opts      []CallOption

	total    int64
	hasTotal bool
	seq      int
	done     bool
}

// NewPager starts a paginated walk of action from the first-page input in.
// newOutput allocates an empty page to decode into.
func NewPager[T any, O ListOutput[T]](c *Client, action string, in ListInput[T, O], newOutput func() O, opts ...CallOption) *Pager[T, O] {
	return &Pager[T, O]{
		client:    c,
		action:    action,
		next:      in,
		newOutput: newOutput,
		opts:      opts,
	}
}

// HasMorePages reports whether NextPage can produce another page.
func (p *Pager[T, O]) HasMorePages() bool {
	return !p.done
}

// NextPage fetches the next page. Any error is terminal for the walk.
func (p *Pager[T, O]) NextPage(ctx context.Context) (O, error) {
	var zero O
	if p.done {
		return zero, &tcerr.PaginationError{Message: "walk already finished"}
	}

	out := p.newOutput()
	if err := p.client.Execute(ctx, p.action, p.next, out, p.opts...); err != nil {
		p.done = true
		return zero, err
	}
	p.seq++

	items := out.Items()
	if total, ok := out.TotalCount(); ok {
		if p.hasTotal && total != p.total && len(items) > 0 {
			p.done = true
			return zero, tcerr.TotalCountChanged(p.total, total)
		}
		if !p.hasTotal {
			p.total, p.hasTotal = total, true
		}
	}
	p.client.logger.Debug("page fetched",
		"tc-action", p.action,
		"tc-client-pagination-seq", p.seq,
		"tc-page-items", len(items),
	)

	next, more := p.next.NextInput(out)
	if !more || len(items) == 0 {
		p.done = true
	} else {
		p.next = next
	}
	return out, nil
}

// Pages returns a lazy sequence of pages. Iteration stops after the first
// error; the error is yielded with the zero page.
func (p *Pager[T, O]) Pages(ctx context.Context) iter.Seq2[O, error] {
	return func(yield func(O, error) bool) {
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				var zero O
				yield(zero, err)
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

// All returns a lazy sequence of the individual elements across all pages.
// Iteration stops after the first error; the error is yielded with the zero
// element.
func (p *Pager[T, O]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for page, err := range p.Pages(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Items() {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Paginate folds all pages of action into an accumulator. The fold runs once
// per page in order; its error stops the walk. A fold returning
// ErrStopPagination ends the walk cleanly with the accumulator so far.
func Paginate[T any, O ListOutput[T], A any](
	ctx context.Context,
	c *Client,
	action string,
	in ListInput[T, O],
	newOutput func() O,
	acc A,
	fold func(A, O) (A, error),
	opts ...CallOption,
) (A, error) {
	pager := NewPager[T](c, action, in, newOutput, opts...)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return acc, err
		}
		acc, err = fold(acc, page)
		if errors.Is(err, ErrStopPagination) {
			return acc, nil
		}
		if err != nil {
			return acc, err
		}
	}
	return acc, nil
}
