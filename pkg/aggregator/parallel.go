package aggregator

import (
	"context"
	"sync"
)

// DefaultConcurrency is the default number of line items resolved at once.
const DefaultConcurrency = 8

type indexedItem[T any] struct {
	index int
	item  T
}

type indexedResult[R any] struct {
	index  int
	result R
}

// mapIndexed runs fn over every item with bounded concurrency and returns
// the results in input order regardless of completion order. fn is expected
// to absorb its own failures; there is no early exit besides ctx
// cancellation, in which case unprocessed slots keep their zero value.
func mapIndexed[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, index int, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	itemChan := make(chan indexedItem[T], len(items))
	resultChan := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultChan <- indexedResult[R]{
					index:  item.index,
					result: fn(ctx, item.index, item.item),
				}
			}
		}()
	}

	for i, item := range items {
		itemChan <- indexedItem[T]{index: i, item: item}
	}
	close(itemChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for res := range resultChan {
		results[res.index] = res.result
	}

	return results
}
