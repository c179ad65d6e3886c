package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// ItemResult is the settled outcome of one fan-out item. OK is false for
// items that failed or timed out; Value then holds the zero value and must
// not be read.
type ItemResult[R any] struct {
	OK    bool
	Value R
}

// BatchReport summarizes a completed fan-out.
type BatchReport struct {
	Attempted int
	Succeeded int
}

// ItemTask is the work executed for one fan-out item.
type ItemTask[T, R any] func(ctx context.Context, item T) (R, error)

// FanOut executes one task per item concurrently, each racing a per-item
// timeout. Results preserve input order; a failed or timed-out item yields
// an absent result rather than aborting the batch. FanOut returns only after
// every item has settled. Unlike the sequential chain this never fails fast:
// a per-item error is logged and isolated from siblings and from the caller.
//
// A timed-out item's context is cancelled and its eventual result, if the
// task resolves late, is discarded.
func FanOut[T, R any](ctx context.Context, items []T, task ItemTask[T, R], timeout time.Duration) ([]ItemResult[R], BatchReport) {
	results := make([]ItemResult[R], len(items))
	if len(items) == 0 {
		return results, BatchReport{}
	}

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			value, err := runItem(ctx, item, task, timeout)
			if err != nil {
				log.Printf("fanout: item %d failed: %v", index, err)
				return
			}
			results[index] = ItemResult[R]{OK: true, Value: value}
		}(i, items[i])
	}
	wg.Wait()

	report := BatchReport{Attempted: len(items)}
	for _, r := range results {
		if r.OK {
			report.Succeeded++
		}
	}
	log.Printf("fanout: completed %d/%d items", report.Succeeded, report.Attempted)
	return results, report
}

type itemOutcome[R any] struct {
	value R
	err   error
}

func runItem[T, R any](ctx context.Context, item T, task ItemTask[T, R], timeout time.Duration) (R, error) {
	itemCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		itemCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	// Buffered so a late resolution after timeout parks in the channel
	// instead of leaking the goroutine; it is never read.
	done := make(chan itemOutcome[R], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				done <- itemOutcome[R]{value: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		value, err := task(itemCtx, item)
		done <- itemOutcome[R]{value: value, err: err}
	}()

	select {
	case outcome := <-done:
		return outcome.value, outcome.err
	case <-itemCtx.Done():
		var zero R
		return zero, itemCtx.Err()
	}
}

// BatchFanOut executes one task per item with at most batchSize operations
// in flight. Batches run strictly in sequence: a batch is submitted to the
// pool and fully settled before the next begins. Per-item errors are
// isolated the same way FanOut isolates them.
func BatchFanOut[T, R any](ctx context.Context, items []T, task ItemTask[T, R], batchSize int) ([]ItemResult[R], BatchReport) {
	results := make([]ItemResult[R], len(items))
	if len(items) == 0 {
		return results, BatchReport{}
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	pool, err := ants.NewPool(batchSize)
	if err != nil {
		// Pool creation only fails on invalid size; fall back to serial.
		log.Printf("fanout: failed to create pool, running serially: %v", err)
		return serialFanOut(ctx, items, task)
	}
	defer pool.Release()

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			index := i
			item := items[i]
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				value, err := task(ctx, item)
				if err != nil {
					log.Printf("fanout: batch item %d failed: %v", index, err)
					return
				}
				results[index] = ItemResult[R]{OK: true, Value: value}
			})
			if submitErr != nil {
				wg.Done()
				log.Printf("fanout: failed to submit item %d: %v", index, submitErr)
			}
		}
		wg.Wait()
	}

	report := BatchReport{Attempted: len(items)}
	for _, r := range results {
		if r.OK {
			report.Succeeded++
		}
	}
	return results, report
}

func serialFanOut[T, R any](ctx context.Context, items []T, task ItemTask[T, R]) ([]ItemResult[R], BatchReport) {
	results := make([]ItemResult[R], len(items))
	report := BatchReport{Attempted: len(items)}
	for i, item := range items {
		value, err := task(ctx, item)
		if err != nil {
			log.Printf("fanout: item %d failed: %v", i, err)
			continue
		}
		results[i] = ItemResult[R]{OK: true, Value: value}
		report.Succeeded++
	}
	return results, report
}
