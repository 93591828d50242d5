// Package workerpool provides simple concurrent processing utilities.
package workerpool

import (
	"context"
	"sync"
)

// Range runs process for every index in [0, n) on at most workerCount goroutines.
// It returns only after every started worker has exited, so writes made by process
// are visible to the caller. The first error cancels the remaining work and is returned.
func Range(
	ctx context.Context,
	workerCount int,
	n int,
	process func(ctx context.Context, i int) error,
) error {
	if n <= 0 {
		return ctx.Err()
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > n {
		workerCount = n
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int, workerCount)
	var (
		once     sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-indexes:
					if !ok {
						return
					}
					if err := process(ctx, i); err != nil {
						once.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
