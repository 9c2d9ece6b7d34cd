package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// windowLimitRequestLimiter allows at most `limit` request starts within any `window`.
// Callers are admitted one at a time in the order they arrived.
type windowLimitRequestLimiter struct {
	limit     int
	window    time.Duration
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	// Holds a single token. Waiting receivers are served in FIFO order.
	admission       chan struct{}
	startedRequests []time.Time
	mutex           sync.Mutex
}

func NewWindowLimitRequestLimiter(
	limit int,
	window time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *windowLimitRequestLimiter {
	if limit < 1 {
		panic("limit must be at least 1")
	}

	admission := make(chan struct{}, 1)
	admission <- struct{}{}

	// No requests started within the window -> no waiting for the first requests
	startedRequests := make([]time.Time, limit)
	veryOldTime := nowFunc().Add(-window)
	for i := 0; i < limit; i++ {
		startedRequests[i] = veryOldTime
	}

	return &windowLimitRequestLimiter{
		limit:     limit,
		window:    window,
		nowFunc:   nowFunc,
		afterFunc: afterFunc,

		admission:       admission,
		startedRequests: startedRequests,
		mutex:           sync.Mutex{},
	}
}

func insertSortedOrder(arr []time.Time, t time.Time) []time.Time {
	i, _ := slices.BinarySearchFunc(arr, t, func(a, b time.Time) int {
		return a.Compare(b)
	})
	return slices.Insert(arr, i, t)
}

func removeFirst(arr []time.Time, t time.Time) []time.Time {
	i := slices.IndexFunc(arr, func(a time.Time) bool {
		return a.Equal(t)
	})
	if i == -1 {
		return arr
	}
	return slices.Delete(arr, i, i+1)
}

// Limit waits for a free slot and runs the operation.
// Returns false without running the operation if the context is done, or if the wait
// plus maxOperationTime would exceed the context deadline.
func (l *windowLimitRequestLimiter) Limit(ctx context.Context, maxOperationTime time.Duration, operation func(ctx context.Context)) bool {
	return l.LimitCancelable(ctx, maxOperationTime, func(ctx context.Context) bool {
		operation(ctx)
		return true
	})
}

// LimitCancelable is like Limit, but the operation may return false to signal that no
// request was sent. The slot is then handed back.
func (l *windowLimitRequestLimiter) LimitCancelable(ctx context.Context, maxOperationTime time.Duration, operation func(ctx context.Context) bool) bool {
	replaced, startedAt, ok := l.admit(ctx, maxOperationTime)
	if !ok {
		return false
	}

	ran := operation(ctx)
	if !ran {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		l.startedRequests = insertSortedOrder(removeFirst(l.startedRequests, startedAt), replaced)
		return false
	}

	return true
}

func (l *windowLimitRequestLimiter) admit(ctx context.Context, maxOperationTime time.Duration) (time.Time, time.Time, bool) {
	select {
	case <-l.admission:
		// Let the next caller in when we are done
		defer func() {
			l.admission <- struct{}{}
		}()
	case <-ctx.Done():
		return time.Time{}, time.Time{}, false
	}

	l.mutex.Lock()
	oldestRequest := l.startedRequests[0]
	l.mutex.Unlock()

	wait := l.computeWait(oldestRequest)

	if deadline, ok := ctx.Deadline(); ok {
		untilDeadline := deadline.Sub(l.nowFunc())
		if max(wait, 0)+maxOperationTime > untilDeadline {
			return time.Time{}, time.Time{}, false
		}
	}

	if wait > 0 {
		select {
		case <-ctx.Done():
			return time.Time{}, time.Time{}, false
		case <-l.afterFunc(wait):
		}
	}

	startedAt := l.nowFunc()

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.startedRequests = insertSortedOrder(removeFirst(l.startedRequests, oldestRequest), startedAt)

	return oldestRequest, startedAt, true
}

func (l *windowLimitRequestLimiter) computeWait(oldRequest time.Time) time.Duration {
	timeSinceRequest := l.nowFunc().Sub(oldRequest)
	return l.window - timeSinceRequest
}
