package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haulmatch/go-push-service/pkg/push"
)

// defaultMaxConcurrent caps the fan-out width. Deliveries are independent,
// so concurrency is an optimization; the cap keeps us polite to the push
// service.
const defaultMaxConcurrent = 8

// BulkDispatcher fans one notification out across many subscriptions.
type BulkDispatcher struct {
	dispatcher    *Dispatcher
	maxConcurrent int
	logger        *slog.Logger
}

func NewBulkDispatcher(d *Dispatcher, maxConcurrent int, logger *slog.Logger) *BulkDispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &BulkDispatcher{
		dispatcher:    d,
		maxConcurrent: maxConcurrent,
		logger:        logger.With("component", "BulkDispatcher"),
	}
}

// SendToMany delivers the notification to every subscription and returns one
// result per input, in input order. A single subscription's failure, up to
// and including a panic while processing it, never aborts the rest of the
// batch. The batch itself cannot fail; only entries do.
//
// No subscription is deleted here. Entries flagged ShouldRemove are the
// caller's cleanup responsibility.
func (b *BulkDispatcher) SendToMany(ctx context.Context, subs []push.Subscription, n push.Notification) []push.DeliveryResult {
	results := make([]push.DeliveryResult, len(subs))
	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup

	for i, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sub push.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Recovered panic during delivery", "endpoint", sub.Endpoint, "panic", r)
					results[i] = push.DeliveryResult{
						Endpoint: sub.Endpoint,
						Error:    fmt.Sprintf("internal fault: %v", r),
					}
				}
			}()
			results[i] = b.dispatcher.Send(ctx, sub, n)
		}(i, sub)
	}

	wg.Wait()
	return results
}
