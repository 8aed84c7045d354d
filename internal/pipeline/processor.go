package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/haulmatch/go-push-service/internal/dispatch"
	"github.com/haulmatch/go-push-service/internal/metrics"
	"github.com/haulmatch/go-push-service/pkg/push"
)

// NewProcessor creates the stage that turns one consumed notification event
// into a fan-out: look up the recipient's subscriptions, deliver to all of
// them, and clean up the ones the push service reported gone.
func NewProcessor(
	bulk *dispatch.BulkDispatcher,
	store push.SubscriptionStore,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[push.NotificationRequest] {

	return func(ctx context.Context, original messagepipeline.Message, request *push.NotificationRequest) error {
		procLogger := logger.With(
			"recipient_id", request.RecipientID,
			"notification_id", request.Notification.ID,
			"pubsub_msg_id", original.ID,
		)

		subs, err := store.Fetch(ctx, request.RecipientID)
		if err != nil {
			procLogger.Error("Failed to fetch subscriptions", "err", err)
			return err // Retryable
		}

		if len(subs) == 0 {
			procLogger.Info("No subscriptions registered for user; dropping notification.")
			return nil
		}

		results := bulk.SendToMany(ctx, subs, request.Notification)

		var delivered, failed, removed int
		for _, r := range results {
			metrics.ObserveDelivery(r)
			if r.Success {
				delivered++
				continue
			}
			failed++

			// Self-healing: a 410 means the browser revoked the endpoint.
			// Deleting it here is the caller-side cleanup the dispatch core
			// deliberately leaves to us.
			if r.ShouldRemove {
				if err := store.Unregister(ctx, request.RecipientID, r.Endpoint); err != nil {
					procLogger.Warn("Failed to delete expired subscription", "endpoint", r.Endpoint, "err", err)
					continue
				}
				metrics.ObserveSubscriptionRemoved()
				removed++
			}
		}

		// Partial failure is not a message failure: each entry already
		// carries its own outcome, so the event is done either way.
		procLogger.Info("Notification dispatched",
			"subscriptions", len(subs),
			"delivered", delivered,
			"failed", failed,
			"removed", removed,
		)
		return nil
	}
}
