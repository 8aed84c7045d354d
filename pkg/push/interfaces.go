package push

import (
	"context"
	"errors"
)

// ErrSubscriptionGone is returned by a Transport when the push service says
// the endpoint no longer exists (HTTP 410, or 404 on some providers). The
// subscription is permanently dead and should be removed by the caller.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Transport delivers a serialized payload to a single subscription.
// Implementations classify the provider response: nil on acceptance,
// ErrSubscriptionGone for a dead endpoint, any other error is transient.
type Transport interface {
	Send(ctx context.Context, sub Subscription, payload []byte) error
}

// SubscriptionStore manages the browser subscriptions registered per user.
// It allows the service to remember "where" to send notifications.
type SubscriptionStore interface {
	// Register adds or updates a subscription for a user. Upsert semantics:
	// re-registering the same endpoint must not duplicate it.
	Register(ctx context.Context, userID string, sub Subscription) error

	// Unregister deletes a subscription by its endpoint URL.
	Unregister(ctx context.Context, userID string, endpoint string) error

	// Fetch retrieves all active subscriptions for a user.
	Fetch(ctx context.Context, userID string) ([]Subscription, error)
}
