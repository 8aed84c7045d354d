package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Location update policy: one update per (user, shipment) pair every five
// seconds. Live tracking does not need to be faster than this, and anything
// faster floods the tracking path.
const (
	LocationUpdateWindow = 5 * time.Second
	LocationUpdateMax    = 1
)

// Decision is the outcome of one admission check, carrying the standard rate
// metadata exposed as response headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies a fixed max-per-window policy to keys against a Store.
type Limiter struct {
	store  Store
	window time.Duration
	max    int
}

// NewLimiter validates the policy up front. A non-positive window or max is
// a deployment error, not an operational state, so it fails fast.
func NewLimiter(store Store, window time.Duration, max int) (*Limiter, error) {
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}
	if max <= 0 {
		return nil, fmt.Errorf("ratelimit: max must be positive, got %d", max)
	}
	return &Limiter{store: store, window: window, max: max}, nil
}

// Check admits or denies one request under key. The underlying increment is
// atomic, so concurrent checks for the same key can never over-admit: each
// sees its own post-increment count.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, err
	}

	remaining := int64(l.max) - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.max),
		Limit:     l.max,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}, nil
}

// Undo releases the slot consumed by a Check, used when the admitted request
// turns out not to count (non-2xx downstream) or when the check itself
// denied. Never resets or extends the window.
func (l *Limiter) Undo(ctx context.Context, key string) error {
	return l.store.Undo(ctx, key)
}

// LocationUpdateKey scopes throttling per (user, shipment) pair: a user
// tracking two shipments is limited independently for each.
func LocationUpdateKey(userID, shipmentID string) string {
	return "location_update:" + userID + ":" + shipmentID
}
