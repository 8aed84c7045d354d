// Package dispatch implements single-subscription delivery and the bulk
// fan-out over it. Failures are captured into DeliveryResult values; nothing
// in this package returns an error or panics past its boundary.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/haulmatch/go-push-service/internal/payload"
	"github.com/haulmatch/go-push-service/pkg/push"
)

// defaultSendTimeout bounds a single transport call so one unreachable push
// endpoint cannot stall a whole batch.
const defaultSendTimeout = 10 * time.Second

type Dispatcher struct {
	transport push.Transport
	builder   *payload.Builder
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDispatcher wires a transport and a payload builder. A nil transport
// selects the degraded simulated-delivery mode: sends are logged and reported
// as successful without touching the network. This is the expected state in
// environments without VAPID credentials, not an error.
func NewDispatcher(transport push.Transport, builder *payload.Builder, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	d := &Dispatcher{
		transport: transport,
		builder:   builder,
		timeout:   timeout,
		logger:    logger.With("component", "Dispatcher"),
	}
	if transport == nil {
		d.logger.Warn("Push transport not configured; deliveries will be simulated")
	}
	return d
}

// Send attempts delivery of one notification to one subscription. Every
// failure mode lands in the returned result.
func (d *Dispatcher) Send(ctx context.Context, sub push.Subscription, n push.Notification) push.DeliveryResult {
	if d.transport == nil {
		d.logger.Info("Simulated push delivery",
			"endpoint", sub.Endpoint,
			"notification_id", n.ID,
			"type", n.Type,
		)
		return push.DeliveryResult{Endpoint: sub.Endpoint, Success: true, Simulated: true}
	}

	body, err := json.Marshal(d.builder.Build(n))
	if err != nil {
		return push.DeliveryResult{Endpoint: sub.Endpoint, Error: "marshal payload: " + err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err = d.transport.Send(sendCtx, sub, body)
	switch {
	case err == nil:
		return push.DeliveryResult{Endpoint: sub.Endpoint, Success: true}
	case errors.Is(err, push.ErrSubscriptionGone):
		d.logger.Info("Subscription expired; flagging for removal", "endpoint", sub.Endpoint)
		return push.DeliveryResult{
			Endpoint:     sub.Endpoint,
			Error:        "subscription expired",
			ShouldRemove: true,
		}
	default:
		// Transient: timeout, 5xx, network. Retries are an upstream policy.
		d.logger.Warn("Push delivery failed", "endpoint", sub.Endpoint, "err", err)
		return push.DeliveryResult{Endpoint: sub.Endpoint, Error: err.Error()}
	}
}
