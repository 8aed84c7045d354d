// Package web adapts the webpush-go library to the core's Transport
// contract: one subscription, one serialized payload, one classified outcome.
package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"context"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/haulmatch/go-push-service/pkg/push"
)

// defaultTTL is how long the push service should hold an undelivered
// notification before dropping it.
const defaultTTL = 60

// Config holds the VAPID credentials used to sign push requests.
type Config struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

// Configured reports whether all credentials required for real delivery are
// present. When false the dispatcher runs in simulated mode instead.
func (c Config) Configured() bool {
	return c.PublicKey != "" && c.PrivateKey != "" && c.SubscriberEmail != ""
}

type Transport struct {
	subscriber string
	privateKey string
	publicKey  string
	logger     *slog.Logger
	httpClient *http.Client
}

func NewTransport(cfg Config, logger *slog.Logger) *Transport {
	return &Transport{
		subscriber: cfg.SubscriberEmail,
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		logger:     logger.With("component", "WebPushTransport"),
		httpClient: &http.Client{},
	}
}

// Send delivers the payload to a single subscription and classifies the
// provider's answer. A 410 Gone (or 404 on some providers) comes back as
// push.ErrSubscriptionGone; everything else that is not a 2xx is a transient
// error for the caller to report.
func (t *Transport) Send(ctx context.Context, sub push.Subscription, payload []byte) error {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, s, &webpush.Options{
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             defaultTTL,
		HTTPClient:      t.httpClient,
	})
	if err != nil {
		// DNS failure, connection refused, context timeout. Transient.
		return fmt.Errorf("webpush send to %s: %w", sub.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusGone, resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("status %d: %w", resp.StatusCode, push.ErrSubscriptionGone)
	default:
		t.logger.Warn("Push service rejected delivery", "status", resp.StatusCode, "endpoint", sub.Endpoint)
		return fmt.Errorf("push service rejected delivery: status %d", resp.StatusCode)
	}
}
