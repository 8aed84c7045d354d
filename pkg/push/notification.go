// Package push contains the public interfaces and domain models for the
// push delivery core.
package push

// Type identifies the domain event a notification was raised for.
type Type string

const (
	TypeShipmentCreated      Type = "shipment_created"
	TypeBidReceived          Type = "bid_received"
	TypeBidAccepted          Type = "bid_accepted"
	TypeShipmentDelivered    Type = "shipment_delivered"
	TypeVerificationApproved Type = "verification_approved"
	TypeNewShipmentAvailable Type = "new_shipment_available"
	TypePaymentFailed        Type = "payment_failed"
	TypeDisputeCreated       Type = "dispute_created"
)

// Priority is an optional, explicit override set by upstream domain logic.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Action is a single tappable action attached to a notification.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Notification is the domain event record handed to the dispatch core.
// It already exists upstream by the time we see it; the core treats it
// as read-only.
type Notification struct {
	ID       string            `json:"id"`
	Type     Type              `json:"type"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Actions  []Action          `json:"actions,omitempty"`
	Priority Priority          `json:"priority,omitempty"`
}

// SubscriptionKeys are the client keys issued by the browser alongside the
// endpoint. Both values are base64url strings exactly as the browser
// serialized them.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a browser-issued push endpoint owned by a single user.
// Immutable once issued; when the endpoint is revoked client-side the push
// service answers 410 and the record gets deleted, never mutated.
type Subscription struct {
	UserID   string           `json:"user_id"`
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// DeliveryResult is the outcome of one (notification, subscription) attempt.
type DeliveryResult struct {
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	// Simulated marks the degraded log-only mode used when VAPID credentials
	// are absent: reported as success, but nothing was sent.
	Simulated bool   `json:"simulated,omitempty"`
	Error     string `json:"error,omitempty"`
	// ShouldRemove tells the caller the subscription is permanently dead
	// (410 Gone). The dispatch core never deletes it itself.
	ShouldRemove bool `json:"should_remove,omitempty"`
}

// NotificationRequest is the event envelope consumed from the intake topic:
// one notification addressed to one recipient.
type NotificationRequest struct {
	RecipientID  string       `json:"recipient_id"`
	Notification Notification `json:"notification"`
}
