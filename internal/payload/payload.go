// Package payload turns domain notifications into the wire-ready structure
// the browser's service worker understands. Building a payload is a pure,
// total function: every notification field may be absent and the result is
// still well-formed.
package payload

import (
	"strings"

	"github.com/google/uuid"

	"github.com/haulmatch/go-push-service/pkg/push"
)

const (
	iconPath  = "/assets/icons/icon-192x192.png"
	badgePath = "/assets/icons/badge-72x72.png"

	// maxActions is the browser-side cap; anything beyond the first two is
	// dropped before serialization.
	maxActions = 2

	defaultRoute = "/notifications"
)

// typeRoutes maps a notification type to the frontend route opened when the
// user taps a notification that carries no action URL of its own.
var typeRoutes = map[push.Type]string{
	push.TypeShipmentCreated:      "/my-shipments",
	push.TypeBidReceived:          "/my-shipments",
	push.TypeBidAccepted:          "/logistics/dashboard",
	push.TypeShipmentDelivered:    "/my-shipments",
	push.TypeVerificationApproved: "/logistics/dashboard",
	push.TypeNewShipmentAvailable: "/logistics/find-shipments",
	push.TypePaymentFailed:        "/billing",
	push.TypeDisputeCreated:       "/disputes",
}

// highPriorityTypes always render as requireInteraction regardless of the
// notification's explicit priority.
var highPriorityTypes = map[push.Type]bool{
	push.TypeBidReceived:          true,
	push.TypeBidAccepted:          true,
	push.TypeShipmentDelivered:    true,
	push.TypeVerificationApproved: true,
	push.TypePaymentFailed:        true,
	push.TypeDisputeCreated:       true,
}

// Data is the free-form block the service worker reads on notification click.
type Data struct {
	NotificationID string            `json:"notificationId"`
	Type           string            `json:"type"`
	URL            string            `json:"url"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Action is the wire shape of a single notification action button.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Payload is the structure serialized and handed to the push transport.
// Ephemeral; derived deterministically from a Notification and never stored.
type Payload struct {
	Title              string   `json:"title"`
	Body               string   `json:"body"`
	Icon               string   `json:"icon"`
	Badge              string   `json:"badge"`
	Tag                string   `json:"tag"`
	Data               Data     `json:"data"`
	Actions            []Action `json:"actions"`
	RequireInteraction bool     `json:"requireInteraction"`
	Silent             bool     `json:"silent"`
}

// Builder derives payloads for one application deployment. It carries the
// display name used as the title prefix and the frontend origin that all
// target URLs are resolved against.
type Builder struct {
	appName string
	baseURL string
}

func NewBuilder(appName, frontendBaseURL string) *Builder {
	return &Builder{
		appName: appName,
		baseURL: strings.TrimRight(frontendBaseURL, "/"),
	}
}

// Build maps a notification to its payload. The notification is never
// mutated; repeated calls for the same target produce equivalent payloads
// (modulo the generated tag when the notification has no ID).
func (b *Builder) Build(n push.Notification) Payload {
	return Payload{
		Title:              b.appName + ": " + n.Title,
		Body:               n.Message,
		Icon:               iconPath,
		Badge:              badgePath,
		Tag:                b.tag(n),
		Data:               b.data(n),
		Actions:            buildActions(n.Actions),
		RequireInteraction: RequiresInteraction(n),
		Silent:             false,
	}
}

// tag lets the browser coalesce repeated sends of the same notification.
// Without an ID we fall back to a unique value so unrelated notifications
// never collapse into each other.
func (b *Builder) tag(n push.Notification) string {
	if n.ID != "" {
		return n.ID
	}
	return uuid.NewString()
}

func (b *Builder) data(n push.Notification) Data {
	return Data{
		NotificationID: n.ID,
		Type:           string(n.Type),
		URL:            b.baseURL + resolveRoute(n),
		Metadata:       n.Metadata,
	}
}

// resolveRoute picks the click target: first action URL, then the per-type
// route table, then the notifications inbox. Never empty.
func resolveRoute(n push.Notification) string {
	if len(n.Actions) > 0 && n.Actions[0].URL != "" {
		return n.Actions[0].URL
	}
	if route, ok := typeRoutes[n.Type]; ok {
		return route
	}
	return defaultRoute
}

// buildActions surfaces at most two actions; a notification without any gets
// a single synthesized "view" action so there is always something to tap.
func buildActions(actions []push.Action) []Action {
	if len(actions) == 0 {
		return []Action{{Action: "view", Title: "View"}}
	}
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, Action{Action: a.ID, Title: a.Label})
	}
	return out
}

// RequiresInteraction reports whether the notification should stay on screen
// until the user dismisses it. True for the fixed set of high-stakes event
// types and for anything explicitly marked high or urgent.
func RequiresInteraction(n push.Notification) bool {
	if highPriorityTypes[n.Type] {
		return true
	}
	return n.Priority == push.PriorityHigh || n.Priority == push.PriorityUrgent
}
