package payload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haulmatch/go-push-service/internal/payload"
	"github.com/haulmatch/go-push-service/pkg/push"
)

func newBuilder() *payload.Builder {
	return payload.NewBuilder("HaulMatch", "https://app.haulmatch.test/")
}

func TestBuild_TitleAndBody(t *testing.T) {
	b := newBuilder()

	p := b.Build(push.Notification{
		ID:      "n-1",
		Type:    push.TypeBidAccepted,
		Title:   "Bid accepted",
		Message: "Your bid on shipment #42 was accepted.",
	})

	assert.Equal(t, "HaulMatch: Bid accepted", p.Title)
	assert.Equal(t, "Your bid on shipment #42 was accepted.", p.Body)
	assert.Equal(t, "n-1", p.Tag)
	assert.False(t, p.Silent)
}

func TestBuild_TagFallbackIsUnique(t *testing.T) {
	b := newBuilder()
	n := push.Notification{Type: push.TypeShipmentCreated, Title: "New"}

	first := b.Build(n)
	second := b.Build(n)

	require.NotEmpty(t, first.Tag)
	require.NotEmpty(t, second.Tag)
	assert.NotEqual(t, first.Tag, second.Tag)
}

func TestBuild_URLResolutionOrder(t *testing.T) {
	b := newBuilder()

	t.Run("first action URL wins", func(t *testing.T) {
		p := b.Build(push.Notification{
			Type: push.TypeBidAccepted,
			Actions: []push.Action{
				{ID: "open", Label: "Open", URL: "/shipments/42"},
				{ID: "dismiss", Label: "Dismiss"},
			},
		})
		assert.Equal(t, "https://app.haulmatch.test/shipments/42", p.Data.URL)
	})

	t.Run("empty action URL falls through to type route", func(t *testing.T) {
		p := b.Build(push.Notification{
			Type:    push.TypeBidAccepted,
			Actions: []push.Action{{ID: "ok", Label: "OK"}},
		})
		assert.Equal(t, "https://app.haulmatch.test/logistics/dashboard", p.Data.URL)
	})

	t.Run("no actions uses type route", func(t *testing.T) {
		p := b.Build(push.Notification{Type: push.TypePaymentFailed})
		assert.Equal(t, "https://app.haulmatch.test/billing", p.Data.URL)
	})

	t.Run("unknown type uses default route", func(t *testing.T) {
		p := b.Build(push.Notification{Type: push.Type("something_new")})
		assert.Equal(t, "https://app.haulmatch.test/notifications", p.Data.URL)
	})
}

func TestBuild_ActionCount(t *testing.T) {
	b := newBuilder()

	cases := []struct {
		name    string
		actions []push.Action
		want    int
	}{
		{"zero actions synthesizes one", nil, 1},
		{"one action kept", []push.Action{{ID: "a", Label: "A"}}, 1},
		{"two actions kept", []push.Action{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}}, 2},
		{"three actions capped at two", []push.Action{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}, {ID: "c", Label: "C"}}, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := b.Build(push.Notification{Type: push.TypeBidReceived, Actions: tc.actions})
			require.Len(t, p.Actions, tc.want)
		})
	}

	t.Run("synthesized default is view", func(t *testing.T) {
		p := b.Build(push.Notification{Type: push.TypeBidReceived})
		assert.Equal(t, "view", p.Actions[0].Action)
		assert.Equal(t, "View", p.Actions[0].Title)
	})
}

func TestRequiresInteraction(t *testing.T) {
	cases := []struct {
		name     string
		notif    push.Notification
		expected bool
	}{
		{"bid_accepted is high priority by type", push.Notification{Type: push.TypeBidAccepted}, true},
		{"shipment_created is not", push.Notification{Type: push.TypeShipmentCreated}, false},
		{"new_shipment_available is not", push.Notification{Type: push.TypeNewShipmentAvailable}, false},
		{"dispute_created is high priority by type", push.Notification{Type: push.TypeDisputeCreated}, true},
		{"urgent priority overrides any type", push.Notification{Type: push.TypeShipmentCreated, Priority: push.PriorityUrgent}, true},
		{"high priority overrides any type", push.Notification{Type: push.Type("misc"), Priority: push.PriorityHigh}, true},
		{"normal priority does not", push.Notification{Type: push.TypeShipmentCreated, Priority: push.PriorityNormal}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, payload.RequiresInteraction(tc.notif))
		})
	}
}

func TestBuild_MetadataCarriedThrough(t *testing.T) {
	b := newBuilder()
	meta := map[string]string{"shipment_id": "42", "bid_id": "7"}

	p := b.Build(push.Notification{ID: "n-2", Type: push.TypeBidReceived, Metadata: meta})

	assert.Equal(t, "n-2", p.Data.NotificationID)
	assert.Equal(t, "bid_received", p.Data.Type)
	assert.Equal(t, meta, p.Data.Metadata)
}
