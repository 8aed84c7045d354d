package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haulmatch/go-push-service/internal/api"
	"github.com/haulmatch/go-push-service/internal/ratelimit"
)

type MockLocationSink struct {
	mock.Mock
}

func (m *MockLocationSink) Record(ctx context.Context, userID string, update api.LocationUpdate) error {
	return m.Called(ctx, userID, update).Error(0)
}

// newLocationMux routes through a real ServeMux so PathValue is populated,
// with the rate limiter in its real middleware position.
func newLocationMux(t *testing.T, sink api.LocationSink) *http.ServeMux {
	t.Helper()

	limiter, err := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.LocationUpdateWindow, ratelimit.LocationUpdateMax)
	require.NoError(t, err)

	locationAPI := api.NewLocationAPI(sink, newTestLogger())
	gate := ratelimit.Middleware(limiter, api.LocationRateKey, newTestLogger())

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/shipments/{shipmentID}/location", gate(http.HandlerFunc(locationAPI.Update)))
	return mux
}

func postLocation(mux *http.ServeMux, userID, shipmentID string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(api.LocationUpdate{Latitude: 52.52, Longitude: 13.405, RecordedAt: time.Now()})
	req := httptest.NewRequest("POST", "/api/v1/shipments/"+shipmentID+"/location", bytes.NewReader(body))
	if userID != "" {
		req = withUser(req, userID)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestLocationUpdate_AdmittedAndRecorded(t *testing.T) {
	sink := new(MockLocationSink)
	sink.On("Record", mock.Anything, "carrier-1", mock.MatchedBy(func(u api.LocationUpdate) bool {
		return u.ShipmentID == "S1" && u.Latitude == 52.52
	})).Return(nil)

	mux := newLocationMux(t, sink)
	rec := postLocation(mux, "carrier-1", "S1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	sink.AssertExpectations(t)
}

func TestLocationUpdate_ThrottledPerShipment(t *testing.T) {
	sink := new(MockLocationSink)
	sink.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	mux := newLocationMux(t, sink)

	// Same (user, shipment): second update inside the window is denied.
	assert.Equal(t, http.StatusOK, postLocation(mux, "carrier-1", "S1").Code)
	second := postLocation(mux, "carrier-1", "S1")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "rate limit exceeded")

	// A different shipment for the same carrier is an independent bucket.
	assert.Equal(t, http.StatusOK, postLocation(mux, "carrier-1", "S2").Code)
}

func TestLocationUpdate_UnauthenticatedSkipsGate(t *testing.T) {
	sink := new(MockLocationSink)
	mux := newLocationMux(t, sink)

	// No user in context: the gate has no key, and the handler rejects.
	rec := postLocation(mux, "", "S1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestLocationUpdate_RejectedUpdateDoesNotConsumeSlot(t *testing.T) {
	sink := new(MockLocationSink)
	sink.On("Record", mock.Anything, "carrier-1", mock.Anything).Return(assert.AnError).Once()
	sink.On("Record", mock.Anything, "carrier-1", mock.Anything).Return(nil).Once()

	mux := newLocationMux(t, sink)

	// First attempt fails downstream (500): its slot is refunded, so the
	// immediate retry is still admitted.
	assert.Equal(t, http.StatusInternalServerError, postLocation(mux, "carrier-1", "S1").Code)
	assert.Equal(t, http.StatusOK, postLocation(mux, "carrier-1", "S1").Code)
	sink.AssertExpectations(t)
}
