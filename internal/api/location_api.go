package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/haulmatch/go-push-service/internal/ratelimit"
)

// LocationUpdate is a single live-tracking position report from a carrier's
// device.
type LocationUpdate struct {
	ShipmentID string    `json:"shipment_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

// LocationSink receives admitted location updates. The tracking path behind
// it (persistence, websocket broadcast) is outside this service.
type LocationSink interface {
	Record(ctx context.Context, userID string, update LocationUpdate) error
}

type LocationAPI struct {
	Sink   LocationSink
	Logger *slog.Logger
}

func NewLocationAPI(sink LocationSink, logger *slog.Logger) *LocationAPI {
	return &LocationAPI{
		Sink:   sink,
		Logger: logger,
	}
}

// Update handles POST /api/v1/shipments/{shipmentID}/location. It runs
// behind the rate-limit middleware; by the time we are here the update has
// been admitted.
func (api *LocationAPI) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var update LocationUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	update.ShipmentID = r.PathValue("shipmentID")
	if update.ShipmentID == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing shipment id")
		return
	}
	if update.RecordedAt.IsZero() {
		update.RecordedAt = time.Now()
	}

	if err := api.Sink.Record(ctx, userID, update); err != nil {
		api.Logger.Error("failed to record location update", "shipment_id", update.ShipmentID, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to record update")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// LocationRateKey derives the limiter key for a location update request.
// Empty (skip) when the user or shipment is unknown; those requests are
// rejected by the handler itself.
//
// The auth middleware must run before the rate limiter for the user handle
// to be present.
func LocationRateKey(r *http.Request) string {
	userID, ok := middleware.GetUserHandleFromContext(r.Context())
	if !ok {
		return ""
	}
	shipmentID := r.PathValue("shipmentID")
	if shipmentID == "" {
		return ""
	}
	return ratelimit.LocationUpdateKey(userID, shipmentID)
}
