// Package api holds the HTTP handlers the service exposes: subscription
// registration and the gated location-update ingest.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/haulmatch/go-push-service/pkg/push"
)

type SubscriptionAPI struct {
	Store  push.SubscriptionStore
	Logger *slog.Logger
}

func NewSubscriptionAPI(store push.SubscriptionStore, logger *slog.Logger) *SubscriptionAPI {
	return &SubscriptionAPI{
		Store:  store,
		Logger: logger,
	}
}

// registerRequest mirrors PushSubscription.toJSON() from the browser.
type registerRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (api *SubscriptionAPI) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Logger.Error("Register: JSON decode failed", "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, "invalid subscription json")
		return
	}

	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		api.Logger.Warn("Register: validation failed", "reason", "missing fields")
		response.WriteJSONError(w, http.StatusBadRequest, "incomplete subscription object")
		return
	}

	sub := push.Subscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		Keys: push.SubscriptionKeys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	}

	if err := api.Store.Register(ctx, userID, sub); err != nil {
		api.Logger.Error("failed to register subscription", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	api.Logger.Info("Subscription registered", "user", userID, "endpoint", sub.Endpoint)

	w.WriteHeader(http.StatusNoContent)
}

type unregisterRequest struct {
	Endpoint string `json:"endpoint"`
}

func (api *SubscriptionAPI) Unregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req unregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Endpoint == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing endpoint")
		return
	}

	if err := api.Store.Unregister(ctx, userID, req.Endpoint); err != nil {
		api.Logger.Warn("failed to unregister subscription", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to unregister")
		return
	}
	api.Logger.Info("Subscription unregistered", "user", userID, "endpoint", req.Endpoint)

	w.WriteHeader(http.StatusNoContent)
}
