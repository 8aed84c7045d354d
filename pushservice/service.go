// Package pushservice assembles the delivery pipeline, the subscription API
// and the rate-limited location ingest into one runnable service.
package pushservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/haulmatch/go-push-service/internal/api"
	"github.com/haulmatch/go-push-service/internal/dispatch"
	"github.com/haulmatch/go-push-service/internal/payload"
	"github.com/haulmatch/go-push-service/internal/pipeline"
	"github.com/haulmatch/go-push-service/internal/ratelimit"
	"github.com/haulmatch/go-push-service/pkg/push"
	"github.com/haulmatch/go-push-service/pushservice/config"
)

// sendTimeout bounds each push transport call inside the pipeline.
const sendTimeout = 10 * time.Second

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[push.NotificationRequest]
	bulk            *dispatch.BulkDispatcher
	logger          *slog.Logger
}

// New assembles the service. A nil transport selects simulated delivery, the
// expected state in environments without VAPID credentials.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	transport push.Transport,
	store push.SubscriptionStore,
	rateStore ratelimit.Store,
	locationSink api.LocationSink,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Dispatch core
	builder := payload.NewBuilder(cfg.Frontend.AppName, cfg.Frontend.BaseURL)
	dispatcher := dispatch.NewDispatcher(transport, builder, sendTimeout, logger)
	bulk := dispatch.NewBulkDispatcher(dispatcher, cfg.MaxDispatchConcurrency, logger)

	// 3. Pipeline
	processor := pipeline.NewProcessor(bulk, store, logger)
	streamingService, err := messagepipeline.NewStreamingService[push.NotificationRequest](
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.NotificationRequestTransformer,
		processor,
		slog.New(slog.DiscardHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. Rate limiter (invalid policy is fatal, unlike missing VAPID keys)
	limiter, err := ratelimit.NewLimiter(rateStore, cfg.RateLimit.LocationWindow, cfg.RateLimit.LocationMax)
	if err != nil {
		return nil, fmt.Errorf("failed to create location rate limiter: %w", err)
	}
	locationGate := ratelimit.Middleware(limiter, api.LocationRateKey, logger)

	// 5. APIs
	subscriptionAPI := api.NewSubscriptionAPI(store, logger)
	locationAPI := api.NewLocationAPI(locationSink, logger)

	// Register Routes
	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	// 1. Subscription lifecycle
	handle("PUT /api/v1/subscriptions", subscriptionAPI.Register)
	handle("DELETE /api/v1/subscriptions", subscriptionAPI.Unregister)

	// 2. Location ingest: auth first so the gate can key on the user.
	mux.Handle("POST /api/v1/shipments/{shipmentID}/location",
		corsMiddleware(authMiddleware(locationGate(http.HandlerFunc(locationAPI.Update)))))

	// 3. Global OPTIONS for the API namespace (CORS preflight)
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Just returns 200 OK with CORS headers handled by middleware
	})))

	// 4. Prometheus scrape endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		bulk:            bulk,
		logger:          logger,
	}, nil
}

// DispatchNotification fans one notification out to an explicit subscription
// set, one result per subscription. This is the direct entry point for
// in-process callers; event traffic goes through the pipeline instead.
func (w *Wrapper) DispatchNotification(ctx context.Context, n push.Notification, subs []push.Subscription) []push.DeliveryResult {
	return w.bulk.SendToMany(ctx, subs, n)
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
