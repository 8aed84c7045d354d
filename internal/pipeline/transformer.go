// Package pipeline contains the message processing stages between the intake
// topic and the dispatch core.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/haulmatch/go-push-service/pkg/push"
)

// NotificationRequestTransformer safely unmarshals and validates a raw
// message payload into a push.NotificationRequest.
//
// On failure it returns skip=true so the StreamingService can handle the
// Nack/DLQ logic: a malformed event is a poison pill, not a retryable fault.
func NotificationRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*push.NotificationRequest, bool, error) {
	var req push.NotificationRequest

	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal notification request from message %s: %w", msg.ID, err)
	}

	if req.RecipientID == "" {
		return nil, true, fmt.Errorf("notification request %s has no recipient", msg.ID)
	}

	return &req, false, nil
}
