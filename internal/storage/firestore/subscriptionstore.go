// Package firestore persists browser push subscriptions in Cloud Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/haulmatch/go-push-service/pkg/push"
)

// Store implements push.SubscriptionStore on Firestore.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// subscriptionRecord is the internal DB representation.
type subscriptionRecord struct {
	UserID    string    `firestore:"user_id"`
	Endpoint  string    `firestore:"endpoint"`
	P256dh    string    `firestore:"p256dh"`
	Auth      string    `firestore:"auth"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Register upserts a subscription. The endpoint hash is the doc ID, so a
// browser re-registering the same endpoint overwrites rather than
// duplicates, and doc IDs stay uniform-length regardless of endpoint URLs.
func (s *Store) Register(ctx context.Context, userID string, sub push.Subscription) error {
	record := subscriptionRecord{
		UserID:    userID,
		Endpoint:  sub.Endpoint,
		P256dh:    sub.Keys.P256dh,
		Auth:      sub.Keys.Auth,
		UpdatedAt: time.Now(),
	}

	_, err := s.subscriptionRef(userID, hashEndpoint(sub.Endpoint)).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("firestore register subscription: %w", err)
	}
	return nil
}

func (s *Store) Unregister(ctx context.Context, userID string, endpoint string) error {
	_, err := s.subscriptionRef(userID, hashEndpoint(endpoint)).Delete(ctx)
	if err != nil {
		return fmt.Errorf("firestore unregister subscription: %w", err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, userID string) ([]push.Subscription, error) {
	iter := s.subscriptionsCollection(userID).Documents(ctx)
	defer iter.Stop()

	subs := make([]push.Subscription, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record subscriptionRecord
		if err := doc.DataTo(&record); err != nil {
			// Corrupt row; skip rather than fail the fan-out.
			continue
		}

		subs = append(subs, push.Subscription{
			UserID:   record.UserID,
			Endpoint: record.Endpoint,
			Keys: push.SubscriptionKeys{
				P256dh: record.P256dh,
				Auth:   record.Auth,
			},
		})
	}

	return subs, nil
}

// subscriptionRef: users/{userID}/push_subscriptions/{endpointHash}
func (s *Store) subscriptionRef(userID, docID string) *firestore.DocumentRef {
	return s.subscriptionsCollection(userID).Doc(docID)
}

func (s *Store) subscriptionsCollection(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("push_subscriptions")
}

func hashEndpoint(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:])
}
