// Package events publishes wardrobe and account events to a topic exchange.
package events

import (
	"context"
	"time"
)

// Routing keys.
const (
	UserRegistered = "user.registered"
	OutfitSaved    = "outfit.saved"
	OutfitRenamed  = "outfit.renamed"
	OutfitDeleted  = "outfit.deleted"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, key string, event any) error { return nil }
func (NoopPub) Close() error                                              { return nil }

type requestIDKey struct{}

// WithRequestID attaches the request id carried in the X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type UserRegisteredEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type OutfitEvent struct {
	OutfitID string    `json:"outfit_id"`
	UserID   string    `json:"user_id"`
	Style    string    `json:"style,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	At       time.Time `json:"at"`
}
