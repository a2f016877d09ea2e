package progression

import (
	"context"
	"fmt"

	"leanquest/internal/client"
)

// HTTPBackend implements Backend over the submission pipeline, inheriting its
// refresh coalescing and 429 backoff.
type HTTPBackend struct {
	pipeline *client.Pipeline
}

func NewHTTPBackend(pipeline *client.Pipeline) *HTTPBackend {
	return &HTTPBackend{pipeline: pipeline}
}

func (b *HTTPBackend) SubmitResult(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := b.pipeline.Post(ctx, "/api/submissions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) FetchPlayer(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := b.pipeline.Get(ctx, "/api/users/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) FetchNotifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := b.pipeline.Get(ctx, "/api/notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *HTTPBackend) MarkNotificationRead(ctx context.Context, id string) error {
	return b.pipeline.Put(ctx, fmt.Sprintf("/api/notifications/%s/read", id), nil, nil)
}

func (b *HTTPBackend) MarkAllNotificationsRead(ctx context.Context) error {
	return b.pipeline.Put(ctx, "/api/notifications/read-all", nil, nil)
}
