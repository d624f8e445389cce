package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// LifecycleEventArgs carries a lifecycle change to asynchronous consumers.
// River serializes this as JSON into its job queue table. It holds a snapshot
// of the entity at the time of the change, so the worker never needs to
// query the database.
type LifecycleEventArgs struct {
	Verb     string `json:"verb"`
	Family   string `json:"family"`
	EntityID string `json:"entity_id"`
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Status   string `json:"status"`
	Version  int64  `json:"version"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (LifecycleEventArgs) Kind() string { return "lifecycle.changed" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle change as an async job in River.
func (p *Publisher) Publish(ctx context.Context, verb domain.Verb, e domain.Entity) error {
	_, err := p.client.Insert(ctx, LifecycleEventArgs{
		Verb:     string(verb),
		Family:   string(e.Family),
		EntityID: e.ID,
		Title:    e.Title,
		Slug:     e.Slug,
		Status:   string(e.Status),
		Version:  e.Version,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing lifecycle event job: %w", err)
	}
	return nil
}
