package template

import (
	"context"

	"github.com/ajitpratap0/colmap/pkg/column"
)

// Event is delivered to listeners around every write.
type Event interface {
	// Kind names the event in logs and span events.
	Kind() string
}

// EntityPrePersist is fired with the Go value before it is converted.
type EntityPrePersist struct{ Value any }

// PrePersist is fired with the converted column entity before it reaches
// storage. Listeners may add or replace columns.
type PrePersist struct{ Entity *column.Entity }

// PostPersist is fired with the column entity after storage accepted it.
type PostPersist struct{ Entity *column.Entity }

// EntityPostPersist is fired with the Go value after storage accepted it.
type EntityPostPersist struct{ Value any }

func (EntityPrePersist) Kind() string  { return "entity_pre_persist" }
func (PrePersist) Kind() string        { return "pre_persist" }
func (PostPersist) Kind() string       { return "post_persist" }
func (EntityPostPersist) Kind() string { return "entity_post_persist" }

// Listener observes template writes. An error returned for a pre-persist
// event aborts the write before storage is touched.
type Listener interface {
	Fire(ctx context.Context, e Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, e Event) error

// Fire calls f.
func (f ListenerFunc) Fire(ctx context.Context, e Event) error { return f(ctx, e) }
