package notify

import "context"

// Publisher delivers chat events to subscribers. Handlers depend on it
// rather than on a concrete Hub.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, evt Event) error { return f(ctx, evt) }

// Discard is a Publisher that drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
