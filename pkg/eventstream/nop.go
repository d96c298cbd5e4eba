package eventstream

import "context"

// Nop returns a Publisher that drops every event. Used when no stream is
// configured.
func Nop() Publisher {
	return nopPublisher{}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

func (nopPublisher) Close() error { return nil }

var _ Publisher = nopPublisher{}
