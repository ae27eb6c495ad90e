package registry

import (
	"github.com/ethereum/go-ethereum/event"

	"github.com/rotblauer/vtsproxy/resource"
)

// EventKind enumerates the generator lifecycle transitions adminserver
// streams over its websocket.
type EventKind string

const (
	EventAdded         EventKind = "added"
	EventRemoved       EventKind = "removed"
	EventReplaced      EventKind = "replaced"
	EventPrepareFailed EventKind = "prepareFailed"
	EventReady         EventKind = "ready"
)

// Event is one published generator lifecycle notification, grounded on
// daemon/tiled/daemon.go's TilingResponse feed payload (its
// tilingEvents) but generalized from one tiling outcome to any
// registry transition.
type Event struct {
	Kind  EventKind
	ID    resource.ID
	Error string
}

// Events wraps an event.FeedOf[Event] (github.com/ethereum/go-ethereum/
// event), the same events.NewStoredTrackFeed idiom applied to
// generator lifecycle instead of cat track ingestion.
type Events struct {
	feed event.FeedOf[Event]
}

func NewEvents() *Events { return &Events{} }

// Publish sends an event to every current subscriber. Sends are
// best-effort: a feed with no subscribers drops the event.
func (e *Events) Publish(ev Event) {
	e.feed.Send(ev)
}

// Subscribe registers ch to receive every future event until the
// returned subscription is unsubscribed.
func (e *Events) Subscribe(ch chan<- Event) event.Subscription {
	return e.feed.Subscribe(ch)
}
