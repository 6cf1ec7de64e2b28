// Package notifications reports the outcome of a run to shoutrrr services.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"

	"github.com/containrrr/shoutrrr"
	shoutrrrtypes "github.com/containrrr/shoutrrr/pkg/types"
)

var (
	ErrInvalidURI   = errors.New("invalid URI")
	ErrUnknownEvent = errors.New("unknown event")
)

type Event string

const (
	Complete Event = "complete"
	Error    Event = "error"
)

func (e Event) IsValid() bool {
	return e == Complete || e == Error
}

type route struct {
	event Event
	uri   string
}

// Notifications maps run events to shoutrrr URIs. The zero value sends nothing.
type Notifications struct {
	Title  string
	Logger *slog.Logger

	routes []route
}

func (n *Notifications) AddURI(event Event, uri string) error {
	if !event.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if u, err := url.Parse(uri); err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	n.routes = append(n.routes, route{event, uri})
	return nil
}

// Routes yields every registered URI with its event, in the order they were added.
func (n *Notifications) Routes() iter.Seq2[Event, string] {
	return func(yield func(Event, string) bool) {
		for _, r := range n.routes {
			if !yield(r.event, r.uri) {
				return
			}
		}
	}
}

func (n *Notifications) uris(event Event) []string {
	var uris []string
	for ev, uri := range n.Routes() {
		if ev == event {
			uris = append(uris, uri)
		}
	}
	return uris
}

func (n *Notifications) Sendf(ctx context.Context, event Event, f string, a ...any) {
	n.Send(ctx, event, fmt.Sprintf(f, a...))
}

// Send delivers message to the services listening for event. Delivery errors are
// only logged.
func (n *Notifications) Send(ctx context.Context, event Event, message string) {
	uris := n.uris(event)
	if len(uris) == 0 {
		return
	}

	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("event", event, "services", len(uris))

	sender, err := shoutrrr.CreateSender(uris...)
	if err != nil {
		logger.ErrorContext(ctx, "creating notification sender", "err", err)
		return
	}

	params := shoutrrrtypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	if err := errors.Join(sender.Send(message, &params)...); err != nil {
		logger.ErrorContext(ctx, "sending notification", "err", err)
		return
	}
	logger.DebugContext(ctx, "sent notification")
}
