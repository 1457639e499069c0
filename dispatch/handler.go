package dispatch

import (
	"context"
	"evroam/event"
	"fmt"
)

// Handler consumes change events. It runs on the subscription's own goroutine,
// never on the mutator's, and must treat the event as read-only.
type Handler interface {
	Handle(ctx context.Context, ev event.Event) error
}

type HandlerFunc func(ctx context.Context, ev event.Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev event.Event) error {
	return f(ctx, ev)
}

// Named is implemented by handlers that want a label in logs and metrics.
type Named interface {
	Name() string
}

type namedHandler struct {
	Handler
	name string
}

func (h namedHandler) Name() string {
	return h.name
}

// WithName labels a handler for logs and metrics.
func WithName(name string, h Handler) Handler {
	return namedHandler{Handler: h, name: name}
}

func handlerName(h Handler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return ""
}

// HandlerFailure describes one failed handler invocation.
type HandlerFailure struct {
	Ref            event.Ref
	Variant        event.Variant
	SubscriptionID string
	Handler        string
	Sequence       uint64
	Err            error
}

func (f *HandlerFailure) Error() string {
	name := f.Handler
	if name == "" {
		name = f.SubscriptionID
	}
	return fmt.Sprintf("handler %s failed on %s #%d for %s: %v", name, f.Variant, f.Sequence, f.Ref, f.Err)
}

func (f *HandlerFailure) Unwrap() error {
	return f.Err
}

// Reporter is the observability sink for handler failures.
type Reporter interface {
	HandlerFailed(failure *HandlerFailure)
}

type ReporterFunc func(failure *HandlerFailure)

func (f ReporterFunc) HandlerFailed(failure *HandlerFailure) {
	f(failure)
}
