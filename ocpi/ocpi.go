package ocpi

import (
	"context"
	"evroam/event"
	"evroam/ocpi/client"
	"evroam/ocpi/listener"

	"github.com/rs/zerolog"
)

// OCPI forwards operator changes to the roaming hub.
type OCPI struct {
	listener *listener.Listener
}

func New(url, token string, log zerolog.Logger) *OCPI {
	cl := client.New(url, token, log)
	return &OCPI{
		listener: listener.New(cl),
	}
}

func (o *OCPI) Name() string {
	return o.listener.Name()
}

func (o *OCPI) Handle(ctx context.Context, ev event.Event) error {
	return o.listener.Handle(ctx, ev)
}
