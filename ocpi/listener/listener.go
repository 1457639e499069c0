package listener

import (
	"context"
	"encoding/json"
	"evroam/event"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const operatorsEndpoint = "/operators/"

type Requester interface {
	Do(ctx context.Context, method, endpoint string, data interface{}) (json.RawMessage, error)
}

// Listener pushes operator changes to the OCPI hub.
type Listener struct {
	client Requester
}

func New(client Requester) *Listener {
	return &Listener{
		client: client,
	}
}

type statusUpdate struct {
	Status      string    `json:"status"`
	AsOf        time.Time `json:"as_of"`
	LastUpdated time.Time `json:"last_updated"`
}

func (l *Listener) Name() string {
	return "ocpi"
}

func (l *Listener) Handle(ctx context.Context, ev event.Event) error {
	endpoint := operatorsEndpoint + url.PathEscape(string(ev.EntityRef()))
	var err error
	switch e := ev.(type) {
	case event.AdminStatusChanged:
		_, err = l.client.Do(ctx, http.MethodPut, endpoint+"/admin_status", statusUpdate{
			Status:      string(e.New.Value()),
			AsOf:        e.New.AsOf(),
			LastUpdated: e.Time,
		})
	case event.StatusChanged:
		_, err = l.client.Do(ctx, http.MethodPut, endpoint+"/status", statusUpdate{
			Status:      string(e.New.Value()),
			AsOf:        e.New.AsOf(),
			LastUpdated: e.Time,
		})
	case event.DataChanged:
		value, _ := e.NewValue.Get()
		_, err = l.client.Do(ctx, http.MethodPatch, endpoint, map[string]interface{}{
			e.Property:     value,
			"last_updated": e.Time,
		})
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return fmt.Errorf("ocpi %s: %w", ev.Variant(), err)
	}
	return nil
}
