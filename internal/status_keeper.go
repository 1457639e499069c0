package internal

import (
	"context"
	"evroam/event"
	"fmt"
	"time"
)

type StatusStore interface {
	SaveAdminStatus(id, status string, asOf time.Time) error
	SaveStatus(id, status string, asOf time.Time) error
	SaveProperty(id, name string, value any, isSet bool) error
}

// StatusKeeper persists the last known status pair and attributes of every
// operator it is subscribed to.
type StatusKeeper struct {
	store StatusStore
}

func NewStatusKeeper(store StatusStore) *StatusKeeper {
	return &StatusKeeper{store: store}
}

func (k *StatusKeeper) Name() string {
	return "status-keeper"
}

func (k *StatusKeeper) Handle(_ context.Context, ev event.Event) error {
	id := string(ev.EntityRef())
	var err error
	switch e := ev.(type) {
	case event.AdminStatusChanged:
		err = k.store.SaveAdminStatus(id, string(e.New.Value()), e.New.AsOf())
	case event.StatusChanged:
		err = k.store.SaveStatus(id, string(e.New.Value()), e.New.AsOf())
	case event.DataChanged:
		value, ok := e.NewValue.Get()
		err = k.store.SaveProperty(id, e.Property, value, ok)
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return fmt.Errorf("save %s of %s: %w", ev.Variant(), id, err)
	}
	return nil
}
