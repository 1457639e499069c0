package event

import (
	"encoding/json"
	"evroam/types"
	"fmt"
	"time"
)

type envelope struct {
	Type      string    `json:"type"`
	Operator  Ref       `json:"operator_id"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`

	Property string               `json:"property,omitempty"`
	OldValue *types.Optional[any] `json:"old_value,omitempty"`
	NewValue *types.Optional[any] `json:"new_value,omitempty"`

	Old any `json:"old,omitempty"`
	New any `json:"new,omitempty"`
}

// Marshal encodes an event with a type tag, as sent to remote consumers.
func Marshal(ev Event) ([]byte, error) {
	env := envelope{
		Type:      ev.Variant().String(),
		Operator:  ev.EntityRef(),
		Timestamp: ev.Timestamp(),
		Sequence:  ev.Sequence(),
	}
	switch e := ev.(type) {
	case DataChanged:
		env.Property = e.Property
		if e.OldValue.IsSet() {
			env.OldValue = &e.OldValue
		}
		if e.NewValue.IsSet() {
			env.NewValue = &e.NewValue
		}
	case AdminStatusChanged:
		env.Old, env.New = e.Old, e.New
	case StatusChanged:
		env.Old, env.New = e.Old, e.New
	default:
		return nil, fmt.Errorf("marshal event: unsupported type %T", ev)
	}
	return json.Marshal(env)
}
