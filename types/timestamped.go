package types

import (
	"cmp"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamped is an immutable pair of a value and the instant it was observed.
// The zero value holds the zero value of T as of the zero time.
type Timestamped[T cmp.Ordered] struct {
	value T
	asOf  time.Time
}

func NewTimestamped[T cmp.Ordered](value T, asOf time.Time) Timestamped[T] {
	return Timestamped[T]{value: value, asOf: asOf}
}

func (t Timestamped[T]) Value() T {
	return t.value
}

func (t Timestamped[T]) AsOf() time.Time {
	return t.asOf
}

// Equal reports whether both the value and the instant are the same.
func (t Timestamped[T]) Equal(o Timestamped[T]) bool {
	return t.value == o.value && t.asOf.Equal(o.asOf)
}

// Before reports whether t was observed strictly earlier than o.
func (t Timestamped[T]) Before(o Timestamped[T]) bool {
	return t.asOf.Before(o.asOf)
}

// Compare orders by instant, then by value. It returns 0 only when Equal is true.
func (t Timestamped[T]) Compare(o Timestamped[T]) int {
	if c := t.asOf.Compare(o.asOf); c != 0 {
		return c
	}
	return cmp.Compare(t.value, o.value)
}

func (t Timestamped[T]) String() string {
	return fmt.Sprintf("%v@%s", t.value, t.asOf.Format(time.RFC3339Nano))
}

type timestampedJSON[T cmp.Ordered] struct {
	Value T         `json:"value"`
	AsOf  time.Time `json:"as_of"`
}

func (t Timestamped[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(timestampedJSON[T]{Value: t.value, AsOf: t.asOf})
}

func (t *Timestamped[T]) UnmarshalJSON(data []byte) error {
	var v timestampedJSON[T]
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = NewTimestamped(v.Value, v.AsOf)
	return nil
}
