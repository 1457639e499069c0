package event

import (
	"evroam/types"
	"fmt"
	"time"
)

// Ref is an opaque, stable identifier of an entity in the roaming network.
// Events carry it instead of a pointer, so they stay valid after deregistration.
type Ref string

// Variant tags the three kinds of change events.
type Variant uint8

const (
	VariantDataChanged Variant = iota + 1
	VariantAdminStatusChanged
	VariantStatusChanged
)

func AllVariants() []Variant {
	return []Variant{VariantDataChanged, VariantAdminStatusChanged, VariantStatusChanged}
}

func (v Variant) String() string {
	switch v {
	case VariantDataChanged:
		return "DataChanged"
	case VariantAdminStatusChanged:
		return "AdminStatusChanged"
	case VariantStatusChanged:
		return "StatusChanged"
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

func (v Variant) IsValid() bool {
	return v >= VariantDataChanged && v <= VariantStatusChanged
}

func ParseVariant(s string) (Variant, error) {
	for _, v := range AllVariants() {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown event variant %q", s)
}

// Event is a detected transition of one entity. Implementations are value types.
type Event interface {
	Variant() Variant
	EntityRef() Ref
	// Timestamp is the instant the change was detected.
	Timestamp() time.Time
	// Sequence is the per-entity, per-kind version produced by the write.
	Sequence() uint64
}

type DataChanged struct {
	Time     time.Time
	Entity   Ref
	Seq      uint64
	Property string
	OldValue types.Optional[any]
	NewValue types.Optional[any]
}

func (e DataChanged) Variant() Variant     { return VariantDataChanged }
func (e DataChanged) EntityRef() Ref       { return e.Entity }
func (e DataChanged) Timestamp() time.Time { return e.Time }
func (e DataChanged) Sequence() uint64     { return e.Seq }

type AdminStatusChanged struct {
	Time   time.Time
	Entity Ref
	Seq    uint64
	Old    types.Timestamped[types.AdminStatus]
	New    types.Timestamped[types.AdminStatus]
}

func (e AdminStatusChanged) Variant() Variant     { return VariantAdminStatusChanged }
func (e AdminStatusChanged) EntityRef() Ref       { return e.Entity }
func (e AdminStatusChanged) Timestamp() time.Time { return e.Time }
func (e AdminStatusChanged) Sequence() uint64     { return e.Seq }

type StatusChanged struct {
	Time   time.Time
	Entity Ref
	Seq    uint64
	Old    types.Timestamped[types.OperationalStatus]
	New    types.Timestamped[types.OperationalStatus]
}

func (e StatusChanged) Variant() Variant     { return VariantStatusChanged }
func (e StatusChanged) EntityRef() Ref       { return e.Entity }
func (e StatusChanged) Timestamp() time.Time { return e.Time }
func (e StatusChanged) Sequence() uint64     { return e.Seq }
