package register

import (
	"evroam/utility"
	"fmt"
	"time"
)

// Kind names the independently versioned state held by a register.
type Kind string

const (
	KindAdminStatus Kind = "admin_status"
	KindStatus      Kind = "status"
	KindProperty    Kind = "property"
)

// OutOfOrderError is returned when a write is older than the stored value.
// It matches utility.ErrOutOfOrderUpdate.
type OutOfOrderError struct {
	Kind     Kind
	Property string
	Stored   time.Time
	Given    time.Time
}

func (e *OutOfOrderError) Error() string {
	what := string(e.Kind)
	if e.Property != "" {
		what = fmt.Sprintf("%s %q", e.Kind, e.Property)
	}
	return fmt.Sprintf("%s: %s at %s precedes stored %s", utility.ErrOutOfOrderUpdate, what,
		e.Given.Format(time.RFC3339Nano), e.Stored.Format(time.RFC3339Nano))
}

func (e *OutOfOrderError) Is(target error) bool {
	return target == utility.ErrOutOfOrderUpdate
}
