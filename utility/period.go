package utility

import (
	"fmt"
	"time"
)

// TimeAgo renders the age of t relative to now in the largest whole unit.
func TimeAgo(t, now time.Time) string {
	age := now.Sub(t)
	if age < 0 {
		age = -age
	}
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%d min ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(age/time.Hour))
	}
	return fmt.Sprintf("%d d ago", int(age/(24*time.Hour)))
}
