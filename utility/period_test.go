package utility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		20 * time.Second:          "just now",
		5 * time.Minute:           "5 min ago",
		3*time.Hour + time.Minute: "3 h ago",
		50 * time.Hour:            "2 d ago",
		-90 * time.Second:         "1 min ago",
	}
	for age, want := range cases {
		assert.Equal(t, want, TimeAgo(now.Add(-age), now), age.String())
	}
}
