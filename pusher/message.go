package pusher

import (
	"evroam/event"
	"fmt"
)

// Channel is the redis channel events of one operator and variant go to.
func Channel(prefix string, ref event.Ref, variant event.Variant) string {
	return fmt.Sprintf("%s:%s:%s", prefix, ref, variant)
}

// LastKey holds the most recent event of the channel.
func LastKey(prefix string, ref event.Ref, variant event.Variant) string {
	return Channel(prefix, ref, variant) + ":last"
}
