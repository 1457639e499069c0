package telegram

import (
	"context"
	"evroam/event"
	"evroam/models"
	"evroam/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLog struct{}

func (nopLog) FeatureEvent(string, string, string) {}
func (nopLog) Debug(string)                        {}
func (nopLog) Warn(string)                         {}
func (nopLog) Error(string, error)                 {}

type memorySubscriptions struct {
	added   []models.UserSubscription
	deleted []int
}

func (m *memorySubscriptions) GetSubscriptions() ([]models.UserSubscription, error) {
	return m.added, nil
}

func (m *memorySubscriptions) AddSubscription(subscription *models.UserSubscription) error {
	m.added = append(m.added, *subscription)
	return nil
}

func (m *memorySubscriptions) DeleteSubscription(subscription *models.UserSubscription) error {
	m.deleted = append(m.deleted, subscription.UserID)
	return nil
}

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHandleQueuesStatusChanges(t *testing.T) {
	b := newBot(nopLog{})

	require.NoError(t, b.Handle(context.Background(), event.StatusChanged{
		Entity: "DE*ABC",
		Old:    types.NewTimestamped(types.OperationalStatusAvailable, at),
		New:    types.NewTimestamped(types.OperationalStatusOffline, at.Add(time.Minute)),
	}))
	require.NoError(t, b.Handle(context.Background(), event.DataChanged{Entity: "DE*ABC", Property: "name"}))

	require.Len(t, b.event, 1)
	msg := <-b.event
	assert.Equal(t, "DE*ABC", msg.OperatorId)
	assert.Equal(t, "*DE\\*ABC*: status `Available` \\-\\> `Offline`\n", msg.Text)
}

func TestHandleRespectsContextWhenQueueIsFull(t *testing.T) {
	b := newBot(nopLog{})
	b.event = make(chan MessageContent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Handle(ctx, event.AdminStatusChanged{Entity: "DE*ABC"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandsManageSubscriptions(t *testing.T) {
	b := newBot(nopLog{})
	db := &memorySubscriptions{}
	b.SetDatabase(db)

	reply := b.command(1, "anna", "start", "")
	assert.Equal(t, "Hello *anna*, you are now subscribed to updates", reply)
	reply = b.command(2, "ben", "start", " NL*XYZ ")
	assert.Contains(t, reply, "NL\\*XYZ")
	require.Len(t, db.added, 2)
	assert.Equal(t, "NL*XYZ", db.added[1].OperatorId)

	assert.ElementsMatch(t, []int64{1, 2}, b.recipients("NL*XYZ"))
	assert.Equal(t, []int64{1}, b.recipients("DE*ABC"))

	assert.Equal(t, "Your subscription has been removed", b.command(1, "anna", "stop", ""))
	assert.Equal(t, []int{1}, db.deleted)
	assert.Empty(t, b.recipients("DE*ABC"))

	assert.Contains(t, b.command(2, "ben", "status", ""), "Active subscriptions: 1")
	assert.Empty(t, b.command(2, "ben", "unknown", ""))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a\\_b\\.c\\!", sanitize("a_b.c!"))
}
