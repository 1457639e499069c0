package errorlistener

import (
	"errors"
	"evroam/dispatch"
	"evroam/event"
	"evroam/metrics/counters"
	"evroam/models"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLog struct{}

func (nopLog) FeatureEvent(string, string, string) {}
func (nopLog) Debug(string)                        {}
func (nopLog) Warn(string)                         {}
func (nopLog) Error(string, error)                 {}

type memoryFailures struct {
	mu      sync.Mutex
	records []*models.HandlerFailure
}

func (m *memoryFailures) WriteHandlerFailure(failure *models.HandlerFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, failure)
	return nil
}

func (m *memoryFailures) GetTodayFailureCount() ([]*models.FailureCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[[2]string]int)
	for _, r := range m.records {
		counts[[2]string{r.OperatorId, r.Variant}]++
	}
	var result []*models.FailureCounter
	for key, count := range counts {
		c := &models.FailureCounter{Count: count}
		c.ID.OperatorId = key[0]
		c.ID.Variant = key[1]
		result = append(result, c)
	}
	return result, nil
}

func (m *memoryFailures) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestHandlerFailedIsRecordedAndCounted(t *testing.T) {
	db := &memoryFailures{}
	listener := NewErrorListener(db, nopLog{})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listener.now = func() time.Time { return fixed }

	for i := 0; i < 2; i++ {
		listener.HandlerFailed(&dispatch.HandlerFailure{
			Ref:            "DE*ERR",
			Variant:        event.VariantStatusChanged,
			SubscriptionID: "sub-1",
			Handler:        "ocpi",
			Sequence:       uint64(i + 1),
			Err:            errors.New("status 502"),
		})
	}

	require.Equal(t, 2, db.len())
	assert.Equal(t, "StatusChanged", db.records[0].Variant)
	assert.Equal(t, "status 502", db.records[0].Error)
	assert.Equal(t, fixed, db.records[0].Time)

	gauge := counters.Today.WithLabelValues("DE*ERR", "StatusChanged")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(gauge) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestHandlerFailedWithoutDatabase(t *testing.T) {
	listener := NewErrorListener(nil, nopLog{})
	listener.HandlerFailed(&dispatch.HandlerFailure{Ref: "DE*ABC", Err: errors.New("boom")})
	listener.UpdateCounter()
}
