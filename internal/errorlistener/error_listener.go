package errorlistener

import (
	"evroam/dispatch"
	"evroam/internal"
	"evroam/metrics/counters"
	"evroam/models"
	"fmt"
	"time"
)

type Database interface {
	WriteHandlerFailure(failure *models.HandlerFailure) error
	GetTodayFailureCount() ([]*models.FailureCounter, error)
}

// ErrorListener records handler failures and keeps the daily failure gauge
// current. A nil database only logs.
type ErrorListener struct {
	db  Database
	log internal.LogHandler
	now func() time.Time
}

func NewErrorListener(db Database, log internal.LogHandler) *ErrorListener {
	log.FeatureEvent("ErrorListener", "", "created")
	return &ErrorListener{db: db, log: log, now: time.Now}
}

func (e *ErrorListener) HandlerFailed(failure *dispatch.HandlerFailure) {
	e.log.FeatureEvent("ErrorListener", string(failure.Ref), failure.Error())
	if e.db == nil {
		return
	}
	record := &models.HandlerFailure{
		Time:           e.now().UTC(),
		OperatorId:     string(failure.Ref),
		Variant:        failure.Variant.String(),
		SubscriptionId: failure.SubscriptionID,
		Handler:        failure.Handler,
		Sequence:       failure.Sequence,
		Error:          failure.Err.Error(),
	}
	if err := e.db.WriteHandlerFailure(record); err != nil {
		e.log.Error("writing handler failure to database", err)
	}
	go e.observeFailures()
}

func (e *ErrorListener) UpdateCounter() {
	if e.db == nil {
		return
	}
	go e.observeFailures()
}

func (e *ErrorListener) observeFailures() {
	counter, err := e.db.GetTodayFailureCount()
	if err != nil {
		e.log.Error("getting today's failure count", err)
		return
	}
	for _, c := range counter {
		id := c.ID
		e.log.Debug(fmt.Sprintf("updating failure counter: %s %s -- %d", id.OperatorId, id.Variant, c.Count))
		counters.FailuresToday(id.OperatorId, id.Variant, c.Count)
	}
}
