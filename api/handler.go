package api

import (
	"encoding/json"
	"evroam/internal"
	"evroam/models"
	"fmt"
)

type CallType string

const (
	ReadLog       CallType = "ReadLog"
	FailuresToday CallType = "FailuresToday"
)

type Call struct {
	CallType CallType
	Remote   string
}

type Database interface {
	ReadLog() ([]internal.FeatureLogMessage, error)
	GetTodayFailureCount() ([]*models.FailureCounter, error)
}

// Handler serves read-only diagnostic calls from the database.
type Handler struct {
	logger   internal.LogHandler
	database Database
}

func (h *Handler) SetLogger(logger internal.LogHandler) {
	h.logger = logger
}

func (h *Handler) SetDatabase(database Database) {
	h.database = database
}

func NewApiHandler() *Handler {
	handler := Handler{}
	return &handler
}

// HandleApiCall returns the JSON result of the call, or nil when no database
// is attached.
func (h *Handler) HandleApiCall(ac *Call) ([]byte, error) {
	h.logger.Debug(fmt.Sprintf("api call %s from remote %s", ac.CallType, ac.Remote))
	if h.database == nil {
		return nil, nil
	}
	var data interface{}
	var err error
	switch ac.CallType {
	case ReadLog:
		data, err = h.database.ReadLog()
	case FailuresToday:
		data, err = h.database.GetTodayFailureCount()
	default:
		return nil, fmt.Errorf("unsupported call %s", ac.CallType)
	}
	if err != nil {
		h.logger.Error(fmt.Sprintf("%s failed", ac.CallType), err)
		return nil, err
	}
	byteData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("encoding api data failed", err)
		return nil, err
	}
	return byteData, nil
}
