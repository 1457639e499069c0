package internal

import (
	"evroam/models"
	"time"
)

// Database is the persistence used by the service. Consumers accept the
// narrower interfaces they need.
type Database interface {
	LogWriter
	ReadLog() ([]FeatureLogMessage, error)

	GetOperators() ([]*models.Operator, error)
	SaveOperator(operator *models.Operator) error
	DeleteOperator(id string) error
	GetOperatorStatuses() ([]*models.OperatorStatus, error)

	SaveAdminStatus(id, status string, asOf time.Time) error
	SaveStatus(id, status string, asOf time.Time) error
	SaveProperty(id, name string, value any, isSet bool) error

	WriteHandlerFailure(failure *models.HandlerFailure) error
	GetTodayFailureCount() ([]*models.FailureCounter, error)

	GetSubscriptions() ([]models.UserSubscription, error)
	AddSubscription(subscription *models.UserSubscription) error
	DeleteSubscription(subscription *models.UserSubscription) error
}

type Data interface {
	DataType() string
}
