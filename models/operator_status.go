package models

import "time"

// OperatorStatus is the last known admin and operational status pair.
type OperatorStatus struct {
	OperatorId      string    `json:"operator_id" bson:"operator_id"`
	AdminStatus     string    `json:"admin_status,omitempty" bson:"admin_status,omitempty"`
	AdminStatusAsOf time.Time `json:"admin_status_as_of,omitempty" bson:"admin_status_as_of,omitempty"`
	Status          string    `json:"status,omitempty" bson:"status,omitempty"`
	StatusAsOf      time.Time `json:"status_as_of,omitempty" bson:"status_as_of,omitempty"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}
