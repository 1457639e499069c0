package models

import (
	"evroam/entity"
	"time"
)

// Operator is the stored identity and attributes of a registered operator.
// Generic properties are kept apart from the inlined attributes.
type Operator struct {
	OperatorId        string         `json:"operator_id" bson:"operator_id"`
	RegisteredAt      time.Time      `json:"registered_at" bson:"registered_at"`
	entity.Attributes `bson:",inline"`
	Properties        map[string]any `json:"properties,omitempty" bson:"properties,omitempty"`
}
