package models

import "time"

type HandlerFailure struct {
	Time           time.Time `json:"time" bson:"time"`
	OperatorId     string    `json:"operator_id" bson:"operator_id"`
	Variant        string    `json:"variant" bson:"variant"`
	SubscriptionId string    `json:"subscription_id" bson:"subscription_id"`
	Handler        string    `json:"handler" bson:"handler"`
	Sequence       uint64    `json:"sequence" bson:"sequence"`
	Error          string    `json:"error" bson:"error"`
}

// FailureCounter is one row of the daily failure aggregation.
type FailureCounter struct {
	ID struct {
		OperatorId string `json:"operator_id" bson:"operator_id"`
		Variant    string `json:"variant" bson:"variant"`
	} `json:"id" bson:"_id"`
	Count int `json:"count" bson:"count"`
}
