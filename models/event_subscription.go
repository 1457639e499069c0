package models

// UserSubscription is a telegram chat subscribed to operator status changes.
// An empty OperatorId subscribes to every operator.
type UserSubscription struct {
	UserID           int    `json:"user_id" bson:"user_id"`
	User             string `json:"user" bson:"user"`
	SubscriptionType string `json:"subscription_type" bson:"subscription_type"`
	OperatorId       string `json:"operator_id,omitempty" bson:"operator_id,omitempty"`
}
