package internal

import (
	"context"
	"errors"
	"evroam/entity"
	"evroam/internal/config"
	"evroam/models"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionLog            = "sys_log"
	collectionOperators      = "operators"
	collectionOperatorStatus = "operator_status"
	collectionFailures       = "handler_failures"
	collectionSubscriptions  = "subscriptions"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
	log           LogHandler
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client, nil
}

func (m *MongoDB) SetLogger(log LogHandler) {
	m.log = log
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	err := connection.Disconnect(m.ctx)
	if err != nil && m.log != nil {
		m.log.Error("mongodb disconnect", err)
	}
}

func (m *MongoDB) collection(connection *mongo.Client, name string) *mongo.Collection {
	return connection.Database(m.database).Collection(name)
}

func (m *MongoDB) WriteLogMessage(data Data) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	_, err = m.collection(connection, collectionLog).InsertOne(m.ctx, data)
	return err
}

func (m *MongoDB) ReadLog() ([]FeatureLogMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var logMessages []FeatureLogMessage
	opts := options.Find().SetSort(bson.D{{"timestamp", -1}}).SetLimit(1000)
	cursor, err := m.collection(connection, collectionLog).Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &logMessages); err != nil {
		return nil, err
	}
	return logMessages, nil
}

func (m *MongoDB) GetOperators() ([]*models.Operator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var operators []*models.Operator
	opts := options.Find().SetSort(bson.D{{"operator_id", 1}})
	cursor, err := m.collection(connection, collectionOperators).Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &operators); err != nil {
		return nil, err
	}
	return operators, nil
}

func (m *MongoDB) SaveOperator(operator *models.Operator) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"operator_id", operator.OperatorId}}
	update := bson.M{"$set": operator}
	opts := options.Update().SetUpsert(true)
	_, err = m.collection(connection, collectionOperators).UpdateOne(m.ctx, filter, update, opts)
	return err
}

// DeleteOperator removes the operator record and its last known status.
func (m *MongoDB) DeleteOperator(id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"operator_id", id}}
	if _, err = m.collection(connection, collectionOperators).DeleteOne(m.ctx, filter); err != nil {
		return err
	}
	_, err = m.collection(connection, collectionOperatorStatus).DeleteOne(m.ctx, filter)
	return err
}

func (m *MongoDB) GetOperatorStatuses() ([]*models.OperatorStatus, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var statuses []*models.OperatorStatus
	opts := options.Find().SetSort(bson.D{{"operator_id", 1}})
	cursor, err := m.collection(connection, collectionOperatorStatus).Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (m *MongoDB) SaveAdminStatus(id, status string, asOf time.Time) error {
	return m.updateStatus(id, bson.D{{"admin_status", status}, {"admin_status_as_of", asOf}})
}

func (m *MongoDB) SaveStatus(id, status string, asOf time.Time) error {
	return m.updateStatus(id, bson.D{{"status", status}, {"status_as_of", asOf}})
}

func (m *MongoDB) updateStatus(id string, fields bson.D) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"operator_id", id}}
	fields = append(fields, bson.E{Key: "updated_at", Value: time.Now().UTC()})
	update := bson.D{{"$set", fields}}
	opts := options.Update().SetUpsert(true)
	_, err = m.collection(connection, collectionOperatorStatus).UpdateOne(m.ctx, filter, update, opts)
	return err
}

// SaveProperty sets or removes one property of an operator record. Static
// attributes are top level fields, other properties live under "properties".
func (m *MongoDB) SaveProperty(id, name string, value any, isSet bool) error {
	field, err := propertyField(name)
	if err != nil {
		return err
	}
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"operator_id", id}}
	update := bson.D{{"$unset", bson.D{{field, ""}}}}
	if isSet {
		update = bson.D{{"$set", bson.D{{field, value}}}}
	}
	_, err = m.collection(connection, collectionOperators).UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) WriteHandlerFailure(failure *models.HandlerFailure) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	_, err = m.collection(connection, collectionFailures).InsertOne(m.ctx, failure)
	return err
}

// GetTodayFailureCount groups failures since midnight UTC by operator and variant.
func (m *MongoDB) GetTodayFailureCount() ([]*models.FailureCounter, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	pipeline := bson.A{
		bson.D{{"$match", bson.D{{"time", bson.D{{"$gte", midnight}}}}}},
		bson.D{{"$group", bson.D{
			{"_id", bson.D{{"operator_id", "$operator_id"}, {"variant", "$variant"}}},
			{"count", bson.D{{"$sum", 1}}},
		}}},
	}
	cursor, err := m.collection(connection, collectionFailures).Aggregate(m.ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var counters []*models.FailureCounter
	if err = cursor.All(m.ctx, &counters); err != nil {
		return nil, err
	}
	return counters, nil
}

func (m *MongoDB) GetSubscriptions() ([]models.UserSubscription, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var subscriptions []models.UserSubscription
	cursor, err := m.collection(connection, collectionSubscriptions).Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &subscriptions); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (m *MongoDB) AddSubscription(subscription *models.UserSubscription) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"user_id", subscription.UserID}}
	existing := m.collection(connection, collectionSubscriptions).FindOne(m.ctx, filter)
	if existing.Err() == nil {
		return fmt.Errorf("user %d is already subscribed", subscription.UserID)
	}
	if !errors.Is(existing.Err(), mongo.ErrNoDocuments) {
		return existing.Err()
	}
	_, err = m.collection(connection, collectionSubscriptions).InsertOne(m.ctx, subscription)
	return err
}

func (m *MongoDB) DeleteSubscription(subscription *models.UserSubscription) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"user_id", subscription.UserID}}
	_, err = m.collection(connection, collectionSubscriptions).DeleteOne(m.ctx, filter)
	return err
}

func propertyField(name string) (string, error) {
	if err := entity.ValidatePropertyName(name); err != nil {
		return "", err
	}
	if entity.IsAttribute(name) {
		return name, nil
	}
	return "properties." + name, nil
}
