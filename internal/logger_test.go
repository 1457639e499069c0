package internal

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type memoryLog struct {
	mu       sync.Mutex
	messages []*FeatureLogMessage
}

func (m *memoryLog) WriteLogMessage(data Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, data.(*FeatureLogMessage))
	return nil
}

func (m *memoryLog) all() []*FeatureLogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*FeatureLogMessage(nil), m.messages...)
}

func TestLoggerWritesFeatureEventsToDatabase(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out bytes.Buffer
	logger := NewLogger(zerolog.New(&out), time.UTC)
	db := &memoryLog{}
	logger.SetDatabase(db)

	logger.FeatureEvent("network", "DE*ABC", "registered")
	logger.Debug("not stored")
	logger.Error("push failed", errors.New("connection refused"))
	logger.Close()

	messages := db.all()
	require.Len(t, messages, 2)
	assert.Equal(t, "network", messages[0].Feature)
	assert.Equal(t, "DE*ABC", messages[0].OperatorId)
	assert.Equal(t, string(Info), messages[0].Importance)
	assert.Equal(t, "*", messages[1].OperatorId)
	assert.Equal(t, "push failed: connection refused", messages[1].Text)

	assert.Contains(t, out.String(), `"feature":"network"`)
	assert.Contains(t, out.String(), `"error":"connection refused"`)
}

func TestLoggerWithoutDatabase(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := NewLogger(zerolog.Nop(), nil)
	logger.Warn("nothing to store")
	logger.Close()
	logger.Close()
	logger.FeatureEvent("network", "", "after close")
}

func TestConfigureLogging(t *testing.T) {
	var out bytes.Buffer
	log := WithComponent(ConfigureLogging("warn", false, &out), "dispatch")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"component":"dispatch"`)
	assert.Contains(t, out.String(), `"service":"evroam"`)
}
