package server

import (
	"context"
	"evroam/entity"
	"evroam/internal/config"
	"evroam/types"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubConfig() *config.Config {
	conf := &config.Config{TimeZone: "UTC"}
	conf.Listen.BindIP = "127.0.0.1"
	conf.Listen.Port = "0"
	conf.Dispatcher.HandlerTimeout = 1
	conf.Dispatcher.ShutdownTimeout = 1
	conf.Operators = []config.Operator{
		{Id: "DE*ABC", Name: "Fast Charge GmbH", AdminStatus: "Operational"},
		{Id: "NL*XYZ", AdminStatus: "Sleeping"},
	}
	return conf
}

func TestHubServesSeedsUntilCancelled(t *testing.T) {
	hub, err := NewHub(hubConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	var addr string
	select {
	case a := <-hub.Server().Addr():
		addr = a.String()
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/api/operators/DE*ABC", addr))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"value":"Operational"`)

	op, err := hub.Network().Lookup("NL*XYZ")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", string(op.AdminStatus().Value()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, hub.Network().Len())
}

func TestNewHubRejectsUnknownTimeZone(t *testing.T) {
	conf := hubConfig()
	conf.TimeZone = "Mars/Olympus"
	_, err := NewHub(conf, zerolog.Nop())
	assert.Error(t, err)
}

func TestSeedsAreStampedByTheNetworkClock(t *testing.T) {
	clock := entity.ClockFunc(func() time.Time { return t0 })
	infos := seeds(hubConfig(), clock, nopLog{})
	require.Len(t, infos, 2)

	admin, ok := infos[0].AdminStatus.Get()
	require.True(t, ok)
	assert.Equal(t, types.NewTimestamped(types.AdminStatusOperational, t0), admin)

	_, ok = infos[1].AdminStatus.Get()
	assert.False(t, ok, "an invalid seed status is left to the operator default")
}
