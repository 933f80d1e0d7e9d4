package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithoutURLDisablesBus(t *testing.T) {
	bus, err := Connect("", nil)
	require.NoError(t, err)
	assert.False(t, bus.Enabled())

	// All operations are no-ops on a disabled bus.
	bus.PublishRefresh(RefreshEvent{Library: "demo"})
	unsub, err := bus.SubscribeTriggers(func(string) { t.Fatal("no trigger expected") })
	require.NoError(t, err)
	unsub()
	bus.Close()
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	assert.False(t, bus.Enabled())
	bus.PublishRefresh(RefreshEvent{})
	bus.Close()
}
