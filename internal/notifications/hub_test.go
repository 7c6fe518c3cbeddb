package notifications

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterAndSend(t *testing.T) {
	hub := NewHub()

	alice := NewClient(hub, nil, 1)
	aliceTablet := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	require.NoError(t, hub.Register(alice))
	require.NoError(t, hub.Register(aliceTablet))
	require.NoError(t, hub.Register(bob))
	assert.Equal(t, 3, hub.ConnectionCount())

	hub.Send(1, []byte("for alice"))

	assert.Equal(t, []byte("for alice"), <-alice.send)
	assert.Equal(t, []byte("for alice"), <-aliceTablet.send)
	assert.Empty(t, bob.send, "events must not leak across users")
}

func TestHubSendAll(t *testing.T) {
	hub := NewHub()

	alice := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	require.NoError(t, hub.Register(alice))
	require.NoError(t, hub.Register(bob))

	hub.SendAll([]byte("hello everyone"))

	assert.Equal(t, []byte("hello everyone"), <-alice.send)
	assert.Equal(t, []byte("hello everyone"), <-bob.send)
}

func TestHubPerUserCap(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxClientsPerUser; i++ {
		require.NoError(t, hub.Register(NewClient(hub, nil, 1)))
	}

	err := hub.Register(NewClient(hub, nil, 1))
	assert.ErrorIs(t, err, ErrTooManyUserClients)

	// Another user is unaffected by the first user's cap.
	assert.NoError(t, hub.Register(NewClient(hub, nil, 2)))
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()

	client := NewClient(hub, nil, 1)
	require.NoError(t, hub.Register(client))

	hub.Unregister(client)
	hub.Unregister(client)
	assert.Zero(t, hub.ConnectionCount())

	_, open := <-client.send
	assert.False(t, open, "send channel must be closed on unregister")
}

func TestHubShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.Register(NewClient(hub, nil, 1)))

	hub.Shutdown()
	assert.Zero(t, hub.ConnectionCount())

	err := hub.Register(NewClient(hub, nil, 2))
	assert.ErrorIs(t, err, ErrTooManyClients)
}

func TestClientTrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, 1)
	require.NoError(t, hub.Register(client))

	for i := 0; i < sendBuffer+10; i++ {
		client.TrySend([]byte(fmt.Sprintf("event %d", i)))
	}

	assert.Len(t, client.send, sendBuffer, "overflow must be dropped, not block")
}
