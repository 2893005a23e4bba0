package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisconnectedClient(t *testing.T) {
	nc := NewDisconnectedClient()

	assert.ErrorIs(t, nc.Publish("otp.issued", map[string]string{"email": "ana@example.com"}), ErrNotConnected)
	_, err := nc.SubscribeQueue("otp.issued", "workers", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, nc.Connected())
	assert.NoError(t, nc.Close())
}

func TestNilClient(t *testing.T) {
	var nc *NATSClient
	assert.ErrorIs(t, nc.Publish("history.appended", nil), ErrNotConnected)
	assert.False(t, nc.Connected())
	assert.NoError(t, nc.Close())
}
