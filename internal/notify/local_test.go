package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalPublishSubscribe(t *testing.T) {
	local := NewLocal(zap.NewNop().Sugar())
	defer local.Close()

	var roles, channels atomic.Int32
	unsubscribe := local.Subscribe(Topic("servers/1/roles"), func() { roles.Add(1) })
	defer local.Subscribe(Topic("servers/1/channels"), func() { channels.Add(1) })()

	ctx := context.Background()
	require.NoError(t, local.Publish(ctx, Topic("servers/1/roles")))
	require.NoError(t, local.Publish(ctx, Topic("servers/1/roles")))

	require.Eventually(t, func() bool { return roles.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), channels.Load())

	unsubscribe()
	unsubscribe()
	// the subscriber is removed in the background
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, local.Publish(ctx, Topic("servers/1/roles")))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), roles.Load())
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "docs:servers/1/channels", Topic("servers/1/channels"))
}
