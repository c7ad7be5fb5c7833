package widget

import (
	"apim-analytics-backend/internal/dto"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestInstanceRunsQueryCycle(t *testing.T) {
	host := newFakeHost()
	inst := NewInstance(instanceID, "APIMTopPlatforms", "en", host)
	views, cancel := inst.Listen()
	defer cancel()
	inst.Start(context.Background())

	waitFor(t, func() bool {
		host.mu.Lock()
		defer host.mu.Unlock()
		return host.publishers[instanceID] != nil
	})
	host.publish(instanceID, window)
	waitFor(t, func() bool { return host.channel.count() == 1 })
	host.channel.deliverLast(catalogRows)
	waitFor(t, func() bool { return host.channel.count() == 2 })
	host.channel.deliverLast(platformRows)

	waitFor(t, func() bool { return !inst.View().InProgress })
	assert.Len(t, inst.View().PlatformData, 3)

	var last dto.WidgetState
	for len(views) > 0 {
		last = <-views
	}
	assert.Equal(t, inst.View(), last)

	require.NoError(t, inst.Close(context.Background()))
	_, open := <-views
	assert.False(t, open)
}

func TestInstanceEventsRunInOrder(t *testing.T) {
	inst := NewInstance(instanceID, "APIMTopPlatforms", "en", newFakeHost())
	go inst.run()

	var got []int
	for i := 0; i < 100; i++ {
		n := i
		inst.Post(func() { got = append(got, n) })
	}
	require.NoError(t, inst.Close(context.Background()))

	require.Len(t, got, 100)
	for i, n := range got {
		assert.Equal(t, i, n)
	}
}

func TestInstanceSurvivesPanics(t *testing.T) {
	inst := NewInstance(instanceID, "APIMTopPlatforms", "en", newFakeHost())
	go inst.run()

	var ran atomic.Bool
	inst.Post(func() { panic("boom") })
	inst.Post(func() { ran.Store(true) })

	waitFor(t, ran.Load)
	require.NoError(t, inst.Close(context.Background()))
}

func TestInstanceClose(t *testing.T) {
	host := newFakeHost()
	inst := NewInstance(instanceID, "APIMTopPlatforms", "en", host)
	inst.Start(context.Background())
	waitFor(t, func() bool {
		host.mu.Lock()
		defer host.mu.Unlock()
		return host.publishers[instanceID] != nil
	})

	require.NoError(t, inst.Close(context.Background()))
	assert.NotContains(t, host.publishers, instanceID)
	assert.False(t, inst.Post(func() {}))
	require.NoError(t, inst.Close(context.Background()))
}
