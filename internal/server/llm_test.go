package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterSetDropsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiterSet(1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("ip:1.1.1.1"))
	assert.False(t, l.Allow("ip:1.1.1.1"))
	assert.True(t, l.Allow("ip:2.2.2.2"))
	assert.Equal(t, 2, l.size())

	now = now.Add(limiterIdle + time.Second)
	assert.True(t, l.Allow("ip:3.3.3.3"))
	assert.Equal(t, 1, l.size(), "idle buckets are evicted")
}

func TestLimiterSetDisabled(t *testing.T) {
	l := newLimiterSet(0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("ip:1.1.1.1"))
	}
}
