package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveLoopOptionsDefaults(t *testing.T) {
	cfg := resolveLoopOptions(nil)
	assert.Equal(t, 10*time.Second, cfg.pollTimeout)
	assert.IsType(t, &NoOpLogger{}, cfg.logger)
}

func TestWithPollTimeoutOverridesDefault(t *testing.T) {
	cfg := resolveLoopOptions([]LoopOption{WithPollTimeout(5 * time.Millisecond)})
	assert.Equal(t, 5*time.Millisecond, cfg.pollTimeout)
}

func TestResolveConnOptionsDefaults(t *testing.T) {
	cfg := resolveConnOptions(nil)
	assert.Equal(t, 64*1024*1024, cfg.highWaterMark)
	assert.Equal(t, initialBufferSize, cfg.readBufferHint)
}

func TestWithHighWaterMarkOverridesDefault(t *testing.T) {
	cfg := resolveConnOptions([]ConnOption{WithHighWaterMark(4096)})
	assert.Equal(t, 4096, cfg.highWaterMark)
}

func TestResolvePoolOptionsDefaultReplicas(t *testing.T) {
	cfg := resolvePoolOptions(nil)
	assert.Equal(t, defaultReplicas, cfg.replicas)
}

func TestResolveAcceptorOptionsDefaults(t *testing.T) {
	cfg := resolveAcceptorOptions(nil)
	assert.False(t, cfg.reusePort)
	assert.Nil(t, cfg.acceptLimiter)
}

func TestWithAcceptRateLimiterIsWired(t *testing.T) {
	limiter := NewCatrateLimiter(map[time.Duration]int{time.Second: 1})
	cfg := resolveAcceptorOptions([]AcceptorOption{WithAcceptRateLimiter(limiter)})
	assert.Same(t, limiter, cfg.acceptLimiter)
}

func TestNilOptionsAreSkipped(t *testing.T) {
	cfg := resolveLoopOptions([]LoopOption{nil, WithPollTimeout(time.Second), nil})
	assert.Equal(t, time.Second, cfg.pollTimeout)
}
