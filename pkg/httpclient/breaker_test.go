package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("opens after threshold failures", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)

		cb.RecordFailure()
		cb.RecordFailure()
		assert.Equal(t, CircuitClosed, cb.State())
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
		assert.Equal(t, 3, cb.Failures())
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		cb := NewCircuitBreaker(2, time.Minute)

		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		assert.Equal(t, CircuitClosed, cb.State())
		assert.Equal(t, 1, cb.Failures())
	})

	t.Run("half-open admits a single trial", func(t *testing.T) {
		now := time.Now()
		cb := NewCircuitBreaker(1, time.Second)
		cb.now = func() time.Time { return now }

		cb.RecordFailure()
		assert.False(t, cb.Allow())

		now = now.Add(2 * time.Second)
		assert.True(t, cb.Allow())
		assert.Equal(t, CircuitHalfOpen, cb.State())
		assert.False(t, cb.Allow())

		cb.RecordSuccess()
		assert.Equal(t, CircuitClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("failed trial reopens", func(t *testing.T) {
		now := time.Now()
		cb := NewCircuitBreaker(1, time.Second)
		cb.now = func() time.Time { return now }

		cb.RecordFailure()
		now = now.Add(2 * time.Second)
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(42).String())
}

func TestBreakerSet(t *testing.T) {
	set := NewBreakerSet(1, time.Minute)

	a := set.For("a.example.com")
	assert.Same(t, a, set.For("a.example.com"))
	assert.NotSame(t, a, set.For("b.example.com"))

	a.RecordFailure()
	assert.Equal(t, CircuitOpen, a.State())
	assert.Equal(t, CircuitClosed, set.For("b.example.com").State())

	set.Reset()
	assert.Equal(t, CircuitClosed, a.State())
}
