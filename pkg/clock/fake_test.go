package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresInDeadlineOrder(t *testing.T) {
	c := NewFake()
	start := c.Now()
	var fired []string

	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "c") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "b") })

	c.Advance(99 * time.Millisecond)
	assert.Empty(t, fired)
	assert.Equal(t, 3, c.Pending())

	c.Advance(1 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, start.Add(1100*time.Millisecond), c.Now())
	assert.Zero(t, c.Pending())
}

func TestFake_Stop(t *testing.T) {
	c := NewFake()
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestFake_StopAfterFire(t *testing.T) {
	c := NewFake()
	timer := c.AfterFunc(time.Millisecond, func() {})
	c.Advance(time.Millisecond)
	assert.False(t, timer.Stop())
}

func TestFake_CallbackSchedulesWithinWindow(t *testing.T) {
	c := NewFake()
	var at []time.Duration
	start := c.Now()

	c.AfterFunc(100*time.Millisecond, func() {
		at = append(at, c.Now().Sub(start))
		c.AfterFunc(100*time.Millisecond, func() {
			at = append(at, c.Now().Sub(start))
		})
	})

	c.Advance(250 * time.Millisecond)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, at)
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	New().AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("real timer never fired")
	}
}
