package cooldown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTracker(window time.Duration) (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	t := New(window)
	t.now = clock.Now
	return t, clock
}

func TestAllow_Window(t *testing.T) {
	tr, clock := newTracker(time.Minute)
	k := Key{GuildID: "g", UserID: "u"}

	assert.True(t, tr.Allow(k))
	assert.False(t, tr.Allow(k))
	assert.Equal(t, time.Minute, tr.Remaining(k))

	clock.Advance(59 * time.Second)
	assert.False(t, tr.Allow(k))

	clock.Advance(time.Second)
	assert.True(t, tr.Allow(k))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	tr, _ := newTracker(time.Minute)

	assert.True(t, tr.Allow(Key{GuildID: "g1", UserID: "u"}))
	assert.True(t, tr.Allow(Key{GuildID: "g2", UserID: "u"}))
	assert.True(t, tr.Allow(Key{GuildID: "g1", UserID: "v"}))
}

func TestAllow_ConcurrentCallersGetOneGrant(t *testing.T) {
	tr, _ := newTracker(time.Minute)
	k := Key{GuildID: "g", UserID: "u"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Allow(k) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, granted)
}

func TestSweep_EvictsExpired(t *testing.T) {
	tr, clock := newTracker(time.Minute)
	tr.Allow(Key{GuildID: "g", UserID: "old"})
	clock.Advance(30 * time.Second)
	tr.Allow(Key{GuildID: "g", UserID: "new"})

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, tr.Sweep())
	assert.Equal(t, 1, tr.Len())
	assert.Zero(t, tr.Remaining(Key{GuildID: "g", UserID: "old"}))
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := New(time.Millisecond)
	tr.Allow(Key{GuildID: "g", UserID: "u"})

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Run(ctx, 5*time.Millisecond, func(_, remaining int) {
			select {
			case swept <- remaining:
			default:
			}
		})
	}()

	assert.Eventually(t, func() bool { return tr.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
