package embedcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func vec(vals ...float32) Factory {
	return func(context.Context) ([]float32, error) { return vals, nil }
}

func countingFactory(calls *atomic.Int32, vals ...float32) Factory {
	return func(context.Context) ([]float32, error) {
		calls.Add(1)
		return vals, nil
	}
}

func newCache(t *testing.T, ttl time.Duration, capacity int, clock *fakeClock) *Cache[string] {
	t.Helper()
	c, err := New[string](Config{TTL: ttl, Capacity: capacity}, WithClock[string](clock.Now))
	require.NoError(t, err)
	return c
}

func TestNew_rejectsZeroCapacity(t *testing.T) {
	_, err := New[string](Config{TTL: time.Minute, Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	c, err := New[string](Config{TTL: time.Minute, Capacity: -5})
	require.NoError(t, err)
	assert.Equal(t, Unbounded, c.Config().Capacity)
}

func TestGetOrCreate_missThenHit(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Minute, 10, newFakeClock())

	var first, second atomic.Int32
	v, err := c.GetOrCreate(ctx, "a", countingFactory(&first, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
	assert.EqualValues(t, 1, first.Load())

	v, err = c.GetOrCreate(ctx, "a", countingFactory(&second, 9, 9))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v, "second call must return the cached vector")
	assert.EqualValues(t, 0, second.Load(), "factory must not run on a hit")
}

func TestGetOrCreate_statistics(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Minute, 10, newFakeClock())

	assert.Zero(t, c.HitRate())
	for i := 0; i < 3; i++ {
		_, err := c.GetOrCreate(ctx, "k", vec(1))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, c.Hits())
	assert.EqualValues(t, 1, c.Misses())
	assert.InDelta(t, 0.667, c.HitRate(), 0.001)

	c.Clear()
	assert.EqualValues(t, 2, c.Hits(), "Clear keeps statistics")
	c.ResetStatistics()
	assert.Zero(t, c.Hits())
	assert.Zero(t, c.Misses())
	assert.Zero(t, c.HitRate())
}

func TestGetOrCreate_zeroTTLAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	for _, ttl := range []time.Duration{0, -time.Second} {
		t.Run(ttl.String(), func(t *testing.T) {
			c := newCache(t, ttl, Unbounded, newFakeClock())
			var calls atomic.Int32
			for i := 0; i < 5; i++ {
				_, err := c.GetOrCreate(ctx, "q", countingFactory(&calls, 1))
				require.NoError(t, err)
			}
			assert.EqualValues(t, 5, calls.Load())
			assert.Zero(t, c.Hits())
			assert.Zero(t, c.HitRate())
		})
	}
}

func TestGetOrCreate_expiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newCache(t, time.Minute, 10, clock)

	_, err := c.GetOrCreate(ctx, "a", vec(1))
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	v, err := c.GetOrCreate(ctx, "a", vec(2))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)

	// Access does not refresh createdAt.
	clock.Advance(time.Second)
	v, err = c.GetOrCreate(ctx, "a", vec(2))
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v, "stale entry must be regenerated")
	assert.Equal(t, 1, c.Count())
}

func TestGetOrCreate_factoryFailureNotCached(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Minute, 10, newFakeClock())
	boom := errors.New("boom")

	_, err := c.GetOrCreate(ctx, "a", func(context.Context) ([]float32, error) { return nil, boom })
	assert.Same(t, boom, err, "factory error propagates unchanged")
	assert.Zero(t, c.Count())

	var calls atomic.Int32
	_, err = c.GetOrCreate(ctx, "a", countingFactory(&calls, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 2, c.Misses())
}

func TestGetOrCreate_cancelledContextLeavesNoEntry(t *testing.T) {
	c := newCache(t, time.Minute, 10, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())

	_, err := c.GetOrCreate(ctx, "a", func(context.Context) ([]float32, error) {
		cancel()
		return []float32{1}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.Count())
}

func TestCapacity_evictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	const capacity, extra = 3, 2
	c := newCache(t, time.Hour, capacity, newFakeClock())

	for i := 0; i < capacity+extra; i++ {
		_, err := c.GetOrCreate(ctx, fmt.Sprintf("k%d", i), vec(float32(i)))
		require.NoError(t, err)
	}
	assert.Equal(t, capacity, c.Count())
	assert.EqualValues(t, extra, c.Stats().Evictions)

	// k0 and k1 were the least recently touched.
	var calls atomic.Int32
	for _, k := range []string{"k2", "k3", "k4"} {
		_, err := c.GetOrCreate(ctx, k, countingFactory(&calls, 0))
		require.NoError(t, err)
	}
	assert.Zero(t, calls.Load(), "newest keys must still be resident")
}

func TestCapacity_touchProtectsFromEviction(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Hour, 2, newFakeClock())

	_, _ = c.GetOrCreate(ctx, "a", vec(1))
	_, _ = c.GetOrCreate(ctx, "b", vec(2))
	_, _ = c.GetOrCreate(ctx, "a", vec(1)) // touch a
	_, _ = c.GetOrCreate(ctx, "c", vec(3)) // evicts b

	var calls atomic.Int32
	_, _ = c.GetOrCreate(ctx, "a", countingFactory(&calls, 1))
	assert.Zero(t, calls.Load(), "a was touched and must survive")
	_, _ = c.GetOrCreate(ctx, "b", countingFactory(&calls, 2))
	assert.EqualValues(t, 1, calls.Load(), "b must have been evicted")
}

func TestCapacity_oneKeepsNewestEntry(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Hour, 1, newFakeClock())
	_, _ = c.GetOrCreate(ctx, "a", vec(1))
	_, _ = c.GetOrCreate(ctx, "b", vec(2))
	assert.Equal(t, 1, c.Count())

	var calls atomic.Int32
	_, _ = c.GetOrCreate(ctx, "b", countingFactory(&calls, 2))
	assert.Zero(t, calls.Load())
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newCache(t, time.Minute, Unbounded, clock)

	_, _ = c.GetOrCreate(ctx, "old1", vec(1))
	_, _ = c.GetOrCreate(ctx, "old2", vec(2))
	clock.Advance(30 * time.Second)
	_, _ = c.GetOrCreate(ctx, "fresh", vec(3))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 3, c.Count(), "stale entries stay resident until swept")
	assert.Equal(t, 2, c.CleanupExpired())
	assert.Equal(t, 0, c.CleanupExpired(), "second sweep is a no-op")
	assert.Equal(t, 1, c.Count())
	assert.EqualValues(t, 2, c.Stats().Expirations)
}

func TestClearAndRemove(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Hour, 10, newFakeClock())
	_, _ = c.GetOrCreate(ctx, "a", vec(1))
	_, _ = c.GetOrCreate(ctx, "b", vec(2))

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Count())

	c.Clear()
	assert.Zero(t, c.Count())

	var calls atomic.Int32
	_, _ = c.GetOrCreate(ctx, "b", countingFactory(&calls, 2))
	assert.EqualValues(t, 1, calls.Load())
}

func TestClear_dropsResultOfInFlightFactory(t *testing.T) {
	c := newCache(t, time.Hour, 10, newFakeClock())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan []float32, 1)
	go func() {
		v, err := c.GetOrCreate(context.Background(), "a", func(context.Context) ([]float32, error) {
			close(started)
			<-release
			return []float32{1}, nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.Clear()
	close(release)
	assert.Equal(t, []float32{1}, <-done, "the caller still gets its vector")
	assert.Zero(t, c.Count())

	v, err := c.GetOrCreate(context.Background(), "a", vec(2))
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v)
}

func TestSingleflight_clearStartsNewGeneration(t *testing.T) {
	c, err := New[string](Config{TTL: time.Hour, Capacity: 4},
		WithSingleflight[string](func(k string) string { return k }))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	oldDone := make(chan []float32, 1)
	go func() {
		v, err := c.GetOrCreate(context.Background(), "a", func(context.Context) ([]float32, error) {
			close(started)
			<-release
			return []float32{1}, nil
		})
		assert.NoError(t, err)
		oldDone <- v
	}()
	<-started
	c.Clear()

	// A caller arriving after Clear must not join the earlier call.
	v, err := c.GetOrCreate(context.Background(), "a", vec(2))
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v)

	close(release)
	assert.Equal(t, []float32{1}, <-oldDone)

	v, err = c.GetOrCreate(context.Background(), "a", vec(3))
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, v, "the earlier call must not overwrite the newer vector")
	assert.Equal(t, 1, c.Count())
}

type pointKey struct{ x, y int }

func TestGetOrCreate_structKeysCompareByValue(t *testing.T) {
	ctx := context.Background()
	c, err := New[pointKey](Config{TTL: time.Hour, Capacity: 4})
	require.NoError(t, err)

	_, _ = c.GetOrCreate(ctx, pointKey{1, 2}, vec(1))
	v, err := c.GetOrCreate(ctx, pointKey{1, 2}, vec(9))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	const capacity = 16
	c, err := New[int](Config{TTL: time.Hour, Capacity: capacity})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (g*31 + i) % 40
				v, err := c.GetOrCreate(ctx, k, vec(float32(k)))
				assert.NoError(t, err)
				assert.Equal(t, []float32{float32(k)}, v)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Count(), capacity)
	assert.EqualValues(t, 8*500, c.Hits()+c.Misses(), "no counter increment may be lost")
}

func TestConcurrentSameKey_duplicatesTolerated(t *testing.T) {
	c, err := New[string](Config{TTL: time.Hour, Capacity: 4})
	require.NoError(t, err)

	release := make(chan struct{})
	var calls atomic.Int32
	factory := func(context.Context) ([]float32, error) {
		calls.Add(1)
		<-release
		return []float32{1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCreate(context.Background(), "same", factory)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, 1, c.Count())
}

func TestSingleflight_sharesInFlightGeneration(t *testing.T) {
	c, err := New[string](Config{TTL: time.Hour, Capacity: 4},
		WithSingleflight[string](func(k string) string { return k }))
	require.NoError(t, err)

	release := make(chan struct{})
	var calls atomic.Int32
	factory := func(context.Context) ([]float32, error) {
		calls.Add(1)
		<-release
		return []float32{7}, nil
	}

	const callers = 5
	var started sync.WaitGroup
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			v, err := c.GetOrCreate(context.Background(), "same", factory)
			assert.NoError(t, err)
			assert.Equal(t, []float32{7}, v)
		}()
	}
	started.Wait()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	// give the remaining callers time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, c.Count())
}

func TestSingleflight_callerCancellationDoesNotAffectOthers(t *testing.T) {
	c, err := New[string](Config{TTL: time.Hour, Capacity: 4},
		WithSingleflight[string](func(k string) string { return k }))
	require.NoError(t, err)

	release := make(chan struct{})
	factory := func(ctx context.Context) ([]float32, error) {
		<-release
		return []float32{3}, ctx.Err()
	}

	cancelled, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrCreate(cancelled, "k", factory)
		errCh <- err
	}()

	resCh := make(chan []float32, 1)
	go func() {
		v, err := c.GetOrCreate(context.Background(), "k", factory)
		assert.NoError(t, err)
		resCh <- v
	}()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	close(release)
	assert.Equal(t, []float32{3}, <-resCh)
}

func BenchmarkGetOrCreate_hit(b *testing.B) {
	ctx := context.Background()
	c, _ := New[string](Config{TTL: time.Hour, Capacity: 1024})
	_, _ = c.GetOrCreate(ctx, "hot", vec(1, 2, 3))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = c.GetOrCreate(ctx, "hot", vec(1, 2, 3))
		}
	})
}
