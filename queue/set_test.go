package queue

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryswick/floodgate/mempool"
	"github.com/ryswick/floodgate/testutil"
	"github.com/ryswick/floodgate/types"
)

// fakeHandle stands in for a transport request handle.
type fakeHandle struct {
	uri    string
	method string
}

func (h *fakeHandle) URI() string    { return h.uri }
func (h *fakeHandle) Method() string { return h.method }

func newHandle() *fakeHandle {
	return &fakeHandle{uri: "/api/status", method: "GET"}
}

func newTestSet(t *testing.T, mutate func(*Config)) (*QueueSet, *mempool.ArenaAllocator) {
	t.Helper()
	alloc, err := mempool.NewArenaAllocator(mempool.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Allocator = alloc
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewQueueSet(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, alloc
}

func mustCreate(t *testing.T, s *QueueSet, priority types.PriorityLevel, bufferSize int) *RequestContext {
	t.Helper()
	ctx, err := s.CreateContext(newHandle(), priority, bufferSize)
	require.NoError(t, err)
	return ctx
}

func TestNewQueueSet_RequiresAllocator(t *testing.T) {
	_, err := NewQueueSet(DefaultConfig())
	require.Error(t, err)
}

func TestNewQueueSet_AppliesCapacityDefaults(t *testing.T) {
	s, _ := newTestSet(t, func(cfg *Config) {
		cfg.Capacities = [types.NumPriorityLevels]int{}
	})

	for p := types.PriorityEmergency; p < types.NumPriorityLevels; p++ {
		stats, err := s.Stats(p)
		require.NoError(t, err)
		assert.Equal(t, DefaultQueueCapacity, stats.Capacity)
	}
}

func TestCreateContext_Basics(t *testing.T) {
	s, _ := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityNormal, 1024)
	assert.True(t, strings.HasPrefix(string(ctx.ID()), RequestIDPrefix))
	assert.Equal(t, types.PriorityNormal, ctx.Priority())
	assert.Equal(t, DefaultRequestTimeout, ctx.Timeout())
	assert.Equal(t, 1024, ctx.BufferSize())
	assert.Len(t, ctx.RequestBuffer(), 1024)
	assert.Len(t, ctx.ResponseBuffer(), 1024)
	ctx.Release()
}

func TestCreateContext_UniqueIDs(t *testing.T) {
	s, _ := newTestSet(t, nil)

	seen := make(map[types.RequestID]bool)
	for i := 0; i < 100; i++ {
		ctx := mustCreate(t, s, types.PriorityNormal, 0)
		assert.False(t, seen[ctx.ID()], "duplicate request id %s", ctx.ID())
		seen[ctx.ID()] = true
		ctx.Release()
	}
}

func TestCreateContext_EmergencyTimeout(t *testing.T) {
	s, _ := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityEmergency, 0)
	defer ctx.Release()
	assert.Equal(t, EmergencyRequestTimeout, ctx.Timeout())
}

func TestCreateContext_ClampsBufferSize(t *testing.T) {
	s, _ := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityNormal, MaxRequestBufferSize*4)
	defer ctx.Release()
	assert.Equal(t, MaxRequestBufferSize, ctx.BufferSize())
}

func TestCreateContext_ZeroBufferSize(t *testing.T) {
	s, alloc := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityNormal, 0)
	defer ctx.Release()
	assert.Nil(t, ctx.RequestBuffer())
	assert.Nil(t, ctx.ResponseBuffer())
	assert.Equal(t, 0, alloc.LiveAllocations())
}

func TestCreateContext_BuffersPreferExpansionRegion(t *testing.T) {
	s, alloc := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityNormal, 1024)
	defer ctx.Release()

	region, ok := alloc.RegionOf(ctx.RequestBuffer())
	require.True(t, ok)
	assert.Equal(t, mempool.RegionExpansion, region)
}

func TestCreateContext_FallsBackToSmallerReliableBuffers(t *testing.T) {
	alloc, err := mempool.NewArenaAllocator(mempool.Config{
		ReliableCapacity:  64 * 1024,
		ExpansionCapacity: 0, // expansion region unavailable
	})
	require.NoError(t, err)

	// TierLargeBuffer falls back inside the allocator only when the reliable
	// region has room at full size; exhaust that path by asking for more than
	// the reliable region can hold twice over.
	cfg := DefaultConfig()
	cfg.Allocator = alloc
	s, err := NewQueueSet(cfg)
	require.NoError(t, err)
	defer s.Close()

	big, err := alloc.Alloc(40*1024, mempool.TierCritical)
	require.NoError(t, err)
	defer alloc.Free(big)

	ctx := mustCreate(t, s, types.PriorityNormal, MaxRequestBufferSize)
	defer ctx.Release()

	assert.Equal(t, FallbackBufferSize, ctx.BufferSize())
	region, ok := alloc.RegionOf(ctx.RequestBuffer())
	require.True(t, ok)
	assert.Equal(t, mempool.RegionReliable, region)
}

func TestCreateContext_AtomicFailure(t *testing.T) {
	alloc, err := mempool.NewArenaAllocator(mempool.Config{
		ReliableCapacity:  6 * 1024, // room for one fallback buffer, not two
		ExpansionCapacity: 0,
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Allocator = alloc
	s, err := NewQueueSet(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateContext(newHandle(), types.PriorityNormal, MaxRequestBufferSize)
	require.ErrorIs(t, err, ErrNoMemory)
	assert.Equal(t, 0, alloc.LiveAllocations(), "failed creation must not leak buffers")
}

func TestCreateContext_InvalidArguments(t *testing.T) {
	s, _ := newTestSet(t, nil)

	_, err := s.CreateContext(nil, types.PriorityNormal, 0)
	assert.ErrorIs(t, err, ErrNilHandle)

	_, err = s.CreateContext(newHandle(), types.PriorityLevel(99), 0)
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestRelease_Idempotent(t *testing.T) {
	s, alloc := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityNormal, 512)
	require.Equal(t, 2, alloc.LiveAllocations())

	ctx.Release()
	ctx.Release()
	ctx.Release()

	assert.Equal(t, 0, alloc.LiveAllocations())
	stats := alloc.Stats()
	assert.Equal(t, stats.Reliable.Allocations+stats.Expansion.Allocations,
		stats.Reliable.Frees+stats.Expansion.Frees)
}

func TestEnqueueDequeue_FIFO(t *testing.T) {
	s, _ := newTestSet(t, nil)

	var ids []types.RequestID
	for i := 0; i < 5; i++ {
		ctx := mustCreate(t, s, types.PriorityNormal, 0)
		require.NoError(t, s.Enqueue(ctx))
		ids = append(ids, ctx.ID())
	}

	for i := 0; i < 5; i++ {
		ctx := s.DequeuePriority(types.PriorityNormal, 0)
		require.NotNil(t, ctx)
		assert.Equal(t, ids[i], ctx.ID())
		ctx.Release()
	}
	assert.True(t, s.IsEmpty(types.PriorityNormal))
}

func TestEnqueue_FullQueue(t *testing.T) {
	// Concrete scenario: emergency capacity 2, three enqueues, third rejected,
	// dequeues return original order, queue ends empty.
	s, _ := newTestSet(t, func(cfg *Config) {
		cfg.Capacities[types.PriorityEmergency] = 2
	})

	first := mustCreate(t, s, types.PriorityEmergency, 0)
	second := mustCreate(t, s, types.PriorityEmergency, 0)
	third := mustCreate(t, s, types.PriorityEmergency, 0)

	require.NoError(t, s.Enqueue(first))
	require.NoError(t, s.Enqueue(second))
	err := s.Enqueue(third)
	require.ErrorIs(t, err, ErrQueueFull)
	third.Release()

	assert.Equal(t, 2, s.Depth(types.PriorityEmergency))
	assert.True(t, s.IsFull(types.PriorityEmergency))

	got := s.DequeuePriority(types.PriorityEmergency, 0)
	require.NotNil(t, got)
	assert.Equal(t, first.ID(), got.ID())
	got.Release()

	got = s.DequeuePriority(types.PriorityEmergency, 0)
	require.NotNil(t, got)
	assert.Equal(t, second.ID(), got.ID())
	got.Release()

	assert.Equal(t, 0, s.Depth(types.PriorityEmergency))
	assert.True(t, s.IsEmpty(types.PriorityEmergency))
}

func TestDequeue_PriorityOrder(t *testing.T) {
	s, _ := newTestSet(t, nil)

	background := mustCreate(t, s, types.PriorityBackground, 0)
	emergency := mustCreate(t, s, types.PriorityEmergency, 0)
	require.NoError(t, s.Enqueue(background))
	require.NoError(t, s.Enqueue(emergency))

	got := s.Dequeue(0)
	require.NotNil(t, got)
	assert.Equal(t, types.PriorityEmergency, got.Priority())
	got.Release()

	got = s.Dequeue(0)
	require.NotNil(t, got)
	assert.Equal(t, types.PriorityBackground, got.Priority())
	got.Release()
}

func TestDequeue_EmptyNonBlocking(t *testing.T) {
	s, _ := newTestSet(t, nil)
	assert.Nil(t, s.Dequeue(0))
	assert.Nil(t, s.DequeuePriority(types.PriorityNormal, 0))
}

func TestDequeuePriority_TimesOut(t *testing.T) {
	s, _ := newTestSet(t, nil)

	start := time.Now()
	ctx := s.DequeuePriority(types.PriorityNormal, 20*time.Millisecond)
	assert.Nil(t, ctx)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	stats, err := s.Stats(types.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalTimeouts)
}

func TestDequeuePriority_WakesOnEnqueue(t *testing.T) {
	s, _ := newTestSet(t, nil)

	done := make(chan *RequestContext, 1)
	go func() {
		done <- s.DequeuePriority(types.PriorityIoCritical, 2*time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	ctx := mustCreate(t, s, types.PriorityIoCritical, 0)
	require.NoError(t, s.Enqueue(ctx))

	select {
	case got := <-done:
		require.NotNil(t, got)
		assert.Equal(t, ctx.ID(), got.ID())
		got.Release()
	case <-time.After(time.Second):
		t.Fatal("blocked dequeue was not woken by enqueue")
	}
}

func TestDequeueRange_RespectsBounds(t *testing.T) {
	s, _ := newTestSet(t, nil)

	emergency := mustCreate(t, s, types.PriorityEmergency, 0)
	normal := mustCreate(t, s, types.PriorityNormal, 0)
	require.NoError(t, s.Enqueue(emergency))
	require.NoError(t, s.Enqueue(normal))

	// Background worker range must not see the emergency request.
	min, max := types.WorkerBackground.PriorityRange()
	got := s.DequeueRange(min, max)
	require.NotNil(t, got)
	assert.Equal(t, types.PriorityNormal, got.Priority())
	got.Release()

	assert.Nil(t, s.DequeueRange(min, max))

	min, max = types.WorkerCritical.PriorityRange()
	got = s.DequeueRange(min, max)
	require.NotNil(t, got)
	assert.Equal(t, types.PriorityEmergency, got.Priority())
	got.Release()
}

func TestStats_Counters(t *testing.T) {
	s, _ := newTestSet(t, nil)

	for i := 0; i < 3; i++ {
		ctx := mustCreate(t, s, types.PriorityUiCritical, 0)
		require.NoError(t, s.Enqueue(ctx))
	}
	got := s.DequeuePriority(types.PriorityUiCritical, 0)
	require.NotNil(t, got)
	got.Release()

	stats, err := s.Stats(types.PriorityUiCritical)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.TotalEnqueued)
	assert.Equal(t, uint64(1), stats.TotalDequeued)
	assert.Equal(t, 2, stats.CurrentDepth)
	assert.Equal(t, 3, stats.PeakDepth)
	assert.InDelta(t, 2.0, stats.Utilization, 0.01)
	assert.False(t, stats.LastActivity.IsZero())
	assert.GreaterOrEqual(t, stats.AverageWait, time.Duration(0))
}

func TestResetStats(t *testing.T) {
	s, _ := newTestSet(t, nil)

	ctx := mustCreate(t, s, types.PriorityNormal, 0)
	require.NoError(t, s.Enqueue(ctx))
	s.ResetStats()

	stats, err := s.Stats(types.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.TotalEnqueued)
	assert.Equal(t, 1, stats.CurrentDepth, "reset must not drop queued requests")
	assert.Equal(t, 1, stats.PeakDepth, "peak restarts at current depth")
}

func TestSetMonitoringEnabled_StopsCounting(t *testing.T) {
	s, _ := newTestSet(t, nil)
	s.SetMonitoringEnabled(false)

	ctx := mustCreate(t, s, types.PriorityNormal, 0)
	require.NoError(t, s.Enqueue(ctx))

	stats, err := s.Stats(types.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.TotalEnqueued)
	assert.Equal(t, 1, stats.CurrentDepth, "depth reflects reality regardless of monitoring")
}

func TestCleanupExpired(t *testing.T) {
	s, alloc := newTestSet(t, func(cfg *Config) {
		cfg.DefaultTimeout = 5 * time.Millisecond
	})

	expiring := mustCreate(t, s, types.PriorityNormal, 256)
	require.NoError(t, s.Enqueue(expiring))

	time.Sleep(20 * time.Millisecond)

	fresh := mustCreate(t, s, types.PriorityNormal, 0)
	require.NoError(t, s.Enqueue(fresh))

	cleaned := s.CleanupExpired()
	assert.Equal(t, 1, cleaned)
	assert.Equal(t, 1, s.Depth(types.PriorityNormal))
	assert.Equal(t, 0, alloc.LiveAllocations(), "expired context buffers must be released")

	got := s.DequeuePriority(types.PriorityNormal, 0)
	require.NotNil(t, got)
	assert.Equal(t, fresh.ID(), got.ID())
	got.Release()

	stats, err := s.Stats(types.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalExpired)
}

func TestCleanupExpired_PreservesTokenBalance(t *testing.T) {
	s, _ := newTestSet(t, func(cfg *Config) {
		cfg.DefaultTimeout = time.Millisecond
	})

	for i := 0; i < 3; i++ {
		ctx := mustCreate(t, s, types.PriorityNormal, 0)
		require.NoError(t, s.Enqueue(ctx))
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 3, s.CleanupExpired())

	// A timed dequeue after cleanup must not return a phantom context.
	assert.Nil(t, s.DequeuePriority(types.PriorityNormal, 10*time.Millisecond))
}

func TestCleanupExpired_ManualClock(t *testing.T) {
	clock := testutil.NewManualClock()
	s, _ := newTestSet(t, func(cfg *Config) {
		cfg.Clock = clock
		cfg.DefaultTimeout = 30 * time.Second
	})

	early := mustCreate(t, s, types.PriorityNormal, 0)
	require.NoError(t, s.Enqueue(early))

	clock.Advance(29 * time.Second)
	assert.Equal(t, 0, s.CleanupExpired(), "request inside residency window survives")

	late := mustCreate(t, s, types.PriorityNormal, 0)
	require.NoError(t, s.Enqueue(late))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, s.CleanupExpired(), "only the request past its timeout is removed")

	got := s.DequeuePriority(types.PriorityNormal, 0)
	require.NotNil(t, got)
	assert.Equal(t, late.ID(), got.ID())
	got.Release()
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestSet(t, nil)
	assert.True(t, s.HealthCheck())

	require.NoError(t, s.Close())
	assert.False(t, s.HealthCheck())
}

func TestClose_ReleasesQueuedContexts(t *testing.T) {
	s, alloc := newTestSet(t, nil)

	for i := 0; i < 4; i++ {
		ctx := mustCreate(t, s, types.PriorityBackground, 128)
		require.NoError(t, s.Enqueue(ctx))
	}
	require.Equal(t, 8, alloc.LiveAllocations())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, alloc.LiveAllocations())

	err := s.Enqueue(&RequestContext{priority: types.PriorityNormal})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.CreateContext(newHandle(), types.PriorityNormal, 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, s.Dequeue(0))

	// Idempotent.
	require.NoError(t, s.Close())
}

func TestCapacityInvariant_RandomizedInterleaving(t *testing.T) {
	s, _ := newTestSet(t, func(cfg *Config) {
		cfg.Capacities = [types.NumPriorityLevels]int{8, 8, 8, 8, 8, 8}
	})

	rng := rand.New(rand.NewSource(42))
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		seed := rng.Int63()
		go func() {
			defer wg.Done()
			local := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				priority := types.PriorityLevel(local.Intn(int(types.NumPriorityLevels)))
				if local.Intn(2) == 0 {
					ctx, err := s.CreateContext(newHandle(), priority, 0)
					if err != nil {
						continue
					}
					if err := s.Enqueue(ctx); err != nil {
						ctx.Release()
					}
				} else {
					if ctx := s.DequeuePriority(priority, 0); ctx != nil {
						ctx.Release()
					}
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		select {
		case <-done:
			for p := types.PriorityEmergency; p < types.NumPriorityLevels; p++ {
				depth := s.Depth(p)
				assert.GreaterOrEqual(t, depth, 0)
				assert.LessOrEqual(t, depth, 8)
			}
			assert.True(t, s.HealthCheck())
			return
		default:
			for p := types.PriorityEmergency; p < types.NumPriorityLevels; p++ {
				depth := s.Depth(p)
				require.GreaterOrEqual(t, depth, 0)
				require.LessOrEqual(t, depth, 8)
			}
		}
	}
}
