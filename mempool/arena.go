package mempool

import (
	"sync"

	"github.com/ryswick/floodgate/logger"
)

// allocation records the region and size charged for a live buffer.
type allocation struct {
	region Region
	size   int
}

// regionState tracks the byte accounting of one region.
type regionState struct {
	capacity uint64
	used     int
	peakUsed int
	allocs   uint64
	frees    uint64
	failures uint64
}

func (r *regionState) snapshot() RegionStats {
	return RegionStats{
		Capacity:    int(r.capacity),
		Used:        r.used,
		PeakUsed:    r.peakUsed,
		Allocations: r.allocs,
		Frees:       r.frees,
		Failures:    r.failures,
	}
}

// ArenaAllocator is a budget-accounting Allocator backed by two regions: a
// reliable region that critical allocations are pinned to, and a larger
// expansion region preferred for bulk data. Allocation either fully succeeds
// or leaves both budgets unchanged.
type ArenaAllocator struct {
	mu        sync.Mutex
	reliable  regionState
	expansion regionState
	live      map[*byte]allocation
	logger    logger.Logger
}

// NewArenaAllocator builds an allocator from the given config.
func NewArenaAllocator(cfg Config) (*ArenaAllocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ArenaAllocator{
		reliable:  regionState{capacity: uint64(cfg.ReliableCapacity)},
		expansion: regionState{capacity: uint64(cfg.ExpansionCapacity)},
		live:      make(map[*byte]allocation),
		logger:    log.WithComponent("mempool"),
	}, nil
}

// regionOrder returns the regions eligible for a tier, in preference order.
func regionOrder(tier Tier) ([]Region, error) {
	switch tier {
	case TierCritical:
		return []Region{RegionReliable}, nil
	case TierNormal:
		return []Region{RegionReliable, RegionExpansion}, nil
	case TierLargeBuffer, TierCache, TierTaskStack:
		return []Region{RegionExpansion, RegionReliable}, nil
	default:
		return nil, ErrInvalidTier
	}
}

func (a *ArenaAllocator) region(r Region) *regionState {
	if r == RegionReliable {
		return &a.reliable
	}
	return &a.expansion
}

// Alloc returns a zeroed buffer of size bytes charged to the first eligible
// region with room, or ErrOutOfMemory when every eligible region is exhausted.
func (a *ArenaAllocator) Alloc(size int, tier Tier) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	order, err := regionOrder(tier)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range order {
		state := a.region(r)
		if uint64(state.used)+uint64(size) > state.capacity {
			continue
		}
		buf := make([]byte, size)
		state.used += size
		if state.used > state.peakUsed {
			state.peakUsed = state.used
		}
		state.allocs++
		a.live[&buf[0]] = allocation{region: r, size: size}
		return buf, nil
	}

	// Charge the failure to the tier's preferred region.
	a.region(order[0]).failures++
	a.logger.Warnw("allocation failed",
		"size", size, "tier", tier.String(), "preferred", order[0].String())
	return nil, ErrOutOfMemory
}

// Free returns the buffer's bytes to its region budget. Nil and unowned
// buffers are ignored; the latter is logged since it indicates a caller bug.
func (a *ArenaAllocator) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := &buf[0]
	alloc, ok := a.live[key]
	if !ok {
		a.logger.Warnw("free of unowned buffer ignored", "len", len(buf))
		return
	}
	delete(a.live, key)
	state := a.region(alloc.region)
	state.used -= alloc.size
	state.frees++
}

// Resize allocates a new buffer of newSize at the given tier, copies
// min(len(buf), newSize) bytes from the old buffer and frees it. When the new
// allocation fails the original buffer is left intact and usable.
func (a *ArenaAllocator) Resize(buf []byte, newSize int, tier Tier) ([]byte, error) {
	if len(buf) == 0 {
		return a.Alloc(newSize, tier)
	}

	newBuf, err := a.Alloc(newSize, tier)
	if err != nil {
		return nil, err
	}
	copy(newBuf, buf)
	a.Free(buf)
	return newBuf, nil
}

// RegionOf reports which region owns the buffer.
func (a *ArenaAllocator) RegionOf(buf []byte) (Region, bool) {
	if len(buf) == 0 {
		return 0, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	alloc, ok := a.live[&buf[0]]
	if !ok {
		return 0, false
	}
	return alloc.region, true
}

// Stats returns a consistent snapshot of both regions.
func (a *ArenaAllocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Stats{
		Reliable:  a.reliable.snapshot(),
		Expansion: a.expansion.snapshot(),
	}
}

// LiveAllocations returns the number of buffers currently outstanding.
func (a *ArenaAllocator) LiveAllocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
