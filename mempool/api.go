package mempool

// Tier describes the intended use of an allocation. The allocator maps tiers
// to memory regions: critical allocations are forced into the reliable
// region, large allocations prefer the expansion region with fallback.
type Tier int

const (
	// TierCritical forces the reliable region; fails rather than falling back.
	TierCritical Tier = iota

	// TierNormal uses the default strategy: reliable first, expansion fallback.
	TierNormal

	// TierLargeBuffer prefers the expansion region for large request buffers.
	TierLargeBuffer

	// TierCache prefers the expansion region for cached data.
	TierCache

	// TierTaskStack prefers the expansion region for large worker stacks.
	TierTaskStack
)

// String returns the tier name used in logs and diagnostics.
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "CRITICAL"
	case TierNormal:
		return "NORMAL"
	case TierLargeBuffer:
		return "LARGE_BUFFER"
	case TierCache:
		return "CACHE"
	case TierTaskStack:
		return "TASK_STACK"
	default:
		return "UNKNOWN"
	}
}

// Region identifies one of the two memory regions managed by the allocator.
type Region int

const (
	// RegionReliable is the fast, always-available region.
	RegionReliable Region = iota

	// RegionExpansion is the larger, slower region used for bulk data.
	RegionExpansion
)

// String returns the region name used in logs and diagnostics.
func (r Region) String() string {
	switch r {
	case RegionReliable:
		return "RELIABLE"
	case RegionExpansion:
		return "EXPANSION"
	default:
		return "UNKNOWN"
	}
}

// RegionStats is a snapshot of one region's accounting.
type RegionStats struct {
	Capacity    int    // Configured byte budget.
	Used        int    // Bytes currently allocated.
	PeakUsed    int    // High-water mark of Used.
	Allocations uint64 // Total successful allocations.
	Frees       uint64 // Total frees.
	Failures    uint64 // Allocation attempts that could not be satisfied.
}

// Stats is a snapshot of the allocator's accounting across both regions.
type Stats struct {
	Reliable  RegionStats
	Expansion RegionStats
}

// Allocator is the capability-tagged allocator the priority subsystem draws
// request buffers from. Implementations must be safe for concurrent use;
// callers treat Alloc and Free as atomic operations.
type Allocator interface {
	// Alloc returns a zeroed buffer of exactly size bytes charged against the
	// region selected by tier, or ErrOutOfMemory when neither eligible region
	// can satisfy the request.
	Alloc(size int, tier Tier) ([]byte, error)

	// Free returns the buffer's bytes to its region budget. Freeing nil is a
	// no-op; freeing a buffer the allocator does not own is ignored.
	Free(buf []byte)

	// Resize allocates a new buffer of newSize at the given tier, copies
	// min(len(buf), newSize) bytes and frees the old buffer. On failure the
	// original buffer is left intact.
	Resize(buf []byte, newSize int, tier Tier) ([]byte, error)

	// RegionOf reports which region owns the buffer.
	RegionOf(buf []byte) (Region, bool)

	// Stats returns a consistent snapshot of both regions.
	Stats() Stats
}
