package mempool

import "errors"

var (
	// ErrOutOfMemory indicates no eligible region could satisfy the allocation.
	ErrOutOfMemory = errors.New("mempool: out of memory")

	// ErrInvalidSize indicates a non-positive allocation size.
	ErrInvalidSize = errors.New("mempool: invalid allocation size")

	// ErrInvalidTier indicates an unknown allocation tier.
	ErrInvalidTier = errors.New("mempool: invalid allocation tier")

	// ErrUnknownBuffer indicates a buffer the allocator does not own.
	ErrUnknownBuffer = errors.New("mempool: buffer not owned by allocator")
)
