package stock

import "errors"

var (
	// ErrInsufficientStock is returned when a requested quantity exceeds the
	// aggregate remaining quantity across all of a part's lots. No state is
	// mutated when it is returned.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientLotStock signals a decrement past a lot's remaining
	// quantity. Unreachable through the allocator's own bookkeeping; seeing it
	// means a bug.
	ErrInsufficientLotStock = errors.New("insufficient lot stock")

	// ErrNotFound is returned when a referenced part or lot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransientConflict is returned after concurrent-write contention
	// exhausted the internal retry budget.
	ErrTransientConflict = errors.New("transient conflict")

	// ErrInvalidArgument is returned for non-positive quantities, malformed
	// allocations, and reversals that would push a lot past its purchased
	// quantity.
	ErrInvalidArgument = errors.New("invalid argument")
)
