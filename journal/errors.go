package journal

import "errors"

var (
	// ErrUnparseableTimestamp marks a ledger row whose open or close time
	// matches none of the known layouts. The row is skipped, not fatal.
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")

	// ErrInvalidTrade marks a ledger row that parsed but violates a trade
	// invariant (close before open, negative shares, unknown direction).
	ErrInvalidTrade = errors.New("invalid trade")

	ErrRunNotFound = errors.New("run not found")
)
