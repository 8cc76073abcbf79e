package types

import "errors"

// Structural errors (spec §7): the only class that propagates as a
// raised failure rather than becoming diagnostic data.
var (
	ErrMissingColumn         = errors.New("reconciliation: missing mandatory column")
	ErrNoRows                = errors.New("reconciliation: zero-row input")
	ErrInvalidDateTolerance  = errors.New("reconciliation: date_tolerance_days must be 0 or 1")
	ErrInvalidFuzzyThreshold = errors.New("reconciliation: fuzzy_threshold must be in [0,100]")
	ErrInvalidAmountMode     = errors.New("reconciliation: amount_mode must be both, debits, or credits")
)
