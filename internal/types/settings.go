package types

import "github.com/shopspring/decimal"

// ProgressFunc is invoked with a phase name and a current/total
// progress pair. The engine calls it at bounded frequency (aim for
// <= one call per 1% progress or per N=100 items, whichever is less
// often) so a hosting UI can render progress without the engine
// yielding control.
type ProgressFunc func(phase string, current, total int)

// CancelFunc is polled at phase boundaries and at each progress
// callback point. Returning true asks the engine to stop and return a
// partial, "cancelled" result.
type CancelFunc func() bool

// Settings parameterises one reconcile() call. Every field has a
// documented default applied by DefaultSettings.
type Settings struct {
	MatchDates        bool
	DateToleranceDays  int // 0 or 1; wider values are rejected

	MatchReferences bool
	FuzzyEnabled    bool
	FuzzyThreshold  int // [0,100], default 85

	MatchAmounts bool
	AmountMode   AmountMode // "both" | "debits" | "credits"

	SplitEnabled        bool
	SplitTolerance      float64 // fractional, default 0.02
	SplitMaxComponents  int     // default 6

	ForeignCreditThreshold decimal.Decimal // default 10000

	// Split-phase skip heuristics and caps (§4.7). The two skip
	// thresholds are disabled by a zero value; a zero cap falls back
	// to its default.
	SkipSplitIfMatchRateExceeds float64 // e.g. 0.95; 0 disables
	SkipSplitIfUnmatchedExceeds int     // e.g. 5000; 0 disables
	MaxSplitRecordsPerSubPhase  int     // default 50
	MaxSplitCandidates          int     // default 20

	// MaxFuzzyCandidatesPerRow bounds the fuzzy scan (K in §4.5).
	MaxFuzzyCandidatesPerRow int // default 1000

	ProgressCB ProgressFunc
	CancelFlag CancelFunc
}

// DefaultSettings returns the settings described in spec §6.
func DefaultSettings() Settings {
	return Settings{
		MatchDates:                  true,
		DateToleranceDays:           0,
		MatchReferences:             true,
		FuzzyEnabled:                true,
		FuzzyThreshold:              85,
		MatchAmounts:                true,
		AmountMode:                  AmountModeBoth,
		SplitEnabled:                true,
		SplitTolerance:              0.02,
		SplitMaxComponents:          6,
		ForeignCreditThreshold:      decimal.NewFromInt(10000),
		SkipSplitIfMatchRateExceeds: 0.95,
		SkipSplitIfUnmatchedExceeds: 5000,
		MaxSplitRecordsPerSubPhase:  50,
		MaxSplitCandidates:          20,
		MaxFuzzyCandidatesPerRow:    1000,
	}
}

// Validate rejects settings combinations the engine refuses to
// silently reinterpret (spec §9 open questions: date tolerance wider
// than +-1 day is rejected, not clamped).
func (s Settings) Validate() error {
	if s.DateToleranceDays < 0 || s.DateToleranceDays > 1 {
		return ErrInvalidDateTolerance
	}
	if s.FuzzyThreshold < 0 || s.FuzzyThreshold > 100 {
		return ErrInvalidFuzzyThreshold
	}
	switch s.AmountMode {
	case AmountModeBoth, AmountModeDebits, AmountModeCredits, "":
	default:
		return ErrInvalidAmountMode
	}
	return nil
}
