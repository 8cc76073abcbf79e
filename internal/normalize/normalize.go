// Package normalize converts raw columnar rows into the engine's
// canonical NormalizedRow form: dates collapsed to day precision,
// references trimmed/upper-cased with blanks replaced by unique
// synthetic markers, and amounts parsed to exact decimals with
// currency/parenthesis/thousands-separator handling. It never raises
// on cell-level bad data -- every failure becomes a null field and a
// counted warning (spec §4.1, §7).
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/logging"
	"reconciliation-engine/internal/types"
)

var log = logging.ForComponent("normalizer")

// blank reference placeholders, compared after trim+uppercase.
var blankTokens = map[string]bool{
	"":     true,
	"NAN":  true,
	"NONE": true,
	"NULL": true,
	"0":    true,
}

// currencySymbols are stripped, at most one leading symbol per cell.
var currencySymbols = []string{"$", "€", "£", "R", "¥", "₹"}

var apostropheThousands = regexp.MustCompile(`(\d)'(\d{3})`)

// dateLayouts are the candidate layouts considered during per-column
// format voting and per-cell lenient fallback, in priority order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"02.01.2006",
	"20060102",
}

// Normalizer turns raw columnar rows into normalized rows, collecting
// parse diagnostics as it goes. A Normalizer is not reused across
// runs with different column mappings; construct one per side.
type Normalizer struct {
	mapping types.ColumnMapping
	isLedger bool
}

// New builds a Normalizer for one side of the input. isLedger selects
// whether Debit/Credit columns (true) or a single Amount column
// (false) is expected.
func New(mapping types.ColumnMapping, isLedger bool) *Normalizer {
	return &Normalizer{mapping: mapping, isLedger: isLedger}
}

// Normalize converts raw rows to normalized rows in input order,
// returning aggregate parse diagnostics. Returns a structural error
// only if a mandatory column is not named in the column mapping or
// there are zero rows; all other problems become nulls plus a warning
// count.
func (n *Normalizer) Normalize(rows []types.RawRow) ([]types.NormalizedRow, types.ParseWarnings, error) {
	if len(rows) == 0 {
		return nil, types.ParseWarnings{}, types.ErrNoRows
	}

	if n.mapping.Reference == "" {
		return nil, types.ParseWarnings{}, fmt.Errorf("%w: reference column not mapped", types.ErrMissingColumn)
	}
	if n.isLedger {
		if n.mapping.Debit == "" && n.mapping.Credit == "" {
			return nil, types.ParseWarnings{}, fmt.Errorf("%w: neither debit nor credit column mapped", types.ErrMissingColumn)
		}
	} else if n.mapping.Amount == "" {
		return nil, types.ParseWarnings{}, fmt.Errorf("%w: amount column not mapped", types.ErrMissingColumn)
	}

	// Date format voting happens once per column, over all cells.
	dateCells := make([]string, 0, len(rows))
	if n.mapping.Date != "" {
		for _, r := range rows {
			dateCells = append(dateCells, cellString(r[n.mapping.Date]))
		}
	}
	votedLayout := voteDateLayout(dateCells)

	var warnings types.ParseWarnings
	out := make([]types.NormalizedRow, 0, len(rows))

	for i, raw := range rows {
		rowID := int64(i)
		nr := types.NormalizedRow{RowID: rowID, Raw: raw}

		if n.mapping.Date != "" {
			if d, ok := parseDateCell(raw[n.mapping.Date], votedLayout); ok {
				nr.DateNorm = &d
			} else if cellString(raw[n.mapping.Date]) != "" {
				warnings.FailedDates++
			}
		}

		refNorm, wasBlank := NormalizeReference(cellString(raw[n.mapping.Reference]), rowID)
		nr.RefNorm = refNorm
		nr.RefWasBlank = wasBlank
		if wasBlank {
			warnings.BlankReferences++
		}

		if n.mapping.Description != "" {
			nr.Description = cellString(raw[n.mapping.Description])
		}

		if n.isLedger {
			if n.mapping.Debit != "" {
				if v, ok := ParseAmount(cellString(raw[n.mapping.Debit])); ok {
					nr.Debit = v
				} else if cellString(raw[n.mapping.Debit]) != "" {
					warnings.FailedAmounts++
				}
			}
			if n.mapping.Credit != "" {
				if v, ok := ParseAmount(cellString(raw[n.mapping.Credit])); ok {
					nr.Credit = v
				} else if cellString(raw[n.mapping.Credit]) != "" {
					warnings.FailedAmounts++
				}
			}
		} else {
			if v, ok := ParseAmount(cellString(raw[n.mapping.Amount])); ok {
				nr.Amount = v
			} else if cellString(raw[n.mapping.Amount]) != "" {
				warnings.FailedAmounts++
			}
		}

		out = append(out, nr)
	}

	if warnings.FailedDates > 0 || warnings.FailedAmounts > 0 {
		log.WithField("failed_dates", warnings.FailedDates).
			WithField("failed_amounts", warnings.FailedAmounts).
			WithField("blank_references", warnings.BlankReferences).
			Warn("cell-level parse failures during normalization")
	}

	return out, warnings, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// NormalizeReference trims, collapses whitespace, and upper-cases a
// reference string. Blank/placeholder references get a unique
// synthetic marker so two blanks never collide in any index.
func NormalizeReference(raw string, rowID int64) (ref string, wasBlank bool) {
	collapsed := strings.Join(strings.Fields(raw), " ")
	upper := strings.ToUpper(collapsed)
	if blankTokens[upper] {
		return fmt.Sprintf("__BLANK_%d__", rowID), true
	}
	return upper, false
}

// ParseAmount parses a decimal amount, handling a single leading
// currency symbol, thousands separators, parenthesised negatives, and
// a leading apostrophe from spreadsheet text formatting. Returns
// (nil, false) on failure -- callers must not treat that as zero.
func ParseAmount(raw string) (*decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
		s = strings.TrimSpace(s)
	}

	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSpace(s)

	for _, sym := range currencySymbols {
		if strings.HasPrefix(s, sym) {
			s = strings.TrimSpace(strings.TrimPrefix(s, sym))
			break
		}
	}

	s = strings.ReplaceAll(s, ",", "")
	s = apostropheThousands.ReplaceAllString(s, "$1$2")
	s = strings.ReplaceAll(s, " ", "")

	if s == "" {
		return nil, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false
	}
	if negative {
		d = d.Neg()
	}
	return &d, true
}

func parseDateCell(v any, votedLayout string) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return truncateToDay(t), true
	}
	s := strings.TrimSpace(cellString(v))
	if s == "" {
		return time.Time{}, false
	}
	if votedLayout != "" {
		if t, err := time.Parse(votedLayout, s); err == nil {
			return truncateToDay(t), true
		}
	}
	// Lenient per-cell fallback: try every known layout.
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// voteDateLayout picks the layout with the highest successful-parse
// rate across non-empty cells, provided that rate exceeds 70%;
// otherwise it signals "no single layout wins" by returning "" so
// callers fall back to the lenient per-cell parser.
func voteDateLayout(cells []string) string {
	nonEmpty := 0
	counts := make(map[string]int, len(dateLayouts))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		nonEmpty++
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, c); err == nil {
				counts[layout]++
			}
		}
	}
	if nonEmpty == 0 {
		return ""
	}

	type candidate struct {
		layout string
		rate   float64
	}
	candidates := make([]candidate, 0, len(counts))
	for layout, n := range counts {
		candidates = append(candidates, candidate{layout, float64(n) / float64(nonEmpty)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		// Stable tie-break: prefer the layout earlier in dateLayouts.
		return layoutPriority(candidates[i].layout) < layoutPriority(candidates[j].layout)
	})

	if len(candidates) > 0 && candidates[0].rate > 0.7 {
		return candidates[0].layout
	}
	return ""
}

func layoutPriority(layout string) int {
	for i, l := range dateLayouts {
		if l == layout {
			return i
		}
	}
	return len(dateLayouts)
}
