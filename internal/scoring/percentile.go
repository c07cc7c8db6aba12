package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const maxPercentile = 99

// Breakpoint maps scores up to and including Score onto Percentile.
type Breakpoint struct {
	Score      int
	Percentile int
}

// PercentileTable is an ascending list of breakpoints.
type PercentileTable []Breakpoint

// DefaultPercentileTable is the reference population distribution.
var DefaultPercentileTable = PercentileTable{
	{0, 10}, {10, 20}, {20, 30}, {30, 40}, {40, 50}, {50, 60},
	{60, 70}, {70, 80}, {80, 90}, {90, 95}, {95, 100},
}

// Rank returns the percentile for score. The first breakpoint the score
// does not exceed wins; scores above the last breakpoint rank 99. Results
// are clamped to [0, 99].
func (t PercentileTable) Rank(score int) int {
	for _, bp := range t {
		if score <= bp.Score {
			return clampPercentile(bp.Percentile)
		}
	}
	return maxPercentile
}

// ParsePercentileTable parses "score:percentile" pairs separated by commas,
// e.g. "0:10,50:60,95:100". An empty string yields the default table.
func ParsePercentileTable(s string) (PercentileTable, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPercentileTable, nil
	}

	var table PercentileTable
	for _, pair := range strings.Split(s, ",") {
		scoreStr, pctStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("invalid breakpoint %q", pair)
		}
		score, err := strconv.Atoi(strings.TrimSpace(scoreStr))
		if err != nil {
			return nil, fmt.Errorf("parse score %q: %w", scoreStr, err)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(pctStr))
		if err != nil {
			return nil, fmt.Errorf("parse percentile %q: %w", pctStr, err)
		}
		table = append(table, Breakpoint{Score: score, Percentile: pct})
	}

	sort.SliceStable(table, func(i, j int) bool { return table[i].Score < table[j].Score })
	return table, nil
}

func clampPercentile(p int) int {
	if p < 0 {
		return 0
	}
	if p > maxPercentile {
		return maxPercentile
	}
	return p
}
