package lottery

import "sort"

// drawPrize allocates one prize for r in [0, 1).
//
// Levels are walked in ascending probability (ties by ordinal). Levels with
// no stock are skipped and contribute nothing to the cumulative threshold;
// the remaining mass is not renormalized. The first level with r <= cum wins
// and loses one unit of stock. No win yields LevelNone.
func drawPrize(a *Activity, r float64) PrizeLevel {
	order := make([]PrizeLevel, 0, len(a.Prizes))
	for l := range a.Prizes {
		order = append(order, l)
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := a.Prizes[order[i]].Probability, a.Prizes[order[j]].Probability
		if pi != pj {
			return pi < pj
		}
		return order[i] < order[j]
	})

	cum := 0.0
	for _, l := range order {
		cfg := a.Prizes[l]
		if cfg.Remaining <= 0 {
			continue
		}
		cum += cfg.Probability
		if r <= cum {
			cfg.Remaining--
			a.Prizes[l] = cfg
			return l
		}
	}
	return LevelNone
}
