package estimate

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/nvandessel/causalsim/internal/simerr"
)

// Matching is the result of one-to-one nearest-neighbour matching with
// replacement on the propensity score.
type Matching struct {
	// ATT is the mean of y_treated − y_matched over treated units.
	ATT float64
	// Treated holds the treated row indices in input order.
	Treated []int
	// Matched[i] is the control row matched to Treated[i].
	Matched []int
}

// MatchNearest matches every treated unit (d == 1) to the control unit with
// the closest propensity score. An exact tie between the neighbours below and
// above goes to the one above.
func MatchNearest(y, d, ps []float64) (*Matching, error) {
	if len(y) != len(d) || len(d) != len(ps) {
		return nil, simerr.Degenerate("matching: mismatched lengths %d/%d/%d", len(y), len(d), len(ps))
	}

	var treated, controls []int
	for i, v := range d {
		if v == 1 {
			treated = append(treated, i)
		} else {
			controls = append(controls, i)
		}
	}
	if len(treated) == 0 || len(controls) == 0 {
		return nil, simerr.Degenerate("matching: %d treated and %d control units", len(treated), len(controls))
	}

	slices.SortStableFunc(controls, func(a, b int) int { return cmp.Compare(ps[a], ps[b]) })

	m := &Matching{Treated: treated, Matched: make([]int, len(treated))}
	var sum float64
	for i, t := range treated {
		s := ps[t]
		pos := sort.Search(len(controls), func(j int) bool { return ps[controls[j]] >= s })

		var c int
		switch {
		case pos == 0:
			c = controls[0]
		case pos == len(controls):
			c = controls[len(controls)-1]
		default:
			left, right := controls[pos-1], controls[pos]
			if math.Abs(s-ps[left]) < math.Abs(ps[right]-s) {
				c = left
			} else {
				c = right
			}
		}
		m.Matched[i] = c
		sum += y[t] - y[c]
	}
	m.ATT = sum / float64(len(treated))
	return m, nil
}
