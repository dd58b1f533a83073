package estimate

import (
	"fmt"
	"math"

	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/linalg"
)

// DiDSpec selects the difference-in-differences regression.
type DiDSpec int

const (
	// DiDBasic regresses y on [1, treated, post, treated·post].
	DiDBasic DiDSpec = iota
	// DiDFixedEffects regresses y on [1, post, treated·post, x, unit dummies
	// except the first].
	DiDFixedEffects
)

func (s DiDSpec) String() string {
	switch s {
	case DiDBasic:
		return "basic"
	case DiDFixedEffects:
		return "fixed-effects"
	default:
		return fmt.Sprintf("DiDSpec(%d)", int(s))
	}
}

// coefIndex is the column of the treated·post coefficient.
func (s DiDSpec) coefIndex() int {
	if s == DiDFixedEffects {
		return 2
	}
	return 3
}

// DiD estimates the treated·post coefficient with standard errors clustered
// by unit. The critical value uses clusters − 1 degrees of freedom.
func DiD(p *dgp.PanelData, spec DiDSpec, cv inference.CriticalValuer) (*Estimate, error) {
	if err := p.Degenerate(); err != nil {
		return nil, err
	}
	rows := p.Rows()

	var cols [][]float64
	switch spec {
	case DiDFixedEffects:
		cols = [][]float64{linalg.Ones(rows), p.Post, p.Interaction, p.X}
		for u := 1; u < p.Units; u++ {
			dummy := make([]float64, rows)
			for i, unit := range p.Unit {
				if unit == u {
					dummy[i] = 1
				}
			}
			cols = append(cols, dummy)
		}
	default:
		cols = [][]float64{linalg.Ones(rows), p.Treated, p.Post, p.Interaction}
	}

	fit, err := fitLinear(linalg.Design(cols...), p.Y, "did "+spec.String())
	if err != nil {
		return nil, err
	}
	v, err := ClusterRobust(fit.x, fit.resid, p.Unit)
	if err != nil {
		return nil, err
	}
	idx := spec.coefIndex()
	return Finish(fit.beta.AtVec(idx), math.Sqrt(v.At(idx, idx)), p.Units-1, cv)
}
