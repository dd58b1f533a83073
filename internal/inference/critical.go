// Package inference turns point estimates and standard errors into
// confidence intervals, and estimates standard errors by bootstrap
// resampling when no analytic formula is used.
package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nvandessel/causalsim/internal/simerr"
)

// DefaultLevel is the nominal two-sided confidence level.
const DefaultLevel = 0.95

// CriticalValuer returns the two-sided critical value for a given number of
// degrees of freedom. A non-positive df means "no finite-sample correction"
// and yields the normal critical value.
type CriticalValuer interface {
	CriticalValue(df int) float64
}

// StudentT uses exact Student-t quantiles.
type StudentT struct {
	Level float64
}

// CriticalValue implements CriticalValuer.
func (s StudentT) CriticalValue(df int) float64 {
	if df <= 0 {
		return Normal{Level: s.Level}.CriticalValue(df)
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return t.Quantile(upperTail(s.Level))
}

// Normal uses the standard normal quantile regardless of df.
type Normal struct {
	Level float64
}

// CriticalValue implements CriticalValuer.
func (n Normal) CriticalValue(int) float64 {
	return distuv.UnitNormal.Quantile(upperTail(n.Level))
}

func upperTail(level float64) float64 {
	if level <= 0 || level >= 1 {
		level = DefaultLevel
	}
	return 1 - (1-level)/2
}

// Critical value strategy names accepted by NewCriticalValuer.
const (
	StrategyStudentT = "student-t"
	StrategyNormal   = "normal"
)

// NewCriticalValuer selects a strategy by name at configuration time.
func NewCriticalValuer(strategy string, level float64) (CriticalValuer, error) {
	if level <= 0 || level >= 1 {
		return nil, simerr.InvalidConfig("confidence_level", "must be in (0,1), got %v", level)
	}
	switch strategy {
	case StrategyStudentT, "":
		return StudentT{Level: level}, nil
	case StrategyNormal:
		return Normal{Level: level}, nil
	default:
		return nil, simerr.InvalidConfig("critical_value", "unknown strategy %q (valid: %s, %s)", strategy, StrategyStudentT, StrategyNormal)
	}
}

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// NewInterval returns estimate ± crit·se.
func NewInterval(estimate, se, crit float64) Interval {
	half := math.Abs(crit * se)
	return Interval{Lower: estimate - half, Upper: estimate + half}
}

// Contains reports whether v lies in the closed interval.
func (iv Interval) Contains(v float64) bool {
	return iv.Lower <= v && v <= iv.Upper
}

// Width returns Upper − Lower.
func (iv Interval) Width() float64 {
	return iv.Upper - iv.Lower
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%.4f, %.4f]", iv.Lower, iv.Upper)
}
