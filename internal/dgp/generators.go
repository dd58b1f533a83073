package dgp

import (
	"math"
	"math/rand/v2"

	"github.com/nvandessel/causalsim/internal/simerr"
)

var (
	_ Generator[*CrossSection] = Propensity{}
	_ Generator[*CrossSection] = Instrument{}
	_ Generator[*PanelData]    = Panel{}
)

// Propensity is the selection-on-observables design used for propensity
// score matching:
//
//	x1 ~ N(0,1), x2 ~ Bernoulli(0.5)
//	d  ~ Bernoulli(logistic(0.5 + x1 + 2·x2))
//	y  = 1 + Effect·d + x1 + 3·x2 + u,  u ~ N(0,1)
type Propensity struct {
	Effect float64
}

// Name implements Generator.
func (Propensity) Name() string { return "psm" }

// Truth implements Generator. The effect is homogeneous, so ATE == ATT.
func (g Propensity) Truth() float64 { return g.Effect }

// MinSampleSize implements Generator.
func (Propensity) MinSampleSize() int { return 4 }

// Draw implements Generator.
func (g Propensity) Draw(r *rand.Rand, n int) (*CrossSection, error) {
	if n <= 0 {
		return nil, simerr.InvalidConfig("n", "sample size must be positive, got %d", n)
	}
	x1 := normals(r, n)
	x2 := bernoullis(r, n, 0.5)

	d := make([]float64, n)
	for i := range d {
		p := Logistic(0.5 + x1[i] + 2*x2[i])
		d[i] = bernoulli(r, p)
	}

	u := normals(r, n)
	y := make([]float64, n)
	for i := range y {
		y[i] = 1 + g.Effect*d[i] + x1[i] + 3*x2[i] + u[i]
	}

	return &CrossSection{
		Covariates: [][]float64{x1, x2},
		Treatment:  d,
		Outcome:    y,
	}, nil
}

// Instrument is the endogenous-treatment design with one binary instrument:
//
//	x ~ N(0,1), z ~ Bernoulli(0.5), v, ε ~ N(0,1)
//	d = 0.2 + Strength·z + 0.5·x + v
//	y = 5 + Effect·d + x + (0.8·v + ε)
//
// The shared v makes d endogenous; z is excluded from the outcome equation.
type Instrument struct {
	Strength float64
	Effect   float64
}

// Name implements Generator.
func (Instrument) Name() string { return "iv" }

// Truth implements Generator.
func (g Instrument) Truth() float64 { return g.Effect }

// MinSampleSize implements Generator. OLS with (1, d, x) needs N > 3.
func (Instrument) MinSampleSize() int { return 4 }

// Draw implements Generator.
func (g Instrument) Draw(r *rand.Rand, n int) (*CrossSection, error) {
	if n <= 0 {
		return nil, simerr.InvalidConfig("n", "sample size must be positive, got %d", n)
	}
	x := normals(r, n)
	z := bernoullis(r, n, 0.5)
	v := normals(r, n)
	eps := normals(r, n)

	d := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = 0.2 + g.Strength*z[i] + 0.5*x[i] + v[i]
		u := 0.8*v[i] + eps[i]
		y[i] = 5 + g.Effect*d[i] + x[i] + u
	}

	return &CrossSection{
		Covariates: [][]float64{x},
		Treatment:  d,
		Instrument: z,
		Outcome:    y,
	}, nil
}

// Panel is the two-period difference-in-differences design. Half the units
// are treated (shuffled assignment); treatment switches on in period 2.
//
//	y_it = α_i + λ_t + Effect·D_it + 2·x_it + u_it,  λ = (0, 0.5)
//
// With Violation set, treated units get an extra PreTrend·t, breaking
// parallel trends by PreTrend between the two periods.
type Panel struct {
	Effect    float64
	Violation bool
	PreTrend  float64
}

// Name implements Generator.
func (Panel) Name() string { return "did" }

// Truth implements Generator.
func (g Panel) Truth() float64 { return g.Effect }

// MinSampleSize implements Generator. The fixed-effects design has N+3
// parameters over 2N rows.
func (Panel) MinSampleSize() int { return 4 }

var timeEffects = [2]float64{0, 0.5}

// Draw implements Generator.
func (g Panel) Draw(r *rand.Rand, n int) (*PanelData, error) {
	if n <= 0 {
		return nil, simerr.InvalidConfig("n", "number of units must be positive, got %d", n)
	}
	treated := make([]float64, n)
	for i := 0; i < n/2; i++ {
		treated[i] = 1
	}
	r.Shuffle(n, func(i, j int) { treated[i], treated[j] = treated[j], treated[i] })

	alpha := normals(r, n)

	rows := 2 * n
	p := &PanelData{
		Unit:        make([]int, 0, rows),
		Time:        make([]int, 0, rows),
		Treated:     make([]float64, 0, rows),
		Post:        make([]float64, 0, rows),
		Interaction: make([]float64, 0, rows),
		X:           make([]float64, 0, rows),
		Y:           make([]float64, 0, rows),
		Units:       n,
	}
	for i := 0; i < n; i++ {
		for pos, t := range [2]int{1, 2} {
			x := r.NormFloat64()
			u := r.NormFloat64()
			post := float64(pos)
			did := treated[i] * post

			lambda := timeEffects[pos]
			if g.Violation && treated[i] == 1 {
				lambda += g.PreTrend * float64(t)
			}

			p.Unit = append(p.Unit, i)
			p.Time = append(p.Time, t)
			p.Treated = append(p.Treated, treated[i])
			p.Post = append(p.Post, post)
			p.Interaction = append(p.Interaction, did)
			p.X = append(p.X, x)
			p.Y = append(p.Y, alpha[i]+lambda+g.Effect*did+2*x+u)
		}
	}
	return p, nil
}

// Logistic is the standard logistic link 1/(1+e^−z).
func Logistic(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func normals(r *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64()
	}
	return out
}

func bernoullis(r *rand.Rand, n int, p float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = bernoulli(r, p)
	}
	return out
}

func bernoulli(r *rand.Rand, p float64) float64 {
	if r.Float64() < p {
		return 1
	}
	return 0
}
