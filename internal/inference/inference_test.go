package inference

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/causalsim/internal/simerr"
)

func TestCriticalValues(t *testing.T) {
	tests := []struct {
		name string
		cv   CriticalValuer
		df   int
		want float64
	}{
		{name: "normal 95", cv: Normal{Level: 0.95}, df: 10, want: 1.959963984540054},
		{name: "normal 99", cv: Normal{Level: 0.99}, df: 0, want: 2.5758293035489},
		{name: "t df=1", cv: StudentT{Level: 0.95}, df: 1, want: 12.706204736174},
		{name: "t df=10", cv: StudentT{Level: 0.95}, df: 10, want: 2.228138851986},
		{name: "t df=97", cv: StudentT{Level: 0.95}, df: 97, want: 1.984723185927},
		{name: "t falls back to normal", cv: StudentT{Level: 0.95}, df: 0, want: 1.959963984540054},
		{name: "bad level uses default", cv: Normal{Level: 2}, df: 5, want: 1.959963984540054},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.cv.CriticalValue(tt.df), 1e-6)
		})
	}
}

func TestStudentTApproachesNormal(t *testing.T) {
	st := StudentT{Level: 0.95}
	prev := math.Inf(1)
	for _, df := range []int{2, 5, 30, 200, 10000} {
		v := st.CriticalValue(df)
		assert.Less(t, v, prev, "df=%d", df)
		prev = v
	}
	assert.InDelta(t, Normal{Level: 0.95}.CriticalValue(0), prev, 1e-3)
}

func TestNewCriticalValuer(t *testing.T) {
	cv, err := NewCriticalValuer(StrategyStudentT, 0.95)
	require.NoError(t, err)
	assert.IsType(t, StudentT{}, cv)

	cv, err = NewCriticalValuer("", 0.9)
	require.NoError(t, err)
	assert.IsType(t, StudentT{}, cv)

	cv, err = NewCriticalValuer(StrategyNormal, 0.95)
	require.NoError(t, err)
	assert.IsType(t, Normal{}, cv)

	var ce *simerr.InvalidConfigurationError
	_, err = NewCriticalValuer("cauchy", 0.95)
	assert.ErrorAs(t, err, &ce)
	_, err = NewCriticalValuer(StrategyNormal, 1.5)
	assert.ErrorAs(t, err, &ce)
}

func TestInterval(t *testing.T) {
	iv := NewInterval(4, 0.5, 1.96)
	assert.InDelta(t, 3.02, iv.Lower, 1e-12)
	assert.InDelta(t, 4.98, iv.Upper, 1e-12)
	assert.InDelta(t, 1.96, iv.Width(), 1e-12)
	assert.True(t, iv.Contains(4))
	assert.True(t, iv.Contains(iv.Lower))
	assert.True(t, iv.Contains(iv.Upper))
	assert.False(t, iv.Contains(5))

	// A negative standard error never flips the bounds.
	flipped := NewInterval(1, -2, 1.96)
	assert.LessOrEqual(t, flipped.Lower, flipped.Upper)
	assert.Equal(t, "[3.0200, 4.9800]", iv.String())
}

func TestBootstrapSEOfMean(t *testing.T) {
	// The bootstrap SE of a sample mean approximates sd/sqrt(n).
	src := rand.New(rand.NewPCG(1, 2))
	n := 400
	data := make([]float64, n)
	for i := range data {
		data[i] = src.NormFloat64() * 3
	}

	mean := func(idx []int) (float64, error) {
		var s float64
		for _, i := range idx {
			s += data[i]
		}
		return s / float64(len(idx)), nil
	}

	res, err := BootstrapSE(rand.New(rand.NewPCG(3, 4)), n, BootstrapConfig{Reps: 500, RetryFactor: 10}, mean)
	require.NoError(t, err)
	assert.Equal(t, 500, res.Usable)
	assert.Equal(t, 0, res.Discarded)
	assert.InDelta(t, 3/math.Sqrt(float64(n)), res.StdErr, 0.03)
}

func TestBootstrapSEDiscardsDegenerate(t *testing.T) {
	calls := 0
	replicate := func(idx []int) (float64, error) {
		calls++
		if calls%2 == 0 {
			return 0, simerr.Degenerate("one arm")
		}
		return float64(calls), nil
	}

	res, err := BootstrapSE(rand.New(rand.NewPCG(1, 1)), 10, BootstrapConfig{Reps: 20, RetryFactor: 10}, replicate)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Usable)
	assert.Equal(t, 19, res.Discarded)
	assert.Greater(t, res.StdErr, 0.0)
}

func TestBootstrapSEFailure(t *testing.T) {
	tests := []struct {
		name    string
		usable  int
		wantErr bool
	}{
		{name: "never usable", usable: 0, wantErr: true},
		{name: "one usable", usable: 1, wantErr: true},
		{name: "two usable", usable: 2, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			replicate := func(idx []int) (float64, error) {
				calls++
				if calls <= tt.usable {
					return float64(calls), nil
				}
				return 0, simerr.Degenerate("one arm")
			}
			res, err := BootstrapSE(rand.New(rand.NewPCG(1, 1)), 5, BootstrapConfig{Reps: 10, RetryFactor: 3}, replicate)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, 2, res.Usable)
				assert.Equal(t, 30, res.Discarded)
				return
			}
			var be *simerr.BootstrapFailureError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.usable, be.Usable)
			assert.Equal(t, 30, be.Attempts)
			assert.True(t, simerr.Recoverable(err))
		})
	}
}

func TestBootstrapSEPropagatesOtherErrors(t *testing.T) {
	boom := &simerr.LinearAlgebraError{Op: "hessian", Err: errors.New("singular")}
	_, err := BootstrapSE(rand.New(rand.NewPCG(1, 1)), 5, BootstrapConfig{Reps: 10, RetryFactor: 3}, func([]int) (float64, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBootstrapSEDeterministic(t *testing.T) {
	replicate := func(idx []int) (float64, error) {
		var s float64
		for _, i := range idx {
			s += float64(i)
		}
		return s, nil
	}
	a, err := BootstrapSE(rand.New(rand.NewPCG(9, 9)), 50, DefaultBootstrapConfig(), replicate)
	require.NoError(t, err)
	b, err := BootstrapSE(rand.New(rand.NewPCG(9, 9)), 50, DefaultBootstrapConfig(), replicate)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
