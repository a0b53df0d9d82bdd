package descriptive

import (
	"testing"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_Stars(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.5, ""},
		{0.08, "*"},
		{0.05, "**"},
		{0.01, "**"},
		{0.0005, "***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Test{PValue: tt.p}.Stars(), "p=%v", tt.p)
	}
	assert.Equal(t, "1.5000*", Test{Statistic: 1.5, PValue: 0.07}.String())
}

func TestDescribe_WhiteNoise(t *testing.T) {
	w := testkit.WhiteNoise("white", 2000, 1, 3)
	out, err := NewComputer(Options{}).Describe(w)
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, 2000, s.Count)
	assert.InDelta(t, 0.0, s.Mean, 0.1)
	assert.InDelta(t, 1.0, s.Std, 0.1)
	assert.InDelta(t, 0.0, s.Skewness, 0.2)
	assert.InDelta(t, 0.0, s.Kurtosis, 0.4)
	assert.Len(t, s.ACF, 12)
	assert.Equal(t, 10, s.LjungBox.DOF)
	assert.Greater(t, s.LjungBox.PValue, 0.001)
}

func TestDescribe_RedNoiseIsSeriallyCorrelated(t *testing.T) {
	r := testkit.RedNoise("red", 1000, 1, 0.6, 4)
	out, err := NewComputer(DefaultOptions()).Describe(r)
	require.NoError(t, err)

	s := out[0]
	assert.InDelta(t, 0.6, s.ACF[0], 0.08)
	assert.Less(t, s.LjungBox.PValue, 0.001)
	assert.Equal(t, "***", s.LjungBox.Stars())
}

func TestDescribe_SkewedSeries(t *testing.T) {
	vals := make([]float64, 200)
	for i := range vals {
		vals[i] = float64(i % 10)
		if i%10 == 0 {
			vals[i] = 60
		}
	}
	out, err := NewComputer(DefaultOptions()).Describe(series.MustNew("skewed", vals, 1))
	require.NoError(t, err)
	assert.Greater(t, out[0].Skewness, 1.0)
	assert.Less(t, out[0].JarqueBera.PValue, 0.001)
}

func TestDescribe_Constant(t *testing.T) {
	flat := series.MustNew("flat", []float64{1, 1, 1, 1, 1, 1, 1, 1}, 1)
	_, err := NewComputer(DefaultOptions()).Describe(flat)
	assert.ErrorIs(t, err, core.ErrDegenerateSeries)
}

func TestTable(t *testing.T) {
	a := testkit.WhiteNoise("b", 100, 1, 5)
	b := testkit.WhiteNoise("a", 100, 1, 6)
	out, err := NewComputer(DefaultOptions()).Describe(a, b)
	require.NoError(t, err)

	table := Table(out)
	assert.Equal(t, []string{"a", "b"}, SortedNames(table))
	assert.Len(t, table["a"], len(Columns))
	assert.Equal(t, "100", table["a"][0])
}
