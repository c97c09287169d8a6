package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinear(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}
	cases := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.33, 2.32},
		{0.66, 3.64},
		{1, 5},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Quantile(values, tc.q), 1e-9, "q=%v", tc.q)
	}
	// input must not be reordered
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, values)
}

func TestQuantileEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.Nil(t, MedianPtr(nil))
}

func TestMedianEvenCount(t *testing.T) {
	assert.InDelta(t, 2.5, Median([]float64{1, 2, 3, 4}), 1e-12)
	m := MedianPtr([]float64{7})
	if assert.NotNil(t, m) {
		assert.Equal(t, 7.0, *m)
	}
}
