package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_TargetLength(t *testing.T) {
	vec := make([]float32, 1536)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(i)))
	}

	reduced := Reduce(vec, 384)

	assert.Len(t, reduced, 384)
}

func TestReduce_NormPreserving(t *testing.T) {
	vec := make([]float32, 1536)
	for i := range vec {
		vec[i] = float32(i%17) * 0.03
	}

	reduced := Reduce(vec, 384)

	require.Len(t, reduced, 384)
	assert.InDelta(t, l2Norm(vec), l2Norm(reduced), 1e-3)
}

func TestReduce_NoOpWhenAtOrBelowTarget(t *testing.T) {
	vec := []float32{1, 2, 3, 4}

	assert.Equal(t, vec, Reduce(vec, 4))
	assert.Equal(t, vec, Reduce(vec, 8))
}

func TestReduce_HeadKeptVerbatim(t *testing.T) {
	vec := make([]float32, 100)
	for i := range vec {
		vec[i] = float32(i)
	}

	targetDim := 20
	headLen := int(math.Floor(float64(targetDim) * headFraction)) // 6

	reduced := Reduce(vec, targetDim)
	require.Len(t, reduced, targetDim)

	// Head components are rescaled copies of the originals: same ratios.
	for i := 1; i < headLen; i++ {
		if vec[i-1] == 0 {
			continue
		}
		assert.InDelta(t, float64(vec[i]/vec[i-1]), float64(reduced[i]/reduced[i-1]), 1e-5)
	}
}

func TestReduce_ZeroVector(t *testing.T) {
	vec := make([]float32, 64)

	reduced := Reduce(vec, 16)

	require.Len(t, reduced, 16)
	for _, v := range reduced {
		assert.Zero(t, v)
	}
}

func TestReduce_Deterministic(t *testing.T) {
	vec := make([]float32, 512)
	for i := range vec {
		vec[i] = float32(math.Cos(float64(i) * 0.1))
	}

	first := Reduce(vec, 128)
	for range 10 {
		assert.Equal(t, first, Reduce(vec, 128))
	}
}
