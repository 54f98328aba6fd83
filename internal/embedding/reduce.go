package embedding

import "math"

// Fraction of the target slots filled verbatim from the head of the vector,
// which carries the most salient components for OpenAI-style embeddings.
const headFraction = 0.3

// DimensionAdapter deterministically compresses embeddings to the store's
// fixed dimension. It is stateless; no learning is involved.
type DimensionAdapter struct {
	targetDim int
}

// NewDimensionAdapter creates an adapter for the given store dimension.
func NewDimensionAdapter(targetDim int) *DimensionAdapter {
	return &DimensionAdapter{targetDim: targetDim}
}

// TargetDimensions reports the store dimension the adapter reduces to.
func (a *DimensionAdapter) TargetDimensions() int {
	return a.targetDim
}

// Reduce compresses vec to the adapter's target dimension. Vectors already
// at or below the target are returned unchanged. The head of the vector is
// kept verbatim; the remaining slots sample the tail uniformly, smoothing
// each sampled position with the mean of a ±1 window to reduce aliasing.
// The result is rescaled so its L2 norm matches the original's, preserving
// relative similarity comparisons. If the reduced norm is zero the rescale
// is skipped rather than dividing by zero.
func (a *DimensionAdapter) Reduce(vec []float32) []float32 {
	return Reduce(vec, a.targetDim)
}

// Reduce is the stateless form of DimensionAdapter.Reduce.
func Reduce(vec []float32, targetDim int) []float32 {
	n := len(vec)
	if targetDim <= 0 || n <= targetDim {
		return vec
	}

	headLen := int(math.Floor(float64(targetDim) * headFraction))
	tailSlots := targetDim - headLen

	reduced := make([]float32, 0, targetDim)
	reduced = append(reduced, vec[:headLen]...)

	tailLen := n - headLen
	for i := 0; i < tailSlots; i++ {
		pos := headLen + (i*tailLen)/tailSlots
		reduced = append(reduced, windowMean(vec, pos))
	}

	origNorm := l2Norm(vec)
	redNorm := l2Norm(reduced)
	if redNorm == 0 {
		return reduced
	}

	scale := float32(origNorm / redNorm)
	for i := range reduced {
		reduced[i] *= scale
	}
	return reduced
}

// windowMean averages vec[pos-1 : pos+1], clipped at the vector bounds.
func windowMean(vec []float32, pos int) float32 {
	lo := pos - 1
	if lo < 0 {
		lo = 0
	}
	hi := pos + 1
	if hi > len(vec)-1 {
		hi = len(vec) - 1
	}

	var sum float32
	for i := lo; i <= hi; i++ {
		sum += vec[i]
	}
	return sum / float32(hi-lo+1)
}

func l2Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
