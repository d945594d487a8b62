// Package vector provides the cosine-distance primitives shared by the
// speaker profile and voice library: normalisation, similarity,
// centroid, and the population stddev used to size a profile's
// decision region.
package vector

import (
	"math"

	"github.com/zhengyishen0/voca-app/errs"
	"gonum.org/v1/gonum/stat"
)

const epsilon = 1e-10

// L2Norm returns sqrt(sum(v_i^2)).
func L2Norm(v []float32) float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sumSq))
}

// Normalize scales v to unit length. The zero vector is returned
// unchanged, matching the teacher's normalizeVector convention of
// leaving degenerate input alone rather than producing NaNs.
func Normalize(v []float32) []float32 {
	norm := L2Norm(v)
	if float64(norm) < epsilon {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity returns sum(a_i*b_i) / (||a||*||b|| + eps). Panics
// are never used for recoverable input errors; a length mismatch
// returns errs.DimensionMismatch.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &errs.DimensionMismatch{A: len(a), B: len(b)}
	}
	if len(a) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA)*math.Sqrt(normB) + epsilon
	return float32(dot / denom), nil
}

// CosineDistance is 1 - CosineSimilarity(a, b).
func CosineDistance(a, b []float32) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1.0 - float64(sim), nil
}

// Centroid returns the element-wise mean of vs, normalised to unit
// length. Undefined on an empty set.
func Centroid(vs [][]float32) ([]float32, error) {
	if len(vs) == 0 {
		return nil, &errs.EmptySet{Op: "centroid"}
	}

	dim := len(vs[0])
	sum := make([]float64, dim)
	for _, v := range vs {
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vs)))
	}

	return Normalize(mean), nil
}

// StdDev returns the population standard deviation of xs. Returns 0
// for fewer than two samples — there's nothing to disperse.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
