package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/zhengyishen0/voca-app/errs"
)

func TestL2Norm(t *testing.T) {
	cases := []struct {
		name string
		v    []float32
		want float32
	}{
		{"unit x", []float32{1, 0, 0}, 1},
		{"3-4-5", []float32{3, 4}, 5},
		{"zero", []float32{0, 0, 0}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := L2Norm(c.v)
			if math.Abs(float64(got-c.want)) > 1e-5 {
				t.Errorf("L2Norm(%v) = %v, want %v", c.v, got, c.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float32{3, 4})
	if math.Abs(float64(L2Norm(got)-1)) > 1e-5 {
		t.Errorf("Normalize result not unit length: %v (norm %v)", got, L2Norm(got))
	}

	zero := Normalize([]float32{0, 0, 0})
	for i, x := range zero {
		if x != 0 {
			t.Errorf("Normalize(zero)[%d] = %v, want 0", i, x)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name    string
		a, b    []float32
		want    float32
		wantErr bool
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1, false},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, false},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, false},
		{"mismatched length", []float32{1, 0}, []float32{1, 0, 0}, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := CosineSimilarity(c.a, c.b)
			if c.wantErr {
				var dm *errs.DimensionMismatch
				if !errors.As(err, &dm) {
					t.Fatalf("expected DimensionMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(float64(got-c.want)) > 1e-4 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d) > 1e-5 {
		t.Errorf("CosineDistance(identical) = %v, want ~0", d)
	}
}

func TestCentroidEmptySet(t *testing.T) {
	_, err := Centroid(nil)
	var es *errs.EmptySet
	if !errors.As(err, &es) {
		t.Fatalf("expected EmptySet, got %v", err)
	}
}

func TestCentroidIsUnitLength(t *testing.T) {
	vs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	c, err := Centroid(vs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(L2Norm(c)-1)) > 1e-4 {
		t.Errorf("Centroid norm = %v, want ~1", L2Norm(c))
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float64{5}); got != 0 {
		t.Errorf("StdDev(single sample) = %v, want 0", got)
	}
	if got := StdDev(nil); got != 0 {
		t.Errorf("StdDev(nil) = %v, want 0", got)
	}

	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := 2.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", got, want)
	}
}
