package core

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestInterval_ContainsAndSurrounds(t *testing.T) {
	interval := NewInterval(-1, 2)

	tests := []struct {
		x         float64
		contains  bool
		surrounds bool
	}{
		{-1.5, false, false},
		{-1, true, false},
		{0, true, true},
		{1.999, true, true},
		{2, true, false},
		{2.5, false, false},
	}

	for _, tt := range tests {
		test.That(t, interval.Contains(tt.x), test.ShouldEqual, tt.contains)
		test.That(t, interval.Surrounds(tt.x), test.ShouldEqual, tt.surrounds)
	}
	test.That(t, interval.Size(), test.ShouldEqual, 3.0)
}

func TestInterval_Clamp(t *testing.T) {
	interval := NewInterval(0, 0.999)
	for _, x := range []float64{-10, -0.1, 0, 0.25, 0.999, 1, 42, math.Inf(1), math.Inf(-1)} {
		clamped := interval.Clamp(x)
		test.That(t, interval.Contains(clamped), test.ShouldBeTrue)
		test.That(t, interval.Clamp(clamped), test.ShouldEqual, clamped)
		if interval.Contains(x) {
			test.That(t, clamped, test.ShouldEqual, x)
		}
	}
}

func TestInterval_EmptyAndUniverse(t *testing.T) {
	for _, x := range []float64{math.Inf(-1), -1e300, 0, 1e300, math.Inf(1)} {
		test.That(t, EmptyInterval.Contains(x), test.ShouldBeFalse)
		test.That(t, EmptyInterval.Surrounds(x), test.ShouldBeFalse)
		test.That(t, UniverseInterval.Contains(x), test.ShouldBeTrue)
	}
	test.That(t, UniverseInterval.Surrounds(math.Inf(1)), test.ShouldBeFalse)
	test.That(t, math.IsInf(UniverseInterval.Size(), 1), test.ShouldBeTrue)
}
