package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngles(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, DegToRad(-90), test.ShouldAlmostEqual, -math.Pi/2)
}

func TestFloat64AlmostEqual(t *testing.T) {
	test.That(t, Float64AlmostEqual(1, 1.0000001, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-6), test.ShouldBeFalse)
}

func TestCubeRoot(t *testing.T) {
	test.That(t, CubeRoot(27), test.ShouldAlmostEqual, 3)
	test.That(t, CubeRoot(-8), test.ShouldAlmostEqual, -2)
}

func TestIsFinite(t *testing.T) {
	test.That(t, IsFinite(1, 2, 3), test.ShouldBeTrue)
	test.That(t, IsFinite(1, math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
