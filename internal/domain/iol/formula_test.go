package iol

import (
	"math"
	"testing"
)

// Average biometry: AL 23.5 mm, K 43.5 D, SRK/T A-constant 118.4. Any sane
// implementation lands near 20 D for emmetropia.

func TestSRKTPowerAverageEye(t *testing.T) {
	p := SRKTPower(23.5, 43.5, 118.4, 0)
	if p < 15 || p > 26 {
		t.Fatalf("average eye power out of clinical range: %v", p)
	}
}

func TestSRKTPowerMonotonicInAxialLength(t *testing.T) {
	short := SRKTPower(21.0, 43.5, 118.4, 0)
	long := SRKTPower(26.0, 43.5, 118.4, 0)
	if short <= long {
		t.Fatalf("longer eyes need weaker lenses: short=%v long=%v", short, long)
	}
}

func TestSRKTPowerTargetMyopiaNeedsMorePower(t *testing.T) {
	emmetropia := SRKTPower(23.5, 43.5, 118.4, 0)
	myopic := SRKTPower(23.5, 43.5, 118.4, -1.0)
	if myopic <= emmetropia {
		t.Fatalf("targeting myopia should raise power: %v vs %v", myopic, emmetropia)
	}
}

func TestSRKTPowerLongEyeCorrection(t *testing.T) {
	// The corrected axial length branch kicks in above 24.2 mm; the curve
	// must stay continuous and finite there.
	below := SRKTPower(24.2, 43.5, 118.4, 0)
	above := SRKTPower(24.21, 43.5, 118.4, 0)
	if math.IsNaN(above) || math.IsInf(above, 0) {
		t.Fatalf("long eye branch produced %v", above)
	}
	if math.Abs(below-above) > 0.5 {
		t.Fatalf("discontinuity at the correction boundary: %v vs %v", below, above)
	}
}

func TestHaigisPowerAverageEye(t *testing.T) {
	// Standard coefficients: a0 derived from the A-constant, a1 0.4, a2 0.1.
	p := HaigisPower(43.5, 3.2, 23.5, 118.4, 0, nil, 0.4, 0.1)
	if p < 15 || p > 26 {
		t.Fatalf("average eye power out of clinical range: %v", p)
	}
}

func TestHaigisPowerMonotonicInAxialLength(t *testing.T) {
	short := HaigisPower(43.5, 3.2, 21.0, 118.4, 0, nil, 0.4, 0.1)
	long := HaigisPower(43.5, 3.2, 26.0, 118.4, 0, nil, 0.4, 0.1)
	if short <= long {
		t.Fatalf("longer eyes need weaker lenses: short=%v long=%v", short, long)
	}
}

func TestHaigisPersonalizedA0Wins(t *testing.T) {
	derived := HaigisPower(43.5, 3.2, 23.5, 118.4, 0, nil, 0.4, 0.1)
	a0 := 0.62467*118.4 - 72.434
	explicit := HaigisPower(43.5, 3.2, 23.5, 118.4, 0, &a0, 0.4, 0.1)
	if math.Abs(derived-explicit) > 1e-9 {
		t.Fatalf("explicit a0 equal to the derived one must not change the result: %v vs %v", derived, explicit)
	}
}

func TestRoundToStep(t *testing.T) {
	tests := []struct {
		in, step, want float64
	}{
		{20.2, 0.5, 20.0},
		{20.26, 0.5, 20.5},
		// Midpoints tie to the even step: 20.25 sits between 20.0 and 20.5
		// and lands on 20.0, while 20.75 lands on 21.0.
		{20.25, 0.5, 20.0},
		{20.75, 0.5, 21.0},
		{-1.3, 0.5, -1.5},
		{20.13, 0.25, 20.25},
	}
	for _, tt := range tests {
		if got := RoundToStep(tt.in, tt.step); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundToStep(%v, %v) = %v, want %v", tt.in, tt.step, got, tt.want)
		}
	}
}
