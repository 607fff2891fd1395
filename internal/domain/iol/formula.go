package iol

import "math"

// SRKTPower computes the IOL power for a target refraction with the SRK/T
// formula: axial length correction for long eyes, corneal radius from mean
// keratometry, and an ACD estimate derived from the lens A-constant.
func SRKTPower(alMM, kD, aConst, targetRef float64) float64 {
	rethick := 0.65696 - 0.02029*alMM

	lc := alMM
	if alMM > 24.2 {
		lc = -3.446 + 1.716*alMM - 0.0237*alMM*alMM
	}

	rmm := 337.5 / kD

	c1 := -5.40948 + 0.58412*lc + 0.098*kD
	rc := rmm*rmm - c1*c1/4.0
	if rc < 0 {
		rc = 0
	}
	c2 := rmm - math.Sqrt(rc)

	acd := 0.62467*aConst - 68.74709
	acde := c2 + acd - 3.3357

	const (
		n1 = 1.336
		n2 = 0.333
	)

	l0 := alMM + rethick

	s1 := l0 - acde
	s2 := n1*rmm - n2*acde
	s3 := n1*rmm - n2*l0
	s4 := 12.0*s3 + l0*rmm
	s5 := 12.0*s2 + acde*rmm

	// The 1336 and 0.001 factors keep the millimeter units consistent.
	return (1336.0 * (s3 - 0.001*targetRef*s4)) / (s1 * (s2 - 0.001*targetRef*s5))
}

// HaigisPower computes the IOL power with the Haigis thin-lens model.
// ELP(d) = a0 + a1*ACD + a2*AL; a0 falls back to a derivation from the
// A-constant when the surgeon has no personalized coefficient.
func HaigisPower(kD, acdMM, alMM, aConst, rx float64, a0 *float64, a1, a2 float64) float64 {
	a0v := 0.62467*aConst - 72.434
	if a0 != nil {
		a0v = *a0
	}

	const (
		n  = 1.336
		nc = 1.3315
		dx = 12.0 / 1000.0
	)

	rMM := 337.5 / kD
	r := rMM / 1000.0
	l := alMM / 1000.0

	dMM := a0v + a1*acdMM + a2*alMM
	d := dMM / 1000.0

	dc := (nc - 1.0) / r
	z := dc + rx/(1.0-rx*dx)

	return n/(l-d) - n/(n/z-d)
}

// RoundToStep snaps a computed power to the manufacturing step, 0.5 D for
// most lens lines. Midpoints tie to the even step so a power sitting exactly
// between two lenses does not get a systematic upward bias.
func RoundToStep(power, step float64) float64 {
	return math.RoundToEven(power/step) * step
}
