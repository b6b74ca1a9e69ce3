package mapper

import (
	"math"

	"github.com/gnames/csdoptimade/pkg/ent/record"
)

const angleEps = 2e-14

// LatticeVectors converts cell lengths and angles to lattice vectors, with
// a along x and b in the xy plane. It returns nil for cells that cannot
// exist.
func LatticeVectors(l record.CellLengths, a record.CellAngles) [][3]float64 {
	cosA, _ := trig(a.Alpha)
	cosB, _ := trig(a.Beta)
	cosG, sinG := trig(a.Gamma)
	if sinG == 0 {
		return nil
	}

	cy := (cosA - cosB*cosG) / sinG
	czSqr := 1 - cosB*cosB - cy*cy
	if czSqr < 0 {
		return nil
	}
	cz := math.Sqrt(czSqr)

	return [][3]float64{
		{l.A, 0, 0},
		{l.B * cosG, l.B * sinG, 0},
		{l.C * cosB, l.C * cy, l.C * cz},
	}
}

// trig returns cosine and sine of an angle in degrees, with exact values
// for right angles.
func trig(deg float64) (float64, float64) {
	switch {
	case math.Abs(deg-90) < angleEps:
		return 0, 1
	case math.Abs(deg-180) < angleEps:
		return -1, 0
	}
	rad := deg * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}
