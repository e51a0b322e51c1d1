package symbolic

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Affine-parameter search configuration. The (a, b) plane is scanned on a
// coarse grid, the best cell is re-scanned on a zoomed window, and for every
// candidate (a, b) the post parameters (c, d) come from an exact linear
// regression. Matches the calibration behavior of the reference notebooks:
// the caller judges the returned R², FitAffine itself never rejects.
const (
	searchLo     = -10.0
	searchHi     = 10.0
	searchPoints = 41
	searchRounds = 3
	searchShrink = 0.25
)

// FitAffine fits y ≈ c*f(a*x+b)+d for the given kind against sample pairs.
//
// The identity kind is solved directly (its pre-affine parameters are
// redundant with the post-affine ones, so they are pinned to a=1, b=0 and the
// closed-form linear regression gives c and d). Other kinds use the zooming
// grid search. AtBoundary is set when the final best (a, b) sits on the edge
// of the search window, the "best value at boundary" degraded-fit signal.
func FitAffine(kind *Kind, xs, ys []float64) (Descriptor, error) {
	if len(xs) != len(ys) {
		return Descriptor{}, errors.Errorf("symbolic: got %d inputs but %d targets", len(xs), len(ys))
	}
	if len(xs) < 3 {
		return Descriptor{}, errors.Errorf("symbolic: need at least 3 samples to fit, got %d", len(xs))
	}

	if kind.Name == "identity" {
		d, c := stat.LinearRegression(xs, ys, nil, false)
		preds := make([]float64, len(xs))
		for i, x := range xs {
			preds[i] = c*x + d
		}
		return Descriptor{Kind: kind, A: 1, B: 0, C: c, D: d, R2: rSquared(ys, preds)}, nil
	}

	best := Descriptor{Kind: kind, A: 1, C: 1, R2: negInf}
	aLo, aHi := searchLo, searchHi
	bLo, bHi := searchLo, searchHi
	ts := make([]float64, len(xs))

	for round := 0; round < searchRounds; round++ {
		aStep := (aHi - aLo) / (searchPoints - 1)
		bStep := (bHi - bLo) / (searchPoints - 1)
		for ai := 0; ai < searchPoints; ai++ {
			a := aLo + float64(ai)*aStep
			if a == 0 {
				continue // degenerate pre-scale: f becomes constant
			}
			for bi := 0; bi < searchPoints; bi++ {
				b := bLo + float64(bi)*bStep
				for i, x := range xs {
					ts[i] = kind.Eval(a*x + b)
				}
				d, c := stat.LinearRegression(ts, ys, nil, false)
				r2 := affineR2(ys, ts, c, d)
				if r2 > best.R2 {
					best.A, best.B, best.C, best.D, best.R2 = a, b, c, d, r2
					best.AtBoundary = ai == 0 || ai == searchPoints-1 || bi == 0 || bi == searchPoints-1
				}
			}
		}
		aHalf := (aHi - aLo) * searchShrink / 2
		bHalf := (bHi - bLo) * searchShrink / 2
		aLo, aHi = best.A-aHalf, best.A+aHalf
		bLo, bHi = best.B-bHalf, best.B+bHalf
	}
	return best, nil
}

var negInf = -1e308

func affineR2(ys, ts []float64, c, d float64) float64 {
	meanY := stat.Mean(ys, nil)
	var ssRes, ssTot float64
	for i := range ys {
		r := ys[i] - (c*ts[i] + d)
		ssRes += r * r
		t := ys[i] - meanY
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func rSquared(ys, preds []float64) float64 {
	meanY := stat.Mean(ys, nil)
	var ssRes, ssTot float64
	for i := range ys {
		r := ys[i] - preds[i]
		ssRes += r * r
		t := ys[i] - meanY
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
