// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package spline is the public API for B-spline grids, basis evaluation and
// least-squares coefficient fitting.
package spline

import "github.com/kan-ml/kan/internal/spline"

// Grid is the knot sequence of one univariate spline.
type Grid = spline.Grid

// FitResult reports a least-squares coefficient fit.
type FitResult = spline.FitResult

// CondWarnThreshold is the condition number above which a refit is reported
// as ill-conditioned.
const CondWarnThreshold = spline.CondWarnThreshold

// NewUniform creates a grid with uniformly spaced knots over [lo, hi].
func NewUniform(lo, hi float64, intervals, degree int) (*Grid, error) {
	return spline.NewUniform(lo, hi, intervals, degree)
}

// FromSamples derives a grid from observed inputs by quantile placement.
func FromSamples(xs []float64, intervals, degree int) (*Grid, error) {
	return spline.FromSamples(xs, intervals, degree)
}

// FromKnots creates a grid from an explicit interior knot sequence.
func FromKnots(knots []float64, degree int) (*Grid, error) {
	return spline.FromKnots(knots, degree)
}

// FitCoefficients solves the least-squares spline fit over a grid.
func FitCoefficients(g *Grid, xs, ys []float64) (FitResult, error) {
	return spline.FitCoefficients(g, xs, ys)
}

// RSquared is the coefficient of determination of predictions against targets.
func RSquared(targets, preds []float64) float64 {
	return spline.RSquared(targets, preds)
}
