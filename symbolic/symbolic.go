// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package symbolic is the public API for closed-form kinds, affine fitting and
// expression composition.
package symbolic

import "github.com/kan-ml/kan/internal/symbolic"

// Kind is one supported closed form f, used as c*f(a*x+b)+d.
type Kind = symbolic.Kind

// Descriptor is a fitted closed form with its R².
type Descriptor = symbolic.Descriptor

// Expr is a closed-form expression tree over named input variables.
type Expr = symbolic.Expr

// Var is a reference to a named input variable.
type Var = symbolic.Var

// Apply is an affine-wrapped kind around an inner expression.
type Apply = symbolic.Apply

// Sum is the sum of incoming edge expressions at one node.
type Sum = symbolic.Sum

// Lookup returns the kind with the given name; unknown names are an error.
func Lookup(name string) (*Kind, error) { return symbolic.Lookup(name) }

// Kinds returns all registered kinds.
func Kinds() []*Kind { return symbolic.Kinds() }

// FitAffine fits y ≈ c*f(a*x+b)+d for the given kind against sample pairs.
func FitAffine(kind *Kind, xs, ys []float64) (Descriptor, error) {
	return symbolic.FitAffine(kind, xs, ys)
}

// FreeVariables returns the distinct variables of an expression in first-use
// order.
func FreeVariables(e Expr) []string { return symbolic.FreeVariables(e) }
