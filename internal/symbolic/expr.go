package symbolic

import "strings"

// Expr is a closed-form expression tree over named input variables.
//
// The tree shape is deliberately small: a fully symbolic network composes as
// sums of affine-wrapped kinds substituted into one another, so Var, Apply
// and Sum cover everything SymbolicFormula can produce.
type Expr interface {
	// String renders the expression in plain text.
	String() string
	// Eval evaluates the expression; vars maps variable names to values.
	Eval(vars map[string]float64) float64
	// Variables appends the distinct variable names referenced, in first-use order.
	Variables(seen map[string]bool, order *[]string)
}

// Var is a reference to a named input variable.
type Var string

// String returns the variable name.
func (v Var) String() string { return string(v) }

// Eval looks the variable up; missing variables evaluate to 0.
func (v Var) Eval(vars map[string]float64) float64 { return vars[string(v)] }

// Variables records the variable name on first use.
func (v Var) Variables(seen map[string]bool, order *[]string) {
	if !seen[string(v)] {
		seen[string(v)] = true
		*order = append(*order, string(v))
	}
}

// Apply is a fixed edge: c*f(a*inner+b)+d around an inner expression.
type Apply struct {
	Desc  Descriptor
	Inner Expr
}

// String renders the affine-wrapped kind around the inner expression.
func (a *Apply) String() string {
	inner := a.Inner.String()
	if _, isVar := a.Inner.(Var); !isVar {
		inner = "(" + inner + ")"
	}
	return a.Desc.Render(inner)
}

// Eval evaluates inner first, then the affine closed form.
func (a *Apply) Eval(vars map[string]float64) float64 {
	return a.Desc.Evaluate(a.Inner.Eval(vars))
}

// Variables delegates to the inner expression.
func (a *Apply) Variables(seen map[string]bool, order *[]string) {
	a.Inner.Variables(seen, order)
}

// Sum is the per-node aggregation: the sum of incoming edge expressions.
type Sum []Expr

// String joins the terms with " + ".
func (s Sum) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return strings.Join(parts, " + ")
}

// Eval sums the terms.
func (s Sum) Eval(vars map[string]float64) float64 {
	var total float64
	for _, e := range s {
		total += e.Eval(vars)
	}
	return total
}

// Variables visits every term.
func (s Sum) Variables(seen map[string]bool, order *[]string) {
	for _, e := range s {
		e.Variables(seen, order)
	}
}

// FreeVariables returns the distinct variables of an expression in first-use order.
func FreeVariables(e Expr) []string {
	seen := make(map[string]bool)
	var order []string
	e.Variables(seen, &order)
	return order
}
