// Package fuzzy implements a Mamdani fuzzy inference engine: membership
// shapes, linguistic variables, a rule base and centroid defuzzification.
// This package has NO external dependencies and performs no I/O.
package fuzzy

import (
	"fmt"
	"math"
)

// ShapeKind identifies the membership function family.
type ShapeKind string

const (
	KindTriangular  ShapeKind = "triangular"
	KindTrapezoidal ShapeKind = "trapezoidal"
)

// Shape is a piecewise-linear membership function.
// A triangular shape stores (a, b, b, c) so both kinds share one evaluation path.
type Shape struct {
	kind       ShapeKind
	a, b, c, d float64
}

// Triangle returns the triangular shape (a, b, c) with its peak at b.
func Triangle(a, b, c float64) Shape {
	return Shape{kind: KindTriangular, a: a, b: b, c: b, d: c}
}

// Trapezoid returns the trapezoidal shape (a, b, c, d) with its plateau on [b, c].
func Trapezoid(a, b, c, d float64) Shape {
	return Shape{kind: KindTrapezoidal, a: a, b: b, c: c, d: d}
}

// NewShape builds a shape from its kind and breakpoints.
func NewShape(kind ShapeKind, points []float64) (Shape, error) {
	switch kind {
	case KindTriangular:
		if len(points) != 3 {
			return Shape{}, fmt.Errorf("triangular shape needs 3 points, got %d", len(points))
		}
		return Triangle(points[0], points[1], points[2]), nil
	case KindTrapezoidal:
		if len(points) != 4 {
			return Shape{}, fmt.Errorf("trapezoidal shape needs 4 points, got %d", len(points))
		}
		return Trapezoid(points[0], points[1], points[2], points[3]), nil
	default:
		return Shape{}, fmt.Errorf("unknown shape %q", kind)
	}
}

// Kind returns the shape family.
func (s Shape) Kind() ShapeKind {
	return s.kind
}

// Points returns the breakpoints as they were given.
func (s Shape) Points() []float64 {
	if s.kind == KindTriangular {
		return []float64{s.a, s.b, s.d}
	}
	return []float64{s.a, s.b, s.c, s.d}
}

// Support returns the outer bounds of the shape.
func (s Shape) Support() (lo, hi float64) {
	return s.a, s.d
}

// Validate reports whether the breakpoints are finite and non-decreasing.
func (s Shape) Validate() error {
	if s.kind != KindTriangular && s.kind != KindTrapezoidal {
		return fmt.Errorf("unknown shape %q", s.kind)
	}
	pts := s.Points()
	for i, p := range pts {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%s point %d is not finite", s.kind, i)
		}
		if i > 0 && pts[i-1] > p {
			return fmt.Errorf("%s points %v are not non-decreasing", s.kind, pts)
		}
	}
	return nil
}

// Degree returns the membership of x in [0, 1].
// The plateau is checked first so a zero-width ramp becomes a step edge.
func (s Shape) Degree(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= s.b && x <= s.c:
		return 1
	case x <= s.a || x >= s.d:
		return 0
	case x < s.b:
		return (x - s.a) / (s.b - s.a)
	default:
		return (s.d - x) / (s.d - s.c)
	}
}

// String renders the shape as e.g. "triangular(0, 10, 10)".
func (s Shape) String() string {
	pts := s.Points()
	out := string(s.kind) + "("
	for i, p := range pts {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%g", p)
	}
	return out + ")"
}
