// Package transform maps raw metric values onto a common [0,1] scale where
// larger always means better, so scores from different metric families can
// be compared and normalized against a baseline.
package transform

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for transformations.
var (
	ErrOutOfDomain      = errors.New("value outside transformation domain")
	ErrNoTransformation = errors.New("metric has no transformation")
)

// Domain is the native value range of a metric.
type Domain int

// Supported domains.
const (
	BoundedInterval Domain = iota // [Left, Right]
	HalfLine                      // [0, +inf)
	FullLine                      // (-inf, +inf)
)

func (d Domain) String() string {
	switch d {
	case BoundedInterval:
		return "bounded"
	case HalfLine:
		return "halfLine"
	case FullLine:
		return "fullLine"
	default:
		return fmt.Sprintf("Domain(%d)", int(d))
	}
}

// Orientation says whether larger raw values are better (Benefit) or worse (Cost).
type Orientation int

// Orientations.
const (
	Benefit Orientation = iota
	Cost
)

func (o Orientation) String() string {
	if o == Cost {
		return "cost"
	}
	return "benefit"
}

// Transformation is a stateless mapping from a metric's domain to [0,1].
type Transformation struct {
	Domain      Domain
	Left, Right float64
	Orientation Orientation
}

// Bounded rescales [left, right] linearly onto [0,1].
func Bounded(left, right float64, o Orientation) Transformation {
	return Transformation{Domain: BoundedInterval, Left: left, Right: right, Orientation: o}
}

// Unit is Bounded over [0,1], the shape of every probability-like score.
func Unit(o Orientation) Transformation { return Bounded(0, 1, o) }

// PositiveLine squashes [0, +inf) with 2/(1+e^-x) - 1.
func PositiveLine(o Orientation) Transformation {
	return Transformation{Domain: HalfLine, Left: 0, Right: math.Inf(1), Orientation: o}
}

// Logistic squashes the real line with 1/(1+e^-x).
func Logistic(o Orientation) Transformation {
	return Transformation{Domain: FullLine, Left: math.Inf(-1), Right: math.Inf(1), Orientation: o}
}

// IsCost reports whether lower raw values are better.
func (t Transformation) IsCost() bool { return t.Orientation == Cost }

// Apply transforms x. Values outside the domain, and NaN, yield
// ErrOutOfDomain rather than a clamped result.
func (t Transformation) Apply(x float64) (float64, error) {
	if math.IsNaN(x) {
		return 0, fmt.Errorf("NaN in %s domain: %w", t.Domain, ErrOutOfDomain)
	}
	var v float64
	switch t.Domain {
	case BoundedInterval:
		if x < t.Left || x > t.Right {
			return 0, fmt.Errorf("%g not in [%g, %g]: %w", x, t.Left, t.Right, ErrOutOfDomain)
		}
		v = (x - t.Left) / (t.Right - t.Left)
	case HalfLine:
		if x < 0 {
			return 0, fmt.Errorf("%g not in [0, inf): %w", x, ErrOutOfDomain)
		}
		v = 2/(1+math.Exp(-x)) - 1
	case FullLine:
		v = 1 / (1 + math.Exp(-x))
	default:
		return 0, fmt.Errorf("unsupported %s: %w", t.Domain, ErrOutOfDomain)
	}
	if t.IsCost() {
		return 1 - v, nil
	}
	return v, nil
}
