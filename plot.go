package goquad

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point is a sample (x, f(x)) of an integrand.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Panel is one trapezoid of the 1-D rule: the chord from (X0, Y0) to
// (X1, Y1) over the x-axis.
type Panel struct {
	X0 float64 `json:"x0"`
	X1 float64 `json:"x1"`
	Y0 float64 `json:"y0"`
	Y1 float64 `json:"y1"`
}

func (p Panel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X0 jsonFloat `json:"x0"`
		X1 jsonFloat `json:"x1"`
		Y0 jsonFloat `json:"y0"`
		Y1 jsonFloat `json:"y1"`
	}{jsonFloat(p.X0), jsonFloat(p.X1), jsonFloat(p.Y0), jsonFloat(p.Y1)})
}

// Area is the signed area the trapezoidal rule assigns to the panel.
func (p Panel) Area() float64 { return (p.X1 - p.X0) * (p.Y0 + p.Y1) / 2 }

// SampleCurve samples expr at count evenly spaced points over [a,b] and
// drops samples that are not finite.
func SampleCurve(expr string, a, b float64, count int, opts ...Option) []Point {
	if count < 2 {
		count = 2
	}
	o := buildOptions(0, opts)
	f := fn1D(o.evaluator, expr)
	xs := floats.Span(make([]float64, count), a, b)
	points := make([]Point, 0, count)
	for _, x := range xs {
		y := f(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points
}

// TrapezoidPanels returns the n panels whose areas the 1-D rule sums.
func TrapezoidPanels(expr string, a, b float64, n int, opts ...Option) []Panel {
	if n < 1 {
		n = 1
	}
	o := buildOptions(0, opts)
	f := fn1D(o.evaluator, expr)
	h := (b - a) / float64(n)
	panels := make([]Panel, n)
	y0 := f(a)
	for i := 0; i < n; i++ {
		x0 := a + float64(i)*h
		x1 := a + float64(i+1)*h
		if i == n-1 {
			x1 = b
		}
		y1 := f(x1)
		panels[i] = Panel{X0: x0, X1: x1, Y0: y0, Y1: y1}
		y0 = y1
	}
	return panels
}
