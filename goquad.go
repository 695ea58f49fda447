// Package goquad solves definite single and double integrals of closed-form
// expressions with the adaptive trapezoidal rule.
//
// Design goals:
//   - Numeric failure is data: NaN values and a convergence flag, never a panic
//   - Pure solves: no shared state between calls, no I/O in the kernel
//   - Pluggable expression backend behind a narrow Evaluator capability
//   - AI/LLM friendly: JSON results and MCP-ready tool APIs
package goquad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// ============================================================
// Defaults
// ============================================================

const (
	DefaultTolerance1D     = 1e-6
	DefaultMaxIterations1D = 20
	DefaultTolerance2D     = 1e-5
	DefaultMaxIterations2D = 10

	seed1D = 1
	seed2D = 2
)

// ============================================================
// Evaluator capability
// ============================================================

// Bindings are the variable values an expression is evaluated at.
// Y is only bound when HasY is set.
type Bindings struct {
	X    float64
	Y    float64
	HasY bool
}

func At(x float64) Bindings      { return Bindings{X: x} }
func AtXY(x, y float64) Bindings { return Bindings{X: x, Y: y, HasY: true} }

// Evaluator evaluates an expression string at a point. Any parse or
// evaluation failure is returned as an error.
type Evaluator interface {
	Evaluate(expr string, b Bindings) (float64, error)
}

// Integrand is an expression prepared for repeated evaluation.
type Integrand func(b Bindings) (float64, error)

// Preparer is implemented by evaluators that can parse an expression once
// and evaluate it at many points. The solvers use it when available.
type Preparer interface {
	Prepare(expr string) (Integrand, error)
}

// EvalError reports a failed parse or evaluation of Expr.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string { return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err) }
func (e *EvalError) Unwrap() error { return e.Err }

// ============================================================
// govaluate backend
// ============================================================

// GovaluateEvaluator is the default Evaluator, backed by govaluate.
// Expressions use standard infix precedence; see translate.
type GovaluateEvaluator struct{}

var defaultEvaluator Evaluator = GovaluateEvaluator{}

func (GovaluateEvaluator) Evaluate(expr string, b Bindings) (float64, error) {
	fn, err := GovaluateEvaluator{}.Prepare(expr)
	if err != nil {
		return math.NaN(), err
	}
	return fn(b)
}

// Prepare parses expr once. The returned Integrand reuses its parameter map
// and must not be shared between goroutines.
func (GovaluateEvaluator) Prepare(expr string) (Integrand, error) {
	src, err := translate(expr)
	if err != nil {
		return nil, &EvalError{Expr: expr, Err: err}
	}
	parsed, err := govaluate.NewEvaluableExpressionWithFunctions(src, functions)
	if err != nil {
		return nil, &EvalError{Expr: expr, Err: err}
	}
	params := govaluate.MapParameters{"e": math.E, "pi": math.Pi}
	return func(b Bindings) (float64, error) {
		params["x"] = b.X
		if b.HasY {
			params["y"] = b.Y
		} else {
			delete(params, "y")
		}
		v, err := parsed.Eval(params)
		if err != nil {
			return math.NaN(), &EvalError{Expr: expr, Err: err}
		}
		f, err := toFloat(v)
		if err != nil {
			return math.NaN(), &EvalError{Expr: expr, Err: err}
		}
		return f, nil
	}, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	default:
		return math.NaN(), fmt.Errorf("expression did not yield a number: %T", v)
	}
}

func unary(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func binary(fn func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(args[1])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return x
}

var functions = map[string]govaluate.ExpressionFunction{
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"exp":   unary(math.Exp),
	"log":   unary(math.Log),
	"ln":    unary(math.Log),
	"log10": unary(math.Log10),
	"log2":  unary(math.Log2),
	"sqrt":  unary(math.Sqrt),
	"cbrt":  unary(math.Cbrt),
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"sign":  unary(sign),
	"pow":   binary(math.Pow),
	"min":   binary(math.Min),
	"max":   binary(math.Max),
}

// Evaluate evaluates expr at x, and at y when one is given, with the
// constants e and pi in scope. Failures yield NaN.
func Evaluate(expr string, x float64, y ...float64) float64 {
	b := At(x)
	if len(y) > 0 {
		b = AtXY(x, y[0])
	}
	v, err := defaultEvaluator.Evaluate(expr, b)
	if err != nil {
		return math.NaN()
	}
	return v
}

// integrand binds expr to ev as a plain function. Every failure becomes NaN.
func integrand(ev Evaluator, expr string) func(Bindings) float64 {
	if p, ok := ev.(Preparer); ok {
		fn, err := p.Prepare(expr)
		if err != nil {
			return func(Bindings) float64 { return math.NaN() }
		}
		return func(b Bindings) float64 {
			v, err := fn(b)
			if err != nil {
				return math.NaN()
			}
			return v
		}
	}
	return func(b Bindings) float64 {
		v, err := ev.Evaluate(expr, b)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}

// ============================================================
// Options
// ============================================================

type options struct {
	maxIterations int
	evaluator     Evaluator
	latest        bool
}

type Option func(*options)

// WithMaxIterations sets the refinement budget. Negative values are ignored.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxIterations = n
		}
	}
}

// WithEvaluator replaces the govaluate backend.
func WithEvaluator(ev Evaluator) Option {
	return func(o *options) {
		if ev != nil {
			o.evaluator = ev
		}
	}
}

// WithLatestValue makes a non-converged result report the most refined
// estimate instead of the one before it, so Value and ErrorEstimate refer
// to the same iteration.
func WithLatestValue() Option {
	return func(o *options) { o.latest = true }
}

func buildOptions(maxIterations int, opts []Option) options {
	o := options{maxIterations: maxIterations, evaluator: defaultEvaluator}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ============================================================
// Results
// ============================================================

// Iteration is one refinement step of an adaptive solve. The first entry's
// Error is +Inf.
type Iteration struct {
	N     int
	Value float64
	Error float64
}

type SolverResult struct {
	Value         float64
	Intervals     int
	ErrorEstimate float64
	IsConverged   bool
	History       []Iteration
}

// jsonFloat encodes non-finite values as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (it Iteration) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		N     int       `json:"n"`
		Value jsonFloat `json:"value"`
		Error jsonFloat `json:"error"`
	}{it.N, jsonFloat(it.Value), jsonFloat(it.Error)})
}

func (r SolverResult) MarshalJSON() ([]byte, error) {
	history := r.History
	if history == nil {
		history = []Iteration{}
	}
	return json.Marshal(struct {
		Value         jsonFloat   `json:"value"`
		Intervals     int         `json:"intervals"`
		ErrorEstimate jsonFloat   `json:"errorEstimate"`
		IsConverged   bool        `json:"isConverged"`
		History       []Iteration `json:"history"`
	}{jsonFloat(r.Value), r.Intervals, jsonFloat(r.ErrorEstimate), r.IsConverged, history})
}

// ============================================================
// Trapezoidal rules
// ============================================================

// TrapezoidFunc1D is the composite trapezoidal rule for f over [a,b] with
// n intervals. A zero-width interval yields exactly 0.
func TrapezoidFunc1D(f func(x float64) float64, a, b float64, n int) float64 {
	if a == b {
		return 0
	}
	if n < 1 {
		n = 1
	}
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		sum += 2 * f(a+float64(i)*h)
	}
	return h / 2 * sum
}

// TrapezoidFunc2D is the tensor-product trapezoidal rule for f over
// [a,b]x[c,d] on an n x n grid. Corners weigh 1, edges 2, interior 4.
func TrapezoidFunc2D(f func(x, y float64) float64, a, b, c, d float64, n int) float64 {
	if a == b || c == d {
		return 0
	}
	if n < 1 {
		n = 1
	}
	dx := (b - a) / float64(n)
	dy := (d - c) / float64(n)
	sum := 0.0
	for i := 0; i <= n; i++ {
		x := a + float64(i)*dx
		edgeX := i == 0 || i == n
		for j := 0; j <= n; j++ {
			y := c + float64(j)*dy
			edgeY := j == 0 || j == n
			weight := 4.0
			switch {
			case edgeX && edgeY:
				weight = 1
			case edgeX || edgeY:
				weight = 2
			}
			sum += weight * f(x, y)
		}
	}
	return dx * dy / 4 * sum
}

// Trapezoid1D applies the 1-D rule to expr.
func Trapezoid1D(expr string, a, b float64, n int, opts ...Option) float64 {
	o := buildOptions(0, opts)
	return TrapezoidFunc1D(fn1D(o.evaluator, expr), a, b, n)
}

// Trapezoid2D applies the 2-D rule to expr.
func Trapezoid2D(expr string, a, b, c, d float64, n int, opts ...Option) float64 {
	o := buildOptions(0, opts)
	return TrapezoidFunc2D(fn2D(o.evaluator, expr), a, b, c, d, n)
}

func fn1D(ev Evaluator, expr string) func(float64) float64 {
	f := integrand(ev, expr)
	return func(x float64) float64 { return f(At(x)) }
}

func fn2D(ev Evaluator, expr string) func(float64, float64) float64 {
	f := integrand(ev, expr)
	return func(x, y float64) float64 { return f(AtXY(x, y)) }
}

// ============================================================
// Adaptive solver
// ============================================================

// richardson estimates the error of the finer of two trapezoidal estimates
// whose step sizes differ by a factor of two.
func richardson(curr, prev float64) float64 { return math.Abs(curr-prev) / 3 }

func adapt(ctx context.Context, rule func(n int) float64, seed int, tol float64, o options) (SolverResult, error) {
	n := seed
	prev := rule(n)
	history := []Iteration{{N: n, Value: prev, Error: math.Inf(1)}}
	for i := 0; i < o.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return unconverged(history, o.latest), err
		}
		n *= 2
		curr := rule(n)
		e := richardson(curr, prev)
		history = append(history, Iteration{N: n, Value: curr, Error: e})
		if e < tol {
			return SolverResult{Value: curr, Intervals: n, ErrorEstimate: e, IsConverged: true, History: history}, nil
		}
		prev = curr
	}
	return unconverged(history, o.latest), nil
}

// unconverged reports the estimate before the last one, unless latest is
// set, with the error recomputed from the final two history entries.
func unconverged(history []Iteration, latest bool) SolverResult {
	last := history[len(history)-1]
	r := SolverResult{
		Value:         last.Value,
		Intervals:     last.N,
		ErrorEstimate: math.Inf(1),
		History:       history,
	}
	if len(history) >= 2 {
		before := history[len(history)-2]
		r.ErrorEstimate = richardson(last.Value, before.Value)
		if !latest {
			r.Value = before.Value
		}
	}
	return r
}

func tolerance(tol, def float64) float64 {
	if math.IsNaN(tol) || tol <= 0 {
		return def
	}
	return tol
}

// AdaptiveSolve1D integrates expr over [a,b], doubling the interval count
// from 1 until the Richardson error estimate drops below tol or the
// iteration budget (default 20) is spent. A non-positive tol selects
// DefaultTolerance1D.
func AdaptiveSolve1D(expr string, a, b, tol float64, opts ...Option) SolverResult {
	r, _ := AdaptiveSolve1DContext(context.Background(), expr, a, b, tol, opts...)
	return r
}

// AdaptiveSolve1DContext is AdaptiveSolve1D with a cancellation check
// between refinements. On cancellation the partial, non-converged result is
// returned with the context error.
func AdaptiveSolve1DContext(ctx context.Context, expr string, a, b, tol float64, opts ...Option) (SolverResult, error) {
	o := buildOptions(DefaultMaxIterations1D, opts)
	f := fn1D(o.evaluator, expr)
	rule := func(n int) float64 { return TrapezoidFunc1D(f, a, b, n) }
	return adapt(ctx, rule, seed1D, tolerance(tol, DefaultTolerance1D), o)
}

// AdaptiveSolveFunc1D is AdaptiveSolve1D for a Go function.
func AdaptiveSolveFunc1D(f func(x float64) float64, a, b, tol float64, opts ...Option) SolverResult {
	o := buildOptions(DefaultMaxIterations1D, opts)
	rule := func(n int) float64 { return TrapezoidFunc1D(f, a, b, n) }
	r, _ := adapt(context.Background(), rule, seed1D, tolerance(tol, DefaultTolerance1D), o)
	return r
}

// AdaptiveSolve2D integrates expr over [a,b]x[c,d], doubling the grid
// dimension from 2 until convergence or the iteration budget (default 10)
// is spent. A non-positive tol selects DefaultTolerance2D.
func AdaptiveSolve2D(expr string, a, b, c, d, tol float64, opts ...Option) SolverResult {
	r, _ := AdaptiveSolve2DContext(context.Background(), expr, a, b, c, d, tol, opts...)
	return r
}

func AdaptiveSolve2DContext(ctx context.Context, expr string, a, b, c, d, tol float64, opts ...Option) (SolverResult, error) {
	o := buildOptions(DefaultMaxIterations2D, opts)
	f := fn2D(o.evaluator, expr)
	rule := func(n int) float64 { return TrapezoidFunc2D(f, a, b, c, d, n) }
	return adapt(ctx, rule, seed2D, tolerance(tol, DefaultTolerance2D), o)
}

func AdaptiveSolveFunc2D(f func(x, y float64) float64, a, b, c, d, tol float64, opts ...Option) SolverResult {
	o := buildOptions(DefaultMaxIterations2D, opts)
	rule := func(n int) float64 { return TrapezoidFunc2D(f, a, b, c, d, n) }
	r, _ := adapt(context.Background(), rule, seed2D, tolerance(tol, DefaultTolerance2D), o)
	return r
}

// ============================================================
// Input validation
// ============================================================

// ErrInvalidInput classifies rejected caller input.
var ErrInvalidInput = errors.New("invalid input")

// InputError reports the field that failed to parse.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q is not a valid number", e.Field, e.Value)
}

func (e *InputError) Unwrap() error        { return e.Err }
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// ParseLimits parses integration limits given as text. Fields are named
// a, b, c, d in order.
func ParseLimits(raw ...string) ([]float64, error) {
	names := []string{"a", "b", "c", "d"}
	out := make([]float64, len(raw))
	for i, s := range raw {
		name := fmt.Sprintf("limit[%d]", i)
		if i < len(names) {
			name = names[i]
		}
		v, err := parseFinite(name, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ParseTolerance parses a positive, finite tolerance.
func ParseTolerance(raw string) (float64, error) {
	v, err := parseFinite("tolerance", raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, &InputError{Field: "tolerance", Value: raw, Err: errors.New("must be positive")}
	}
	return v, nil
}

func parseFinite(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &InputError{Field: field, Value: raw, Err: errors.New("is empty")}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InputError{Field: field, Value: raw}
	}
	return v, nil
}
