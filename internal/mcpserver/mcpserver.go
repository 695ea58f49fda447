// Package mcpserver exposes the adaptive solvers as Model Context Protocol
// tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"k8s.io/klog/v2"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/config"
)

type EvaluateInput struct {
	Expr string   `json:"expr" jsonschema:"expression in x and optionally y, e.g. x^2 + sin(y)"`
	X    float64  `json:"x" jsonschema:"value bound to x"`
	Y    *float64 `json:"y,omitempty" jsonschema:"value bound to y"`
}

type IntegrateInput struct {
	Expr          string  `json:"expr" jsonschema:"integrand in x, e.g. x^2 or exp(-x^2)"`
	A             float64 `json:"a" jsonschema:"lower limit"`
	B             float64 `json:"b" jsonschema:"upper limit"`
	Tolerance     float64 `json:"tolerance,omitempty" jsonschema:"error tolerance; server default when omitted"`
	MaxIterations *int    `json:"max_iterations,omitempty" jsonschema:"refinement budget; server default when omitted"`
}

type IntegrateDoubleInput struct {
	Expr          string  `json:"expr" jsonschema:"integrand in x and y, e.g. x^2 + y^2"`
	A             float64 `json:"a" jsonschema:"lower x limit"`
	B             float64 `json:"b" jsonschema:"upper x limit"`
	C             float64 `json:"c" jsonschema:"lower y limit"`
	D             float64 `json:"d" jsonschema:"upper y limit"`
	Tolerance     float64 `json:"tolerance,omitempty" jsonschema:"error tolerance; server default when omitted"`
	MaxIterations *int    `json:"max_iterations,omitempty" jsonschema:"refinement budget; server default when omitted"`
}

type evaluateOutput struct {
	Value  *float64 `json:"value"`
	String string   `json:"string"`
}

type solveOutput struct {
	Result  goquad.SolverResult `json:"result"`
	Summary string              `json:"summary"`
}

// New returns an MCP server with the evaluate, integrate and
// integrate_double tools registered.
func New(cfg config.Config, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "goquad", Version: version}, nil)
	h := handlers{cfg: cfg}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "evaluate",
		Description: "Evaluate an expression at x (and optionally y) with constants e and pi. Invalid expressions yield NaN.",
	}, h.evaluate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "integrate",
		Description: "Definite integral of f(x) over [a,b] by the adaptive trapezoidal rule.",
	}, h.integrate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "integrate_double",
		Description: "Double integral of f(x,y) over [a,b]x[c,d] by the adaptive trapezoidal rule.",
	}, h.integrateDouble)
	return server
}

type handlers struct {
	cfg config.Config
}

func textResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func budget(requested *int, def, limit int) (int, bool) {
	if requested == nil {
		return def, true
	}
	n := *requested
	return n, n >= 0 && n <= limit
}

func (h handlers) evaluate(ctx context.Context, req *mcp.CallToolRequest, in EvaluateInput) (*mcp.CallToolResult, any, error) {
	var v float64
	if in.Y != nil {
		v = goquad.Evaluate(in.Expr, in.X, *in.Y)
	} else {
		v = goquad.Evaluate(in.Expr, in.X)
	}
	out := evaluateOutput{String: strconv.FormatFloat(v, 'g', -1, 64)}
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		out.Value = &v
	}
	res, err := textResult(out)
	return res, nil, err
}

func (h handlers) integrate(ctx context.Context, req *mcp.CallToolRequest, in IntegrateInput) (*mcp.CallToolResult, any, error) {
	maxIter, ok := budget(in.MaxIterations, h.cfg.MaxIterations1D, goquad.MaxToolIterations1D)
	if !ok {
		return errorResult("max_iterations must be in [0, %d]", goquad.MaxToolIterations1D), nil, nil
	}
	tol := in.Tolerance
	if tol <= 0 {
		tol = h.cfg.Tolerance1D
	}
	r, err := goquad.AdaptiveSolve1DContext(ctx, in.Expr, in.A, in.B, tol, goquad.WithMaxIterations(maxIter))
	if err != nil {
		return nil, nil, err
	}
	klog.V(2).InfoS("mcp integrate", "expr", in.Expr, "intervals", r.Intervals, "converged", r.IsConverged)
	res, err := textResult(solveOutput{Result: r, Summary: goquad.Summary(r)})
	return res, nil, err
}

func (h handlers) integrateDouble(ctx context.Context, req *mcp.CallToolRequest, in IntegrateDoubleInput) (*mcp.CallToolResult, any, error) {
	maxIter, ok := budget(in.MaxIterations, h.cfg.MaxIterations2D, goquad.MaxToolIterations2D)
	if !ok {
		return errorResult("max_iterations must be in [0, %d]", goquad.MaxToolIterations2D), nil, nil
	}
	tol := in.Tolerance
	if tol <= 0 {
		tol = h.cfg.Tolerance2D
	}
	r, err := goquad.AdaptiveSolve2DContext(ctx, in.Expr, in.A, in.B, in.C, in.D, tol, goquad.WithMaxIterations(maxIter))
	if err != nil {
		return nil, nil, err
	}
	klog.V(2).InfoS("mcp integrate_double", "expr", in.Expr, "intervals", r.Intervals, "converged", r.IsConverged)
	res, err := textResult(solveOutput{Result: r, Summary: goquad.Summary(r)})
	return res, nil, err
}
