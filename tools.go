package goquad

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================
// MCP Tool Interface
// ============================================================

// Iteration budgets accepted from tool callers. Each 1-D refinement doubles
// the evaluation count, each 2-D refinement quadruples it.
const (
	MaxToolIterations1D = 24
	MaxToolIterations2D = 10

	MaxToolIntervals1D = 1 << 24
	MaxToolIntervals2D = 1 << 11

	maxToolSamples = 1 << 16
)

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func HandleToolCall(req ToolRequest) ToolResponse {
	return HandleToolCallContext(context.Background(), req)
}

// HandleToolCallContext is HandleToolCall with cancellation of the adaptive
// solves. A cancelled solve returns its partial result along with the error.
func HandleToolCallContext(ctx context.Context, req ToolRequest) ToolResponse {
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getNumber := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, fmt.Errorf("missing param: %s", key)
		}
		f, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("param %s must be a number", key)
		}
		return f, nil
	}
	optNumber := func(key string, def float64) (float64, error) {
		if _, ok := req.Params[key]; !ok {
			return def, nil
		}
		return getNumber(key)
	}
	optInt := func(key string, def int) (int, error) {
		if _, ok := req.Params[key]; !ok {
			return def, nil
		}
		f, err := getNumber(key)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("param %s must be an integer", key)
		}
		return int(f), nil
	}
	getNumbers := func(keys ...string) ([]float64, error) {
		out := make([]float64, len(keys))
		for i, k := range keys {
			f, err := getNumber(k)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	errResp := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	switch req.Tool {
	case "evaluate":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		x, err := getNumber("x")
		if err != nil {
			return errResp(err)
		}
		var v float64
		if _, ok := req.Params["y"]; ok {
			y, err := getNumber("y")
			if err != nil {
				return errResp(err)
			}
			v = Evaluate(expr, x, y)
		} else {
			v = Evaluate(expr, x)
		}
		return ToolResponse{Result: jsonFloat(v), String: num(v)}

	case "trapezoid":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		lim, err := getNumbers("a", "b")
		if err != nil {
			return errResp(err)
		}
		n, err := optInt("n", seed1D)
		if err != nil {
			return errResp(err)
		}
		if n < 1 || n > MaxToolIntervals1D {
			return errResp(fmt.Errorf("param n must be in [1, %d]", MaxToolIntervals1D))
		}
		v := Trapezoid1D(expr, lim[0], lim[1], n)
		return ToolResponse{Result: jsonFloat(v), String: num(v)}

	case "trapezoid_double":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		lim, err := getNumbers("a", "b", "c", "d")
		if err != nil {
			return errResp(err)
		}
		n, err := optInt("n", seed2D)
		if err != nil {
			return errResp(err)
		}
		if n < 1 || n > MaxToolIntervals2D {
			return errResp(fmt.Errorf("param n must be in [1, %d]", MaxToolIntervals2D))
		}
		v := Trapezoid2D(expr, lim[0], lim[1], lim[2], lim[3], n)
		return ToolResponse{Result: jsonFloat(v), String: num(v)}

	case "integrate":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		lim, err := getNumbers("a", "b")
		if err != nil {
			return errResp(err)
		}
		tol, err := optNumber("tolerance", DefaultTolerance1D)
		if err != nil {
			return errResp(err)
		}
		maxIter, err := optInt("max_iterations", DefaultMaxIterations1D)
		if err != nil {
			return errResp(err)
		}
		if maxIter < 0 || maxIter > MaxToolIterations1D {
			return errResp(fmt.Errorf("param max_iterations must be in [0, %d]", MaxToolIterations1D))
		}
		r, err := AdaptiveSolve1DContext(ctx, expr, lim[0], lim[1], tol, WithMaxIterations(maxIter))
		return solveResponse(r, err)

	case "integrate_double":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		lim, err := getNumbers("a", "b", "c", "d")
		if err != nil {
			return errResp(err)
		}
		tol, err := optNumber("tolerance", DefaultTolerance2D)
		if err != nil {
			return errResp(err)
		}
		maxIter, err := optInt("max_iterations", DefaultMaxIterations2D)
		if err != nil {
			return errResp(err)
		}
		if maxIter < 0 || maxIter > MaxToolIterations2D {
			return errResp(fmt.Errorf("param max_iterations must be in [0, %d]", MaxToolIterations2D))
		}
		r, err := AdaptiveSolve2DContext(ctx, expr, lim[0], lim[1], lim[2], lim[3], tol, WithMaxIterations(maxIter))
		return solveResponse(r, err)

	case "sample_curve":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		lim, err := getNumbers("a", "b")
		if err != nil {
			return errResp(err)
		}
		count, err := optInt("count", 100)
		if err != nil {
			return errResp(err)
		}
		if count < 2 || count > maxToolSamples {
			return errResp(fmt.Errorf("param count must be in [2, %d]", maxToolSamples))
		}
		result := map[string]interface{}{"points": SampleCurve(expr, lim[0], lim[1], count)}
		if _, ok := req.Params["n"]; ok {
			n, err := optInt("n", seed1D)
			if err != nil {
				return errResp(err)
			}
			if n < 1 || n > maxToolSamples {
				return errResp(fmt.Errorf("param n must be in [1, %d]", maxToolSamples))
			}
			result["panels"] = TrapezoidPanels(expr, lim[0], lim[1], n)
		}
		return ToolResponse{Result: result}

	case "explain_prompt":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		lim, err := getNumbers("a", "b", "value", "error_estimate")
		if err != nil {
			return errResp(err)
		}
		intervals, err := optInt("intervals", seed1D)
		if err != nil {
			return errResp(err)
		}
		er := ExplainRequest{Expr: expr, A: lim[0], B: lim[1], Value: lim[2], ErrorEstimate: lim[3], Intervals: intervals}
		if _, ok := req.Params["c"]; ok {
			cd, err := getNumbers("c", "d")
			if err != nil {
				return errResp(err)
			}
			er.C, er.D, er.IsDouble = cd[0], cd[1], true
		}
		limit := MaxToolIntervals1D
		if er.IsDouble {
			limit = MaxToolIntervals2D
		}
		if intervals < 1 || intervals > limit {
			return errResp(fmt.Errorf("param intervals must be in [1, %d]", limit))
		}
		return ToolResponse{String: BuildExplainPrompt(er)}

	case "tool_spec":
		return ToolResponse{String: ToolSpec()}

	default:
		return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
	}
}

func solveResponse(r SolverResult, err error) ToolResponse {
	resp := ToolResponse{Result: r, String: Summary(r)}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// Summary renders a result as one line of text.
func Summary(r SolverResult) string {
	status := "converged"
	if !r.IsConverged {
		status = "not converged"
	}
	return fmt.Sprintf("%s (n=%d, error=%.2e, %s)", num(r.Value), r.Intervals, r.ErrorEstimate, status)
}

// ============================================================
// Tool schema
// ============================================================

func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("evaluate", "Evaluate an expression in x (and optionally y) with constants e and pi", []string{"expr", "x"}, map[string]string{"expr": "string", "x": "number", "y": "number"}),
		ts("trapezoid", "Fixed-n trapezoidal rule ∫_a^b f(x) dx. Optional n (default 1)", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number", "n": "integer"}),
		ts("trapezoid_double", "Fixed n×n trapezoidal rule over [a,b]×[c,d]. Optional n (default 2)", []string{"expr", "a", "b", "c", "d"}, map[string]string{"expr": "string", "a": "number", "b": "number", "c": "number", "d": "number", "n": "integer"}),
		ts("integrate", "Adaptive trapezoidal ∫_a^b f(x) dx. Optional tolerance (1e-6), max_iterations (20)", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number", "tolerance": "number", "max_iterations": "integer"}),
		ts("integrate_double", "Adaptive trapezoidal ∬ f(x,y) dx dy. Optional tolerance (1e-5), max_iterations (10)", []string{"expr", "a", "b", "c", "d"}, map[string]string{"expr": "string", "a": "number", "b": "number", "c": "number", "d": "number", "tolerance": "number", "max_iterations": "integer"}),
		ts("sample_curve", "Sample f over [a,b]. Optional count (100); n adds trapezoid panels", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number", "count": "integer", "n": "integer"}),
		ts("explain_prompt", "Render the tutoring prompt for a result. c and d select the double form", []string{"expr", "a", "b", "value", "error_estimate"}, map[string]string{"expr": "string", "a": "number", "b": "number", "c": "number", "d": "number", "value": "number", "intervals": "integer", "error_estimate": "number"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
