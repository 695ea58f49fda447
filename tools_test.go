package goquad_test

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/goquad"
)

// call round-trips a tool call through JSON the way the servers do.
func call(t *testing.T, tool string, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(goquad.ToolRequest{Tool: tool, Params: params})
	require.NoError(t, err)
	var req goquad.ToolRequest
	require.NoError(t, json.Unmarshal(body, &req))

	out, err := json.Marshal(goquad.HandleToolCall(req))
	require.NoError(t, err)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &resp))
	return resp
}

func TestTool_Evaluate(t *testing.T) {
	resp := call(t, "evaluate", map[string]interface{}{"expr": "x*y + 1", "x": 2, "y": 3})
	assert.Equal(t, 7.0, resp["result"])
	assert.Equal(t, "7", resp["string"])

	resp = call(t, "evaluate", map[string]interface{}{"expr": "z", "x": 2})
	assert.Nil(t, resp["result"])
	assert.Equal(t, "NaN", resp["string"])
}

func TestTool_Trapezoid(t *testing.T) {
	resp := call(t, "trapezoid", map[string]interface{}{"expr": "x", "a": 0, "b": 2})
	assert.Equal(t, 2.0, resp["result"])

	resp = call(t, "trapezoid_double", map[string]interface{}{"expr": "1", "a": 0, "b": 1, "c": 0, "d": 1})
	assert.Equal(t, 1.0, resp["result"])

	resp = call(t, "trapezoid", map[string]interface{}{"expr": "x", "a": 0, "b": 2, "n": 0})
	assert.Contains(t, resp["error"], "param n")
}

func TestTool_Integrate(t *testing.T) {
	resp := call(t, "integrate", map[string]interface{}{"expr": "x^2", "a": 0, "b": 1})
	require.Empty(t, resp["error"])
	result := resp["result"].(map[string]interface{})
	assert.Equal(t, true, result["isConverged"])
	assert.Equal(t, 256.0, result["intervals"])
	assert.InDelta(t, 1.0/3, result["value"], 1e-5)
	assert.Contains(t, resp["string"], "converged")
}

func TestTool_IntegrateDouble(t *testing.T) {
	resp := call(t, "integrate_double", map[string]interface{}{
		"expr": "x^2 + y^2", "a": 0, "b": 1, "c": 0, "d": 1, "tolerance": 1e-5,
	})
	require.Empty(t, resp["error"])
	result := resp["result"].(map[string]interface{})
	assert.Equal(t, true, result["isConverged"])
	assert.InDelta(t, 2.0/3, result["value"], 1e-4)
}

func TestTool_IntegrateBudget(t *testing.T) {
	resp := call(t, "integrate", map[string]interface{}{"expr": "z", "a": 0, "b": 1, "max_iterations": 2})
	result := resp["result"].(map[string]interface{})
	assert.Equal(t, false, result["isConverged"])
	assert.Len(t, result["history"], 3)
	assert.Contains(t, resp["string"], "not converged")

	resp = call(t, "integrate", map[string]interface{}{"expr": "x", "a": 0, "b": 1, "max_iterations": 1000})
	assert.Contains(t, resp["error"], "max_iterations")

	resp = call(t, "integrate_double", map[string]interface{}{"expr": "x", "a": 0, "b": 1, "c": 0, "d": 1, "max_iterations": 1.5})
	assert.Contains(t, resp["error"], "integer")
}

func TestTool_ParamErrors(t *testing.T) {
	resp := call(t, "integrate", map[string]interface{}{"expr": "x", "a": 0})
	assert.Equal(t, "missing param: b", resp["error"])

	resp = call(t, "integrate", map[string]interface{}{"expr": 3, "a": 0, "b": 1})
	assert.Equal(t, "param expr must be a string", resp["error"])

	resp = call(t, "integrate", map[string]interface{}{"expr": "x", "a": "zero", "b": 1})
	assert.Equal(t, "param a must be a number", resp["error"])

	resp = call(t, "nope", nil)
	assert.Equal(t, "unknown tool: nope", resp["error"])
}

func TestTool_SampleCurve(t *testing.T) {
	resp := call(t, "sample_curve", map[string]interface{}{"expr": "x", "a": 0, "b": 1, "count": 3, "n": 2})
	result := resp["result"].(map[string]interface{})
	assert.Len(t, result["points"], 3)
	assert.Len(t, result["panels"], 2)

	resp = call(t, "sample_curve", map[string]interface{}{"expr": "x", "a": 0, "b": 1})
	result = resp["result"].(map[string]interface{})
	assert.Len(t, result["points"], 100)
	assert.NotContains(t, result, "panels")
}

func TestTool_ExplainPrompt(t *testing.T) {
	resp := call(t, "explain_prompt", map[string]interface{}{
		"expr": "x*y", "a": 0, "b": 1, "c": 0, "d": 2, "value": 1, "error_estimate": 0, "intervals": 4,
	})
	assert.Contains(t, resp["string"], "**Grid size:** 4 x 4")

	resp = call(t, "explain_prompt", map[string]interface{}{
		"expr": "x", "a": 0, "b": 1, "value": 0.5, "error_estimate": 0,
	})
	assert.Contains(t, resp["string"], "from a = 0 to b = 1")
}

func TestTool_ExplainPromptIntervalsRange(t *testing.T) {
	for _, intervals := range []float64{0, -3, goquad.MaxToolIntervals1D + 1} {
		resp := call(t, "explain_prompt", map[string]interface{}{
			"expr": "x", "a": 0, "b": 1, "value": 0.5, "error_estimate": 0, "intervals": intervals,
		})
		assert.Contains(t, resp["error"], "param intervals must be in [1, ", "intervals=%v", intervals)
		assert.NotContains(t, resp, "string")
	}

	resp := call(t, "explain_prompt", map[string]interface{}{
		"expr": "x*y", "a": 0, "b": 1, "c": 0, "d": 1, "value": 0.25, "error_estimate": 0,
		"intervals": goquad.MaxToolIntervals2D + 1,
	})
	assert.Contains(t, resp["error"], "param intervals")

	resp = call(t, "explain_prompt", map[string]interface{}{
		"expr": "x*y", "a": 0, "b": 1, "c": 0, "d": 1, "value": 0.25, "error_estimate": 0,
		"intervals": goquad.MaxToolIntervals2D,
	})
	assert.Empty(t, resp["error"])
	assert.Contains(t, resp["string"], "sum over 4194304 prisms")
}

func TestToolCallContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := goquad.HandleToolCallContext(ctx, goquad.ToolRequest{
		Tool:   "integrate_double",
		Params: map[string]interface{}{"expr": "sin(1000*x*y)", "a": 0.0, "b": 1.0, "c": 0.0, "d": 1.0, "tolerance": 1e-12, "max_iterations": 10.0},
	})
	assert.Equal(t, context.Canceled.Error(), resp.Error)
	r, ok := resp.Result.(goquad.SolverResult)
	require.True(t, ok)
	assert.False(t, r.IsConverged)
	assert.Len(t, r.History, 1)

	resp = goquad.HandleToolCallContext(ctx, goquad.ToolRequest{
		Tool:   "integrate",
		Params: map[string]interface{}{"expr": "x", "a": 0.0, "b": 1.0},
	})
	assert.Equal(t, context.Canceled.Error(), resp.Error)
}

func TestToolSpec(t *testing.T) {
	var spec struct {
		Tools []struct {
			Name        string                 `json:"name"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(goquad.ToolSpec()), &spec))

	names := make([]string, 0, len(spec.Tools))
	for _, tool := range spec.Tools {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
	assert.Equal(t, "evaluate,trapezoid,trapezoid_double,integrate,integrate_double,sample_curve,explain_prompt,tool_spec", strings.Join(names, ","))

	resp := call(t, "tool_spec", nil)
	assert.Equal(t, goquad.ToolSpec(), resp["string"])
}

func TestSummary(t *testing.T) {
	r := goquad.SolverResult{Value: 0.5, Intervals: 2, ErrorEstimate: 0, IsConverged: true}
	assert.Equal(t, "0.5 (n=2, error=0.00e+00, converged)", goquad.Summary(r))

	r = goquad.SolverResult{Value: math.NaN(), Intervals: 4, ErrorEstimate: math.NaN()}
	assert.Equal(t, "NaN (n=4, error=NaN, not converged)", goquad.Summary(r))
}
