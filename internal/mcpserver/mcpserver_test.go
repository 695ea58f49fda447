package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Tolerance1D:     goquad.DefaultTolerance1D,
		MaxIterations1D: goquad.DefaultMaxIterations1D,
		Tolerance2D:     goquad.DefaultTolerance2D,
		MaxIterations2D: goquad.DefaultMaxIterations2D,
	}
}

func connect(t *testing.T, cfg config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()

	ss, err := New(cfg, "test").Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "want text content, got %T", res.Content[0])
	return res, text.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, testConfig())
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"evaluate", "integrate", "integrate_double"}, names)
}

func TestIntegrate(t *testing.T) {
	cs := connect(t, testConfig())
	res, text := callText(t, cs, "integrate", map[string]any{"expr": "x^2", "a": 0, "b": 1})
	require.False(t, res.IsError, text)

	var out struct {
		Result struct {
			Value       float64 `json:"value"`
			Intervals   int     `json:"intervals"`
			IsConverged bool    `json:"isConverged"`
		} `json:"result"`
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.True(t, out.Result.IsConverged)
	assert.Equal(t, 256, out.Result.Intervals)
	assert.InDelta(t, 1.0/3, out.Result.Value, 1e-5)
	assert.Contains(t, out.Summary, "converged")
}

func TestIntegrate_ConfiguredBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIterations1D = 2
	cs := connect(t, cfg)

	_, text := callText(t, cs, "integrate", map[string]any{"expr": "z", "a": 0, "b": 1})
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	result := out["result"].(map[string]any)
	assert.Equal(t, false, result["isConverged"])
	assert.Len(t, result["history"], 3)
	assert.Nil(t, result["value"])
}

func TestIntegrate_BudgetOutOfRange(t *testing.T) {
	cs := connect(t, testConfig())
	res, text := callText(t, cs, "integrate", map[string]any{"expr": "x", "a": 0, "b": 1, "max_iterations": 99})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "max_iterations")
}

func TestIntegrateDouble(t *testing.T) {
	cs := connect(t, testConfig())
	res, text := callText(t, cs, "integrate_double", map[string]any{
		"expr": "x^2 + y^2", "a": 0, "b": 1, "c": 0, "d": 1,
	})
	require.False(t, res.IsError, text)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	result := out["result"].(map[string]any)
	assert.Equal(t, true, result["isConverged"])
	assert.InDelta(t, 2.0/3, result["value"], 1e-4)
}

func TestEvaluate(t *testing.T) {
	cs := connect(t, testConfig())

	_, text := callText(t, cs, "evaluate", map[string]any{"expr": "x*y", "x": 2, "y": 4})
	assert.JSONEq(t, `{"value": 8, "string": "8"}`, text)

	_, text = callText(t, cs, "evaluate", map[string]any{"expr": "z", "x": 2})
	assert.JSONEq(t, `{"value": null, "string": "NaN"}`, text)
}
