package goquad

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ============================================================
// Explanation collaborator
// ============================================================

// ExplainUnavailable is returned by Explain when the collaborator fails.
const ExplainUnavailable = "Unable to generate explanation. Please check your network or try again later."

// Explainer turns a prompt into descriptive text, typically by calling a
// text-generation service.
type Explainer interface {
	Explain(ctx context.Context, prompt string) (string, error)
}

// ExplainRequest carries a finished solve to the explanation collaborator.
// C and D are only meaningful when IsDouble is set.
type ExplainRequest struct {
	Expr          string  `json:"expr"`
	A             float64 `json:"a"`
	B             float64 `json:"b"`
	C             float64 `json:"c,omitempty"`
	D             float64 `json:"d,omitempty"`
	Value         float64 `json:"value"`
	Intervals     int     `json:"intervals"`
	ErrorEstimate float64 `json:"errorEstimate"`
	IsDouble      bool    `json:"isDouble"`
}

// NewExplainRequest builds the request for a 1-D result.
func NewExplainRequest(expr string, a, b float64, r SolverResult) ExplainRequest {
	return ExplainRequest{Expr: expr, A: a, B: b, Value: r.Value, Intervals: r.Intervals, ErrorEstimate: r.ErrorEstimate}
}

// NewExplainRequest2D builds the request for a 2-D result.
func NewExplainRequest2D(expr string, a, b, c, d float64, r SolverResult) ExplainRequest {
	req := NewExplainRequest(expr, a, b, r)
	req.C, req.D, req.IsDouble = c, d, true
	return req
}

// Explain renders the prompt for req and asks ex for an explanation.
// Any failure yields ExplainUnavailable.
func Explain(ctx context.Context, ex Explainer, req ExplainRequest) string {
	if ex == nil {
		return ExplainUnavailable
	}
	text, err := ex.Explain(ctx, BuildExplainPrompt(req))
	if err != nil || strings.TrimSpace(text) == "" {
		return ExplainUnavailable
	}
	return text
}

const promptRules = `You are a mathematics tutor.

Output rules:
- Clean Markdown, short sections separated by blank lines.
- Bold key terms.
- Block LaTeX ($$ $$) for equations.
`

func num(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// BuildExplainPrompt renders the tutoring prompt for a single or double
// integral result.
func BuildExplainPrompt(req ExplainRequest) string {
	var sb strings.Builder
	sb.WriteString(promptRules)
	a, b, c, d := num(req.A), num(req.B), num(req.C), num(req.D)
	errText := fmt.Sprintf("%.2e", req.ErrorEstimate)
	if req.IsDouble {
		fmt.Fprintf(&sb, "\nSolve the double integral:\n\n$$ \\int_{%s}^{%s} \\int_{%s}^{%s} %s \\, dx \\, dy $$\n", c, d, a, b, req.Expr)
		sb.WriteString("\n## Step 1: Analytical solution\n\n")
		fmt.Fprintf(&sb, "### 1.1 Inner integral in x\n\n$$ \\int_{%s}^{%s} %s \\, dx $$\n\nTreat y as a constant and show the steps.\n\n", a, b, req.Expr)
		fmt.Fprintf(&sb, "### 1.2 Outer integral in y\n\nIntegrate the result of 1.1 from %s to %s.\n\n", c, d)
		sb.WriteString("### Exact volume\n\nGive the exact value and its decimal approximation.\n")
		sb.WriteString("\n## Step 2: Numerical double integration\n\n")
		fmt.Fprintf(&sb, "- **Grid size:** %d x %d\n", req.Intervals, req.Intervals)
		fmt.Fprintf(&sb, "- **Numerical volume:** %s\n", num(req.Value))
		fmt.Fprintf(&sb, "- **Estimated error:** %s\n\n", errText)
		fmt.Fprintf(&sb, "Explain that the volume is a sum over %d prisms.\n", req.Intervals*req.Intervals)
		sb.WriteString("\n## Conclusion\n\nOne short final sentence.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "\nSolve the definite integral:\n\n$$ f(x) = %s $$\nfrom a = %s to b = %s\n", req.Expr, a, b)
	sb.WriteString("\n## Step 1: Analytical solution\n\n")
	fmt.Fprintf(&sb, "### 1.1 Antiderivative\n\n$$ F(x) = \\int %s \\, dx $$\n\nState the integration rule used.\n\n", req.Expr)
	fmt.Fprintf(&sb, "### 1.2 Fundamental theorem of calculus\n\n$$ \\int_{%s}^{%s} %s \\, dx = F(%s) - F(%s) $$\n\nSubstitute and simplify step by step.\n\n", a, b, req.Expr, b, a)
	sb.WriteString("### Exact result\n\nGive the exact value and its decimal approximation.\n")
	sb.WriteString("\n## Step 2: Adaptive trapezoidal rule\n\n")
	fmt.Fprintf(&sb, "- **Intervals used:** %d\n", req.Intervals)
	fmt.Fprintf(&sb, "- **Numerical result:** %s\n", num(req.Value))
	fmt.Fprintf(&sb, "- **Estimated error:** %s\n\n", errText)
	sb.WriteString("Explain adaptive refinement in two short bullet points.\n")
	sb.WriteString("\n## Comparison\n\n| Method | Result |\n|--------|--------|\n")
	fmt.Fprintf(&sb, "| Analytical | (exact value) |\n| Numerical | %s |\n", num(req.Value))
	sb.WriteString("\n## Conclusion\n\nOne short concluding sentence.\n")
	return sb.String()
}
