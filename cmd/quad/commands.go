package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/explain"
	"github.com/njchilds90/goquad/internal/server"
)

const longDescription = `Solve definite single and double integrals with the adaptive trapezoidal rule.

Expressions use x (and y for double integrals), the constants e and pi,
the operators + - * / ^ and functions such as sin, cos, exp, log and sqrt.`

func NewCommandQuad(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "quad",
		Short:        "Adaptive trapezoidal integration",
		Long:         longDescription,
		SilenceUsage: true,
	}
	cmd.SetOut(out)

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		NewCommandEval(out),
		NewCommandSolve(out),
		NewCommandSolve2D(out),
		NewCommandServe(),
	)
	return cmd
}

func NewCommandEval(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "eval EXPR X [Y]",
		Short: "Evaluate an expression at a point",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			point, err := goquad.ParseLimits(args[1:]...)
			if err != nil {
				return err
			}
			v := goquad.Evaluate(args[0], point[0], point[1:]...)
			fmt.Fprintln(out, strconv.FormatFloat(v, 'g', -1, 64))
			return nil
		},
	}
}

type solveOptions struct {
	tolerance     string
	maxIterations int
	latest        bool
	asJSON        bool
	history       bool
	explainURL    string
}

func (o *solveOptions) addFlags(cmd *cobra.Command, defTol float64, defIter int) {
	cmd.Flags().StringVar(&o.tolerance, "tol", strconv.FormatFloat(defTol, 'g', -1, 64), "Error tolerance")
	cmd.Flags().IntVar(&o.maxIterations, "max-iter", defIter, "Refinement budget")
	cmd.Flags().BoolVar(&o.latest, "latest", false, "Report the most refined estimate when not converged")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&o.history, "history", false, "Print every refinement step")
	cmd.Flags().StringVar(&o.explainURL, "explain-url", "", "Text-generation proxy used to explain the result")
}

func (o *solveOptions) solverOptions() []goquad.Option {
	opts := []goquad.Option{goquad.WithMaxIterations(o.maxIterations)}
	if o.latest {
		opts = append(opts, goquad.WithLatestValue())
	}
	return opts
}

func (o *solveOptions) print(cmd *cobra.Command, out io.Writer, r goquad.SolverResult, req goquad.ExplainRequest) error {
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintln(out, goquad.Summary(r))
	if o.history {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "n\tvalue\terror")
		for _, it := range r.History {
			errText := fmt.Sprintf("%.3e", it.Error)
			if math.IsInf(it.Error, 1) {
				errText = "-"
			}
			fmt.Fprintf(tw, "%d\t%.12g\t%s\n", it.N, it.Value, errText)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if o.explainURL != "" {
		client := explain.NewClient(o.explainURL, 60*time.Second)
		fmt.Fprintln(out)
		fmt.Fprintln(out, goquad.Explain(cmd.Context(), client, req))
	}
	return nil
}

func NewCommandSolve(out io.Writer) *cobra.Command {
	o := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve EXPR A B",
		Short: "Integrate f(x) over [A,B]",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, err := goquad.ParseLimits(args[1:]...)
			if err != nil {
				return err
			}
			tol, err := goquad.ParseTolerance(o.tolerance)
			if err != nil {
				return err
			}
			r, err := goquad.AdaptiveSolve1DContext(cmd.Context(), args[0], lim[0], lim[1], tol, o.solverOptions()...)
			if err != nil {
				return err
			}
			return o.print(cmd, out, r, goquad.NewExplainRequest(args[0], lim[0], lim[1], r))
		},
	}
	o.addFlags(cmd, goquad.DefaultTolerance1D, goquad.DefaultMaxIterations1D)
	return cmd
}

func NewCommandSolve2D(out io.Writer) *cobra.Command {
	o := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve2d EXPR A B C D",
		Short: "Integrate f(x,y) over [A,B]x[C,D]",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, err := goquad.ParseLimits(args[1:]...)
			if err != nil {
				return err
			}
			tol, err := goquad.ParseTolerance(o.tolerance)
			if err != nil {
				return err
			}
			r, err := goquad.AdaptiveSolve2DContext(cmd.Context(), args[0], lim[0], lim[1], lim[2], lim[3], tol, o.solverOptions()...)
			if err != nil {
				return err
			}
			return o.print(cmd, out, r, goquad.NewExplainRequest2D(args[0], lim[0], lim[1], lim[2], lim[3], r))
		},
	}
	o.addFlags(cmd, goquad.DefaultTolerance2D, goquad.DefaultMaxIterations2D)
	return cmd
}

func NewCommandServe() *cobra.Command {
	v := config.New()
	var configFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			var ex goquad.Explainer
			if cfg.ExplainURL != "" {
				ex = explain.NewClient(cfg.ExplainURL, cfg.ExplainTimeout)
			}
			return server.New(cfg, ex, prometheus.NewRegistry()).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Optional config file (yaml, json or toml)")
	cmd.Flags().Int("port", 8080, "Port to listen on")
	cmd.Flags().String("explain-url", "", "Text-generation proxy for /explain")
	bindFlags(v, cmd, map[string]string{
		config.KeyPort:       "port",
		config.KeyExplainURL: "explain-url",
	})
	return cmd
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			klog.ErrorS(err, "bind flag", "flag", name)
		}
	}
}
