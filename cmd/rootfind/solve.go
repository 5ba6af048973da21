package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JPFrancoia/scipy/internal/optimizer"
	"github.com/JPFrancoia/scipy/optimize/zeros"
)

var (
	flagMethod  string
	flagF       string
	flagFPrime  string
	flagFPrime2 string
	flagX0      float64
	flagX1      float64
	flagA       float64
	flagB       float64
	flagParams  []string
	flagXTol    float64
	flagRTol    float64
	flagTol     float64
	flagMaxIter int
	flagTrace   bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve one equation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := solveRequest(cmd)
		if err != nil {
			return err
		}
		return runSolve(cmd.Context(), cmd.OutOrStdout(), req, flagTrace)
	},
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&flagMethod, "method", "m", "brentq", "brentq|brenth|ridder|bisect|newton|secant|halley")
	f.StringVar(&flagF, "f", "", "f(x) expression, e.g. \"x**3 - x - 2\"")
	f.StringVar(&flagFPrime, "fprime", "", "f'(x) expression (newton, halley)")
	f.StringVar(&flagFPrime2, "fprime2", "", "f''(x) expression (halley)")
	f.Float64Var(&flagX0, "x0", 0, "starting point (open methods)")
	f.Float64Var(&flagX1, "x1", 0, "second starting point (secant)")
	f.Float64Var(&flagA, "a", 0, "left end of the bracket")
	f.Float64Var(&flagB, "b", 0, "right end of the bracket")
	f.StringArrayVarP(&flagParams, "param", "p", nil, "named constant k=v (repeatable)")
	f.Float64Var(&flagXTol, "xtol", 0, "absolute tolerance (bracketing)")
	f.Float64Var(&flagRTol, "rtol", 0, "relative tolerance (bracketing)")
	f.Float64Var(&flagTol, "tol", 0, "step tolerance (open methods)")
	f.IntVar(&flagMaxIter, "maxiter", 0, "iteration budget (0 = method default)")
	f.BoolVar(&flagTrace, "trace", false, "print every evaluation")
	_ = solveCmd.MarkFlagRequired("f")
}

func parseParams(kvs []string) (optimizer.Params, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	params := make(optimizer.Params, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("param %q: want name=value", kv)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", kv, err)
		}
		params[k] = f
	}
	return params, nil
}

func solveRequest(cmd *cobra.Command) (optimizer.Request, error) {
	m, err := zeros.ParseMethod(flagMethod)
	if err != nil {
		return optimizer.Request{}, err
	}
	params, err := parseParams(flagParams)
	if err != nil {
		return optimizer.Request{}, err
	}
	def, err := solverDefaults()
	if err != nil {
		return optimizer.Request{}, err
	}

	req := optimizer.Request{
		Method:  m,
		F:       flagF,
		FPrime:  flagFPrime,
		FPrime2: flagFPrime2,
		Params:  params,
		X0:      flagX0,
		A:       flagA,
		B:       flagB,
		Options: zeros.Options{XTol: flagXTol, RTol: flagRTol, Tol: flagTol, MaxIter: flagMaxIter},
	}
	if cmd.Flags().Changed("x1") {
		x1 := flagX1
		req.X1 = &x1
	}
	return req.WithDefaults(def), nil
}

func runSolve(ctx context.Context, w io.Writer, req optimizer.Request, trace bool) error {
	var onIter func(optimizer.Iter) error
	if trace {
		onIter = func(it optimizer.Iter) error {
			_, err := fmt.Fprintf(w, "%4d %-7s x=%-22s f=%s\n", it.K, it.Kind, fmtRoot(it.X), fmtRoot(it.FX))
			return err
		}
	}

	out, err := optimizer.Run(ctx, req, onIter)
	if rerr := render(w, []row{newRow("", out, err)}); rerr != nil {
		return rerr
	}
	return err
}
