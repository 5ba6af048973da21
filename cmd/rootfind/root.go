package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JPFrancoia/scipy/internal/config"
	"github.com/JPFrancoia/scipy/internal/optimizer"
	"github.com/JPFrancoia/scipy/optimize/zeros"
)

var (
	flagConfig string
	flagJSON   bool
)

var rootCmd = &cobra.Command{
	Use:           "rootfind",
	Short:         "Find roots of scalar functions",
	Long:          "rootfind solves f(x) = 0 with bracketing (brentq, brenth, ridder, bisect) or open (newton, secant, halley) methods.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file with solver defaults")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(solveCmd, batchCmd)
}

// row is one line of output.
type row struct {
	Name   string
	Result zeros.Result
	Error  string
}

func (r row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name       string       `json:"name,omitempty"`
		Method     zeros.Method `json:"method"`
		Root       *float64     `json:"root"`
		FuncCalls  int          `json:"funcalls"`
		Iterations int          `json:"iterations"`
		Status     zeros.Status `json:"error_num"`
		Flag       string       `json:"flag"`
		Error      string       `json:"error,omitempty"`
	}{
		r.Name, r.Result.Method, optimizer.Finite(r.Result.Root),
		r.Result.FuncCalls, r.Result.Iterations, r.Result.Status, r.Result.Status.String(), r.Error,
	})
}

func newRow(name string, out optimizer.Outcome, err error) row {
	r := row{Name: name, Result: out.Result}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func fmtRoot(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 15, 64)
}

func render(w io.Writer, rows []row) error {
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Method", "Root", "Calls", "Iterations", "Status"})
	table.SetAutoFormatHeaders(false)
	for _, r := range rows {
		table.Append([]string{
			r.Name,
			r.Result.Method.String(),
			fmtRoot(r.Result.Root),
			strconv.Itoa(r.Result.FuncCalls),
			strconv.Itoa(r.Result.Iterations),
			r.Result.Status.String(),
		})
	}
	table.Render()
	for _, r := range rows {
		if r.Error != "" && r.Result.Status == zeros.InvalidInput {
			fmt.Fprintf(w, "%s: %s\n", r.Name, r.Error)
		}
	}
	return nil
}

func solverDefaults() (zeros.Options, error) {
	cfg, err := config.Resolve(flagConfig)
	if err != nil {
		return zeros.Options{}, err
	}
	return cfg.Solver, nil
}
