package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/JPFrancoia/scipy/internal/config"
	"github.com/JPFrancoia/scipy/internal/optimizer"
	"github.com/JPFrancoia/scipy/optimize/zeros"
)

// batchFile is the YAML shape read by "rootfind batch".
//
//	concurrency: 4
//	problems:
//	  - name: cubic
//	    method: brentq
//	    f: "x**3 - x - 2"
//	    a: 1
//	    b: 2
type batchFile struct {
	Concurrency int            `yaml:"concurrency"`
	Problems    []batchProblem `yaml:"problems"`
}

type batchProblem struct {
	Name              string `yaml:"name"`
	optimizer.Request `yaml:",inline"`
}

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Solve every problem of a YAML file concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bf, err := loadBatch(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Resolve(flagConfig)
		if err != nil {
			return err
		}
		if bf.Concurrency <= 0 {
			bf.Concurrency = cfg.BatchConcurrency
		}
		return runBatch(cmd.Context(), cmd.OutOrStdout(), bf, cfg)
	},
}

func loadBatch(path string) (batchFile, error) {
	var bf batchFile
	b, err := os.ReadFile(path)
	if err != nil {
		return bf, err
	}
	if err := yaml.Unmarshal(b, &bf); err != nil {
		return bf, fmt.Errorf("%s: %w", path, err)
	}
	if len(bf.Problems) == 0 {
		return bf, fmt.Errorf("%s: no problems", path)
	}
	for i, p := range bf.Problems {
		if p.Method == zeros.MethodUnset {
			return bf, fmt.Errorf("%s: problem %d: %w: method not set", path, i+1, zeros.ErrUnknownMethod)
		}
	}
	return bf, nil
}

func runBatch(ctx context.Context, w io.Writer, bf batchFile, cfg config.Config) error {
	rows := make([]row, len(bf.Problems))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(bf.Concurrency, 1))
	for i, p := range bf.Problems {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		req := p.Request.WithDefaults(cfg.Solver)
		g.Go(func() error {
			out, err := optimizer.Run(ctx, req, nil)
			rows[i] = newRow(name, out, err)
			return nil
		})
	}
	_ = g.Wait()

	if err := render(w, rows); err != nil {
		return err
	}
	failed := 0
	for _, r := range rows {
		if !r.Result.Converged() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d problems did not converge", failed, len(rows))
	}
	return nil
}
