// Command gradfit fits a line to a small training set with batch gradient
// descent and prints the intermediate quantities of the fit.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/copyleftdev/gradfit/internal/config"
	"github.com/copyleftdev/gradfit/internal/logging"
	"github.com/copyleftdev/gradfit/internal/optimization"
	"github.com/copyleftdev/gradfit/internal/optimization/descent"
	"github.com/copyleftdev/gradfit/internal/optimization/objective"
	"github.com/copyleftdev/gradfit/internal/plotting"
)

type Config struct {
	runPath  string
	savePath string
	outDir   string
	plot     bool
	logLevel string
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.runPath, "config", "", "YAML run file overriding the built-in house price example")
	flag.StringVar(&cfg.savePath, "save", "", "Write the effective run file to this path")
	flag.StringVar(&cfg.outDir, "out", ".", "Directory for data.png, fit.png and cost.png")
	flag.BoolVar(&cfg.plot, "plot", true, "Render charts")
	flag.StringVar(&cfg.logLevel, "log", "info", "Progress log level (debug, info, warn, error)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := logging.NewConsole(logging.LogLevel(strings.ToUpper(cfg.logLevel)))
	defer logger.Sync()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gradfit: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *logging.Logger, out io.Writer) error {
	r := config.DefaultRun()
	if cfg.runPath != "" {
		var err error
		if r, err = config.LoadRun(cfg.runPath); err != nil {
			return err
		}
	}
	if cfg.savePath != "" {
		if err := r.Save(cfg.savePath); err != nil {
			return fmt.Errorf("save run file: %w", err)
		}
	}

	ds, err := optimization.NewDataset(r.Data.X, r.Data.Y)
	if err != nil {
		return err
	}
	init := optimization.Params{W: r.Initial.W, B: r.Initial.B}

	fmt.Fprintf(out, "x_train = %v\n", ds.Xs())
	fmt.Fprintf(out, "y_train = %v\n", ds.Ys())
	fmt.Fprintf(out, "Initial parameters: w=%v, b=%v\n", init.W, init.B)

	cost, err := objective.Cost(ds, init.W, init.B)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Cost at initial w,b: %.3f\n", cost)

	dw, db, err := objective.Gradient(ds, init.W, init.B)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Gradient at initial w,b: dj_dw=%v, dj_db=%v\n", dw, db)

	gd, err := descent.New(descent.Config{
		LearningRate:   r.LearningRate,
		Iterations:     r.Iterations,
		MaxCostHistory: r.MaxCostHistory,
	}, descent.WithLogger(logger.Zap()))
	if err != nil {
		return err
	}

	res, err := gd.Solve(ctx, ds, init, objective.SquaredError{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "(w,b) found by gradient descent: (%8.4f,%8.4f)\n", res.Params.W, res.Params.B)
	fmt.Fprintf(out, "Final cost: %.6g after %d iterations\n", res.Cost, res.Iterations)

	if ref, err := descent.LeastSquares(ds); err == nil {
		fmt.Fprintf(out, "(w,b) by least squares:          (%8.4f,%8.4f)\n", ref.W, ref.B)
	} else {
		fmt.Fprintf(out, "Least squares reference unavailable: %v\n", err)
	}

	for i := 0; i < ds.Len(); i++ {
		x, y := ds.At(i)
		fmt.Fprintf(out, "Prediction for x=%v: %0.1f (actual %v)\n", x, res.Params.Predict(x), y)
	}

	if !cfg.plot {
		return nil
	}
	return renderCharts(cfg.outDir, ds, res, out)
}

type chart struct {
	name   string
	render func(path string) error
}

func renderCharts(dir string, ds optimization.Dataset, res *optimization.Result, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	charts := []chart{
		{"data.png", func(path string) error { return plotting.Data(ds, path) }},
		{"fit.png", func(path string) error { return plotting.Fit(ds, res.Params, path) }},
	}
	if len(res.CostHistory) > 0 {
		charts = append(charts, chart{"cost.png", func(path string) error { return plotting.Cost(res.CostHistory, path) }})
	}

	for _, c := range charts {
		path := filepath.Join(dir, c.name)
		if err := c.render(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	return nil
}
