package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/kprove/formatter"
	"github.com/gnoswap-labs/kprove/internal/definition"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/metrics"
	"github.com/gnoswap-labs/kprove/prove"
)

var (
	claimLabels     []string
	excludeLabels   []string
	noDepends       bool
	lemmaFiles      []string
	maxDepth        int
	workers         int
	parallel        int
	decisionTimeout time.Duration
	noDecider       bool
	jsonOutput      bool
	outPath         string
	showAll         bool
	watchFiles      bool
	metricsAddr     string
)

var proveCmd = &cobra.Command{
	Use:   "prove <definition.yaml>",
	Short: "Prove the claims of a rule database",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		applyFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}

		opts := proveOptions{
			definition: args[0],
			claims:     claimLabels,
			exclude:    excludeLabels,
			depends:    !noDepends,
			lemmas:     lemmaFiles,
			parallel:   parallel,
			json:       jsonOutput,
			output:     outPath,
			verbose:    showAll,
		}
		if !jsonOutput {
			opts.progress = os.Stderr
		}

		var collector *metrics.Collector
		if metricsAddr != "" {
			reg := prometheus.NewRegistry()
			collector = metrics.New(reg)
			go serveMetrics(metricsAddr, reg)
		}

		if watchFiles {
			run := limited(func(ctx context.Context) {
				if _, err := runProve(ctx, logger, os.Stdout, cfg, opts, collector); err != nil {
					logger.Error("Error proving claims", zap.Error(err))
				}
			}, timeout)
			if err := watchAndProve(context.Background(), logger, opts.watched(), run); err != nil {
				logger.Fatal("Watch failed", zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		proved, err := runProve(ctx, logger, os.Stdout, cfg, opts, collector)
		if err != nil {
			logger.Error("Error proving claims", zap.Error(err))
			os.Exit(2)
		}
		if !proved {
			os.Exit(1)
		}
	},
}

func init() {
	flags := proveCmd.Flags()
	flags.StringSliceVar(&claimLabels, "claim", nil, "Labels of the claims to prove (default: all)")
	flags.StringSliceVar(&excludeLabels, "exclude", nil, "Labels of claims to skip")
	flags.BoolVar(&noDepends, "no-depends", false, "Do not add the claims the selected claims depend on")
	flags.StringSliceVar(&lemmaFiles, "lemmas", nil, "Lemma files used for this run only")
	flags.IntVar(&maxDepth, "depth", prove.DefaultMaxDepth, "Depth bound per branch (-1: unbounded)")
	flags.IntVar(&workers, "workers", 0, "States expanded in parallel (0: all CPUs)")
	flags.IntVar(&parallel, "parallel", 0, "Claims proved in parallel (0: all CPUs)")
	flags.DurationVar(&decisionTimeout, "decision-timeout", prove.DefaultConfig().DecisionTimeout, "Time limit per decision procedure call")
	flags.BoolVar(&noDecider, "no-decider", false, "Discharge conditions syntactically only")
	flags.BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	flags.StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	flags.BoolVar(&showAll, "all", false, "Show proved branches as well")
	flags.BoolVar(&watchFiles, "watch", false, "Prove again whenever an input file changes")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// applyFlags overrides the configuration with the flags set on the
// command line.
func applyFlags(cmd *cobra.Command, cfg *prove.Config) {
	flags := cmd.Flags()
	if flags.Changed("depth") {
		cfg.MaxDepth = maxDepth
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("decision-timeout") {
		cfg.DecisionTimeout = decisionTimeout
	}
	if flags.Changed("no-decider") {
		cfg.UseDecider = !noDecider
	}
}

type proveOptions struct {
	definition string
	claims     []string
	exclude    []string
	depends    bool
	lemmas     []string
	parallel   int
	json       bool
	output     string
	verbose    bool
	progress   io.Writer
}

// watched lists the files whose changes trigger a new run.
func (o proveOptions) watched() []string {
	return append([]string{o.definition}, o.lemmas...)
}

// runProve proves the selected claims and writes the report to out, or
// to the output file for JSON. It reports whether every claim was proved.
func runProve(
	ctx context.Context,
	logger *zap.Logger,
	out io.Writer,
	cfg prove.Config,
	opts proveOptions,
	collector *metrics.Collector,
) (bool, error) {
	bundle, err := definition.Load(opts.definition)
	if err != nil {
		return false, err
	}
	var lemmas []kast.Rule
	for _, path := range opts.lemmas {
		ls, err := definition.LoadLemmas(path, bundle.Definition.Signature)
		if err != nil {
			return false, err
		}
		lemmas = append(lemmas, ls...)
	}
	claims, err := bundle.SelectClaims(definition.Selection{
		Include:     opts.claims,
		Exclude:     opts.exclude,
		WithDepends: opts.depends,
	})
	if err != nil {
		return false, err
	}

	prover, err := prove.New(bundle.Definition, cfg, logger)
	if err != nil {
		return false, err
	}
	if collector != nil {
		prover = prover.WithObserver(collector)
	}

	results, err := prove.ProcessClaims(ctx, logger, prover, claims, lemmas, prove.ProcessOptions{
		Parallel: opts.parallel,
		Progress: opts.progress,
	})
	if err != nil {
		return false, err
	}

	proved := true
	for _, res := range results {
		proved = proved && res.Proved()
	}

	if opts.json {
		d, err := formatter.JSON(results)
		if err != nil {
			return proved, fmt.Errorf("marshalling results: %w", err)
		}
		if opts.output != "" {
			return proved, os.WriteFile(opts.output, d, 0o644)
		}
		_, err = fmt.Fprintln(out, string(d))
		return proved, err
	}
	_, err = fmt.Fprint(out, formatter.FormatResults(results, opts.verbose))
	return proved, err
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}
