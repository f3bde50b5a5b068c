// Command gbili builds a sparse weighted graph from a numeric data file and
// a label file, for use in semi-supervised learning.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alanvalejo/gbili"
	"github.com/alanvalejo/gbili/dataset"
	"github.com/alanvalejo/gbili/graph"
)

// runConfig is the full CLI parameter surface. Every key can come from the
// optional YAML config file; explicitly set flags win over file values.
type runConfig struct {
	Filename       string  `yaml:"filename"`
	Labels         string  `yaml:"labels"`
	Output         string  `yaml:"output"`
	K1             int     `yaml:"k1"`
	K2             int     `yaml:"k2"`
	Threads        int     `yaml:"threads"`
	Epsilon        float64 `yaml:"epsilon"`
	Format         string  `yaml:"format"`
	Separator      string  `yaml:"separator"`
	SkipLastColumn bool    `yaml:"skip_last_column"`
	Verbose        bool    `yaml:"verbose"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		K1:     3,
		K2:     3,
		Format: "edgelist",
	}
}

func newRootCmd() *cobra.Command {
	flags := defaultRunConfig()
	var configPath string

	cmd := &cobra.Command{
		Use:           "gbili",
		Short:         "Build a GBILI graph from a feature-vector data file",
		Long:          "gbili builds a sparse, weighted, undirected graph over feature vectors,\nconnecting each instance to its most robust nearest neighbors with a bias\ntoward ground-truth-labeled instances.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mergeConfig(cmd, flags, configPath)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&flags.Filename, "filename", "f", "", "input data file (required)")
	cmd.Flags().StringVarP(&flags.Labels, "labels", "l", "", "file with one labeled vertex index per line (required)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "output file (default output/<stem>-gbili.<format>)")
	cmd.Flags().IntVar(&flags.K1, "k1", flags.K1, "neighborhood size examined per vertex (ke)")
	cmd.Flags().IntVar(&flags.K2, "k2", flags.K2, "maximum robust edges kept per vertex (ki)")
	cmd.Flags().IntVarP(&flags.Threads, "threads", "t", flags.Threads, "worker count (<= 0 means all cores)")
	cmd.Flags().Float64Var(&flags.Epsilon, "epsilon", flags.Epsilon, "near-tie tolerance for the labeled-instance preference")
	cmd.Flags().StringVar(&flags.Format, "format", flags.Format, "output format: edgelist or net")
	cmd.Flags().StringVar(&flags.Separator, "separator", "", "data file column separator (default: whitespace)")
	cmd.Flags().BoolVar(&flags.SkipLastColumn, "skip-last-column", false, "drop the trailing class column of the data file")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file; explicit flags take precedence")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// mergeConfig layers the three parameter sources: defaults, then the YAML
// config file, then explicitly set flags.
func mergeConfig(cmd *cobra.Command, flags runConfig, configPath string) (runConfig, error) {
	cfg := defaultRunConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	overrides := map[string]func(){
		"filename":         func() { cfg.Filename = flags.Filename },
		"labels":           func() { cfg.Labels = flags.Labels },
		"output":           func() { cfg.Output = flags.Output },
		"k1":               func() { cfg.K1 = flags.K1 },
		"k2":               func() { cfg.K2 = flags.K2 },
		"threads":          func() { cfg.Threads = flags.Threads },
		"epsilon":          func() { cfg.Epsilon = flags.Epsilon },
		"format":           func() { cfg.Format = flags.Format },
		"separator":        func() { cfg.Separator = flags.Separator },
		"skip-last-column": func() { cfg.SkipLastColumn = flags.SkipLastColumn },
		"verbose":          func() { cfg.Verbose = flags.Verbose },
	}
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	if cfg.Filename == "" {
		return cfg, fmt.Errorf("required flag \"filename\" not set")
	}
	if cfg.Labels == "" {
		return cfg, fmt.Errorf("required flag \"labels\" not set")
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg runConfig) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := gbili.NewTextLogger(level)

	format, err := graph.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	var loadOpts []func(o *dataset.LoadOptions)
	if cfg.Separator != "" {
		sep, size := utf8.DecodeRuneInString(cfg.Separator)
		if size != len(cfg.Separator) {
			return fmt.Errorf("separator must be a single character, got %q", cfg.Separator)
		}
		loadOpts = append(loadOpts, dataset.WithSeparator(sep))
	}
	if cfg.SkipLastColumn {
		loadOpts = append(loadOpts, dataset.WithSkipLastColumn())
	}

	ds, err := dataset.Load(cfg.Filename, loadOpts...)
	if err != nil {
		return err
	}
	labeled, err := dataset.LoadLabels(cfg.Labels)
	if err != nil {
		return err
	}
	if err := ds.AttachLabels(labeled); err != nil {
		return err
	}
	logger.Debug("input loaded",
		"points", ds.Len(),
		"dimension", ds.Dim(),
		"labeled", ds.LabeledCount(),
	)

	output := cfg.Output
	if output == "" {
		stem := strings.TrimSuffix(filepath.Base(cfg.Filename), filepath.Ext(cfg.Filename))
		output = filepath.Join("output", fmt.Sprintf("%s-gbili.%s", stem, format))
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	metrics := &gbili.BasicMetricsCollector{}
	engine, err := gbili.New(ds, gbili.Config{
		KE:      cfg.K1,
		KI:      cfg.K2,
		Threads: cfg.Threads,
		Epsilon: cfg.Epsilon,
	}, gbili.WithLogger(logger), gbili.WithMetricsCollector(metrics))
	if err != nil {
		return err
	}

	g, err := engine.Build(ctx)
	if err != nil {
		return err
	}

	if err := graph.WriteFile(output, g, format); err != nil {
		return err
	}
	logger.Info("graph written",
		"output", output,
		"format", format.String(),
		"edges", g.EdgeCount(),
		"avg_query", metrics.AverageSearchDuration(),
	)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
