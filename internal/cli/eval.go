package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"

	"github.com/pumped-fn/ripple"
	"github.com/pumped-fn/ripple/extensions"
	"github.com/pumped-fn/ripple/pkg/sheet"
)

type evalOptions struct {
	sets        []string
	transaction bool
	watch       []string
	metrics     bool
}

// evalCommand creates the eval command.
func (c *CLI) evalCommand() *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:   "eval <sheet.hcl>",
		Short: "Evaluate a sheet and print every entry",
		Long: `Evaluate loads a sheet, applies the --set writes to its sources and prints the
value of every entry. Values are HCL literals; anything else is taken as a string.`,
		Example: `  ripple eval prices.hcl --set net=120 --set currency=EUR --tx --watch gross`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("tx") {
				opts.transaction = c.config.Eval.Transaction
			}
			if !cmd.Flags().Changed("metrics") {
				opts.metrics = c.config.Metrics.Enabled
			}
			return c.runEval(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.sets, "set", "s", nil, "write a source, as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.transaction, "tx", false, "apply all writes in one transaction")
	cmd.Flags().StringArrayVarP(&opts.watch, "watch", "w", nil, "print every change of an entry (repeatable)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print engine metrics in Prometheus text format")

	return cmd
}

type write struct {
	name  string
	value cty.Value
}

func parseWrites(sets []string) ([]write, error) {
	writes := make([]write, 0, len(sets))
	for _, set := range sets {
		name, text, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: want name=value", set)
		}
		writes = append(writes, write{name: name, value: sheet.ParseValue(strings.TrimSpace(text))})
	}
	return writes, nil
}

func (c *CLI) runEval(ctx context.Context, path string, opts evalOptions) error {
	logger := loggerFromContext(ctx)

	writes, err := parseWrites(opts.sets)
	if err != nil {
		return err
	}

	graphOpts := []ripple.GraphOption{
		ripple.WithExtension(extensions.NewGraphDebugExtension(extensions.NewHumanHandler(c.errOut, slog.LevelError))),
		ripple.WithExtension(extensions.NewLoggingExtension(slogger(logger))),
	}
	var reg *prometheus.Registry
	if opts.metrics {
		reg = prometheus.NewRegistry()
		graphOpts = append(graphOpts, ripple.WithExtension(extensions.NewMetricsExtension(reg)))
	}

	s, g, err := c.openSheet(ctx, path, graphOpts...)
	if err != nil {
		return err
	}
	defer disposeGraph(logger, g)
	defer s.Close()

	for _, name := range opts.watch {
		if _, err := s.Watch(name, func(v cty.Value) {
			fmt.Fprintf(c.out, "~ %s = %s\n", name, sheet.FormatValue(v))
		}); err != nil {
			return err
		}
	}

	p := newProgress(logger)
	if opts.transaction {
		batch := make(map[string]cty.Value, len(writes))
		for _, w := range writes {
			batch[w.name] = w.value
		}
		if err := s.Apply(batch); err != nil {
			return err
		}
	} else {
		for _, w := range writes {
			if err := s.Set(w.name, w.value); err != nil {
				return err
			}
		}
	}
	stats := g.Stats()
	p.done("Applied writes", "writes", len(writes), "pulses", stats.Pulses, "recomputed", stats.Recomputed)

	if err := printValues(c.out, s); err != nil {
		return err
	}

	if reg != nil {
		return printMetrics(c.out, reg)
	}
	return nil
}

// openSheet loads path and builds it on a new graph logging through the
// context logger.
func (c *CLI) openSheet(ctx context.Context, path string, opts ...ripple.GraphOption) (*sheet.Sheet, *ripple.Graph, error) {
	logger := loggerFromContext(ctx)

	def, err := sheet.Load(path)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]ripple.GraphOption{
		ripple.WithContext(ctx),
		ripple.WithLogger(slogger(logger)),
	}, opts...)
	g := ripple.NewGraph(opts...)

	s, err := sheet.New(g, def)
	if err != nil {
		disposeGraph(logger, g)
		return nil, nil, err
	}
	logger.Debug("Loaded sheet", "path", path, "entries", len(s.Names()), "graph", g.ID())
	return s, g, nil
}

// disposeGraph disposes g and logs the extensions that failed to shut down.
func disposeGraph(logger *log.Logger, g *ripple.Graph) {
	if err := g.Dispose(); err != nil {
		logger.Warn("Failed to dispose graph", "graph", g.ID(), "err", err)
	}
}

func printValues(w io.Writer, s *sheet.Sheet) error {
	width := 0
	for _, name := range s.Names() {
		width = max(width, len(name))
	}

	for _, name := range s.Names() {
		v, err := s.Value(name)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%-*s = %s", width, name, sheet.FormatValue(v))
		if evalErr := s.Err(name); evalErr != nil {
			line += "  # " + strings.ReplaceAll(evalErr.Error(), "\n", " ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
