package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/phil-mansfield/gomech"
	"github.com/phil-mansfield/gomech/couple"
	"github.com/phil-mansfield/gomech/diag"
	"github.com/phil-mansfield/gomech/exchange"
	"github.com/phil-mansfield/gomech/geom"
	"github.com/phil-mansfield/gomech/io"
	"github.com/phil-mansfield/gomech/tree"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("gomech: %v", err)
	}
}

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	Config    string
	Sources   string
	Receptors string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gomech",
		Short: "Conservative neighbor coupling for stellar feedback",
		Long: `gomech injects feedback events from source particles into their
gas neighbors through an anisotropy-corrected, conservative coupling scheme.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Config, "config", "",
		"path to the configuration file")
	cmd.PersistentFlags().StringVar(&opts.Sources, "sources", "",
		"path to the source catalog")
	cmd.PersistentFlags().StringVar(&opts.Receptors, "receptors", "",
		"path to the receptor catalog")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newExampleConfigCommand())

	return cmd
}

func newExampleConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "example-config",
		Short: "Print a documented example configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), io.ExampleConfigFile)
		},
	}
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and catalogs without stepping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, srcs, recs, err := load(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"config ok: %d sources, %d receptors, %d species\n",
				len(srcs), len(recs), cfg.Species.Count)
			return nil
		},
	}
}

// runOptions holds the flags of the run command.
type runOptions struct {
	*rootOptions
	Time  float64
	Dt    float64
	Steps int
	Ranks int
	CSV   string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run feedback steps over the catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.Flags().Float64Var(&opts.Time, "time", 0,
		"starting time in code units")
	cmd.Flags().Float64Var(&opts.Dt, "dt", 0.001,
		"time advanced per step, code units")
	cmd.Flags().IntVar(&opts.Steps, "steps", 1, "number of steps to run")
	cmd.Flags().IntVar(&opts.Ranks, "ranks", 1,
		"number of domain slabs to split the particles over")
	cmd.Flags().StringVar(&opts.CSV, "csv", "",
		"write per-step telemetry to this CSV file")

	return cmd
}

func load(opts *rootOptions) (
	*io.Config, []gomech.Source, []gomech.Receptor, error,
) {
	if opts.Config == "" {
		return nil, nil, nil, fmt.Errorf("the --config flag is required")
	}
	if opts.Sources == "" || opts.Receptors == "" {
		return nil, nil, nil,
			fmt.Errorf("the --sources and --receptors flags are required")
	}

	cfg, err := io.ReadConfig(opts.Config)
	if err != nil {
		return nil, nil, nil, err
	}
	srcs, err := io.ReadSources(opts.Sources)
	if err != nil {
		return nil, nil, nil, err
	}
	recs, err := io.ReadReceptors(opts.Receptors, cfg.Species.Count)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, srcs, recs, nil
}

func run(opts *runOptions) error {
	if opts.Ranks < 1 {
		return fmt.Errorf("--ranks must be at least 1, not %d", opts.Ranks)
	}
	if opts.Steps < 1 || opts.Dt <= 0 {
		return fmt.Errorf("need a positive --steps and --dt")
	}

	cfg, srcs, recs, err := load(opts.rootOptions)
	if err != nil {
		return err
	}
	sel, err := cfg.Selector()
	if err != nil {
		return err
	}

	eng := &exchange.Engine{
		Ranks:    buildRanks(cfg, srcs, recs, opts.Ranks),
		Eval:     &couple.Evaluator{Params: cfg.Params()},
		Selector: sel,
		Log:      func(rec *diag.Record) { log.Println(rec.Line()) },
	}
	log.Printf("running %d steps over %d sources, %d receptors, %d ranks",
		opts.Steps, len(srcs), len(recs), opts.Ranks)

	recsOut := make([]diag.Record, 0, opts.Steps)
	time := opts.Time
	for step := 0; step < opts.Steps; step++ {
		rec, err := eng.Step(time)
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		recsOut = append(recsOut, rec)
		time += opts.Dt
	}

	if opts.CSV != "" {
		f, err := os.Create(opts.CSV)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := diag.WriteCSV(f, recsOut); err != nil {
			return err
		}
	}
	return nil
}

// buildRanks splits the particles into n slabs, round robin, and builds each
// slab's neighbor index.
func buildRanks(
	cfg *io.Config, srcs []gomech.Source, recs []gomech.Receptor, n int,
) []*exchange.Rank {
	srcSets := make([][]gomech.Source, n)
	recSets := make([][]gomech.Receptor, n)
	for i := range srcs {
		srcSets[i%n] = append(srcSets[i%n], srcs[i])
	}
	for i := range recs {
		recSets[i%n] = append(recSets[i%n], recs[i])
	}

	ranks := make([]*exchange.Rank, n)
	for i := 0; i < n; i++ {
		pos := make([]geom.Vec, len(recSets[i]))
		for j := range recSets[i] {
			pos[j] = recSets[i][j].Pos
		}
		idx := tree.NewCellIndex(cfg.Coupling.TotalWidth,
			cfg.Coupling.Cells, [][]geom.Vec{pos})
		ranks[i] = exchange.NewRank(i, srcSets[i], recSets[i], idx)
	}
	return ranks
}
