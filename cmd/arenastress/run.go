package main

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pavanmanishd/blockarena/arenametrics"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	w := defaultWorkload()
	var (
		configPath  string
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a seeded allocate/free churn workload",
		Long: `The run command allocates and frees randomly sized, randomly aligned
regions from a block backed memory arena, frame by frame, checking that no
allocation is overwritten by another. Allocation sizes of each frame are
recorded in a linked list kept in a linear scratch arena that is rewound at
the end of the frame.

Settings can come from a YAML file; flags given on the command line win.

Example:
  arenastress run --ops 1000000 --max-size 4096
  arenastress run --config workload.yaml --seed 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				loaded, err := loadWorkload(configPath)
				if err != nil {
					return err
				}
				w = overrideWorkload(cmd.Flags(), loaded, w)
			}
			return runStress(w, showMetrics)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML workload file")
	f.IntVar(&w.Block.BlockSize, "block-size", w.Block.BlockSize, "Block size in bytes")
	f.IntVar(&w.Block.ReuseFactor, "reuse-factor", w.Block.ReuseFactor, "Largest freed region, as a multiple of the request, that may be reused")
	f.BoolVar(&w.Block.Mmap, "mmap", w.Block.Mmap, "Reserve blocks with mmap instead of the Go heap")
	f.IntVar(&w.Ops, "ops", w.Ops, "Number of allocate/free operations")
	f.IntVar(&w.MaxSize, "max-size", w.MaxSize, "Largest allocation size in bytes")
	f.IntVar(&w.Frames, "frames", w.Frames, "Number of frames the operations are spread over")
	f.Int64Var(&w.Seed, "seed", w.Seed, "Random seed")
	f.IntVar(&w.AllocPercent, "alloc-percent", w.AllocPercent, "Share of operations that allocate")
	f.IntVar(&w.ScratchChunk, "scratch-chunk", w.ScratchChunk, "Chunk size of the per-frame scratch arena")
	f.BoolVar(&showMetrics, "metrics", false, "Print the exported Prometheus gauges after the run")
	return cmd
}

// overrideWorkload copies every flag set on the command line from flags
// into loaded.
func overrideWorkload(fs *pflag.FlagSet, loaded, flags Workload) Workload {
	set := map[string]func(){
		"block-size":    func() { loaded.Block.BlockSize = flags.Block.BlockSize },
		"reuse-factor":  func() { loaded.Block.ReuseFactor = flags.Block.ReuseFactor },
		"mmap":          func() { loaded.Block.Mmap = flags.Block.Mmap },
		"ops":           func() { loaded.Ops = flags.Ops },
		"max-size":      func() { loaded.MaxSize = flags.MaxSize },
		"frames":        func() { loaded.Frames = flags.Frames },
		"seed":          func() { loaded.Seed = flags.Seed },
		"alloc-percent": func() { loaded.AllocPercent = flags.AllocPercent },
		"scratch-chunk": func() { loaded.ScratchChunk = flags.ScratchChunk },
	}
	for name, apply := range set {
		if fs.Changed(name) {
			apply()
		}
	}
	return loaded
}

func runStress(w Workload, showMetrics bool) error {
	printVerbose("Workload: %+v\n", w)

	reg := prometheus.NewRegistry()
	metrics := arenametrics.New(reg, "arenastress")

	res, err := runWorkload(w, logger, metrics)
	if err != nil {
		logger.WithField("action", "run").WithError(err).Error("workload failed")
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"workload": w,
			"result":   res,
		})
	}

	printInfo("\nWorkload finished in %s\n", res.Duration)
	printInfo("  Operations:     %d (%d allocs, %d frees, %d too large)\n", res.Ops, res.Allocs, res.Frees, res.TooLarge)
	printInfo("  Free list hits: %d\n", res.ReuseHits)
	printInfo("  Blocks:         peak %d, after trim %d\n", res.PeakBlocks, res.FinalBlocks)
	printInfo("  Utilization:    %.1f%%\n", res.Utilization*100)
	printInfo("  Peak live:      %d allocations\n", res.PeakLive)
	printInfo("  Peak frame:     %d bytes\n", res.PeakFrameBytes)
	printInfo("  Raw regions:    %d reserved, %d still live\n", res.RawAllocations, res.RawLive)

	classes := make([]string, 0, len(res.SizeClasses))
	for c := range res.SizeClasses {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	printVerbose("  Size classes:\n")
	for _, c := range classes {
		printVerbose("    %-8s %d\n", c, res.SizeClasses[c])
	}

	if showMetrics {
		return printGauges(reg)
	}
	return nil
}

// printGauges prints the last value of every gauge in reg.
func printGauges(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	printInfo("\nMetrics:\n")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label += lp.GetName() + "=" + lp.GetValue()
			}
			printInfo("  %s{%s} %g\n", mf.GetName(), label, m.GetGauge().GetValue())
		}
	}
	return nil
}
