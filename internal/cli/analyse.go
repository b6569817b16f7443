package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/pipeline"
)

// analyseOpts holds the command-line flags for the analyse command.
type analyseOpts struct {
	mode          string
	radius        string
	choice        bool
	local         bool
	global        bool
	selectionOnly bool
	weight        string
	mapName       string
	selection     string
	formats       string
	column        string
	output        string
	noWrite       bool
	legacy        bool
	noCache       bool
	refresh       bool
	jobs          int
}

// analyseCommand creates the analyse command.
func (c *CLI) analyseCommand() *cobra.Command {
	opts := &analyseOpts{}

	cmd := &cobra.Command{
		Use:     "analyse <file.graph>...",
		Aliases: []string{"analyze"},
		Short:   "Run an analysis and write the result columns",
		Long: `Run integration, step depth or isovist analysis on the displayed map of each file.

Integration and step depth run on the displayed axial or segment graph,
grid-stepdepth and isovist on the displayed grid. Results are cached by
file content and options; a repeat run restores the columns from the
cache. Several files are analysed concurrently.`,
		Example: `  # Global integration with choice
  spacegraph analyse plan.graph --choice

  # Radius 3 and global integration, exported as TSV and SVG
  spacegraph analyse plan.graph --radius 3,n -f tsv,svg

  # Step depth from two axial lines
  spacegraph analyse plan.graph --mode stepdepth --select 0,4

  # Visibility graph of the displayed grid
  spacegraph analyse grid.graph --mode isovist`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && len(args) > 1 {
				return sgerrors.New(sgerrors.ErrCodeInvalidInput, "--output takes a single input file")
			}
			po, err := c.pipelineOptions(cmd, opts)
			if err != nil {
				return err
			}
			return c.runAnalyse(cmd.Context(), args, po, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "integration, stepdepth, grid-stepdepth or isovist (default from config)")
	cmd.Flags().StringVarP(&opts.radius, "radius", "r", "", "comma-separated radii, n for global (default from config)")
	cmd.Flags().BoolVar(&opts.choice, "choice", false, "also compute choice")
	cmd.Flags().BoolVar(&opts.local, "local", false, "compute local measures")
	cmd.Flags().BoolVar(&opts.global, "global", true, "compute global measures")
	cmd.Flags().BoolVar(&opts.selectionOnly, "selection-only", false, "only measure selected records")
	cmd.Flags().StringVar(&opts.weight, "weight", "", "column totalled over reached records")
	cmd.Flags().StringVar(&opts.mapName, "map", "", "map to analyse (default: the displayed one)")
	cmd.Flags().StringVar(&opts.selection, "select", "", "record keys to select first (comma-separated, x:y for grid cells)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "artifacts to write: tsv, links, dot, svg, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&opts.column, "column", "", "column colouring rendered drawings (default: the display column)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "graph file to write (default: rewrite the input)")
	cmd.Flags().BoolVar(&opts.noWrite, "no-write", false, "do not write the graph file")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "write sorted columns for reproducible bytes")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "files analysed concurrently")

	return cmd
}

// pipelineOptions merges the flags over the configured analysis defaults.
func (c *CLI) pipelineOptions(cmd *cobra.Command, opts *analyseOpts) (pipeline.Options, error) {
	a := c.Config.Analysis
	flags := cmd.Flags()
	if flags.Changed("mode") {
		m, err := analysis.ParseMode(opts.mode)
		if err != nil {
			return pipeline.Options{}, err
		}
		a = analysis.Options{Mode: m}
	}
	if opts.radius != "" {
		radii, err := analysis.ParseRadii(opts.radius)
		if err != nil {
			return pipeline.Options{}, err
		}
		a.Radii = radii
	}
	if flags.Changed("choice") {
		a.Choice = opts.choice
	}
	if flags.Changed("local") {
		a.Local = opts.local
	}
	if flags.Changed("global") {
		a.Global = opts.global
	}
	if flags.Changed("selection-only") {
		a.SelectionOnly = opts.selectionOnly
	}
	if opts.weight != "" {
		a.WeightColumn = opts.weight
	}
	if a.Mode == analysis.ModeStepDepth || a.Mode == analysis.ModeGridStepDepth || a.Mode == analysis.ModeIsovist {
		// configured integration flags do not carry over
		a.Choice, a.Local, a.WeightColumn = false, false, ""
		if a.Mode == analysis.ModeIsovist {
			a.Radii = nil
		}
	}

	var selection []int
	if opts.selection != "" {
		keys, err := parseKeys(opts.selection)
		if err != nil {
			return pipeline.Options{}, err
		}
		selection = keys
	}
	po := pipeline.Options{
		Map:       opts.mapName,
		Selection: selection,
		Analysis:  a,
		Refresh:   opts.refresh,
		Output:    opts.output,
		NoWrite:   opts.noWrite,
		Legacy:    opts.legacy,
		Formats:   parseFormats(opts.formats),
		Column:    opts.column,
	}
	if err := po.ValidateForAnalysis(); err != nil {
		return po, err
	}
	return po, pipeline.ValidateFormats(po.Formats)
}

// analysed is the outcome of one file.
type analysed struct {
	input  string
	result *pipeline.Result
	files  []string
}

func (c *CLI) runAnalyse(ctx context.Context, inputs []string, base pipeline.Options, opts *analyseOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	msg := fmt.Sprintf("Running %s analysis...", base.Analysis.Mode)
	if len(inputs) > 1 {
		msg = fmt.Sprintf("Running %s analysis on %d files...", base.Analysis.Mode, len(inputs))
	}
	spinner := newSpinnerWithContext(ctx, msg)
	spinner.Start()

	results := make([]analysed, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))
	for i, input := range inputs {
		g.Go(func() error {
			po := base
			po.Input = input
			po.Selection = append([]int(nil), base.Selection...)
			if len(inputs) == 1 {
				po.Progress = progressReporter(c.Logger, spinner, string(base.Analysis.Mode))
			} else {
				po.Progress = progressReporter(c.Logger, nil, input)
			}
			res, err := runner.Execute(gctx, po)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			files, err := writeArtifacts(artifactBase(po.Output, input), res.MapName, res.Artifacts)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = analysed{input: input, result: res, files: files}
			return nil
		})
	}
	err = g.Wait()
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Analysed %d file(s)", len(inputs)))

	for _, a := range results {
		res := a.result
		printSuccess("%s: %s", a.input, res.MapName)
		cols := 0
		if t, err := res.Document.Table(res.Map); err == nil {
			cols = t.NumColumns()
		}
		printStats(res.Stats.Records, cols, res.CacheInfo.AnalysisHit)
		if res.Analysis.DisplayColumn != "" {
			printDetail("Display column: %s", res.Analysis.DisplayColumn)
		}
		if !base.NoWrite {
			out := base.Output
			if out == "" {
				out = a.input
			}
			printFile(out)
		}
		for _, f := range a.files {
			printFile(f)
		}
	}
	if len(base.Formats) == 0 && len(inputs) == 1 {
		printNewline()
		printNextStep("Export results", "spacegraph export "+inputs[0]+" -f tsv")
	}
	return nil
}

// artifactExt maps a format to its file suffix.
var artifactExt = map[string]string{
	pipeline.FormatTSV:   ".tsv",
	pipeline.FormatLinks: ".links.csv",
	pipeline.FormatDOT:   ".dot",
	pipeline.FormatSVG:   ".svg",
	pipeline.FormatPNG:   ".png",
	pipeline.FormatPDF:   ".pdf",
}

// artifactBase strips the graph extension from output, or input when
// output is empty.
func artifactBase(output, input string) string {
	p := output
	if p == "" {
		p = input
	}
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// writeArtifacts writes each artifact to base_<map><ext> and returns the
// paths in format order.
func writeArtifacts(base, mapName string, artifacts map[string][]byte) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	suffix := fileSafe(mapName)
	var paths []string
	for _, f := range formats {
		path := base + artifactExt[f]
		if suffix != "" {
			path = base + "_" + suffix + artifactExt[f]
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", f, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// fileSafe lowercases name and replaces anything but letters and digits.
func fileSafe(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
