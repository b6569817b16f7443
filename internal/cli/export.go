package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/pipeline"
)

// exportOpts holds options for the export command.
type exportOpts struct {
	formats   string
	family    string
	mapName   string
	selection string
	column    string
	output    string
	pngScale  float64
	noCache   bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := &exportOpts{}

	cmd := &cobra.Command{
		Use:   "export <file.graph>",
		Short: "Export a map's attributes or drawing",
		Long: `Export the displayed map of a family without running an analysis.

tsv writes the attribute table, links the grid merge links, dot the
connectivity of a shape graph; svg, png and pdf render it with Graphviz,
coloured by --column. The graph file is not changed.`,
		Example: `  # Attribute table of the displayed axial graph
  spacegraph export plan.graph -f tsv

  # Connectivity drawing coloured by integration
  spacegraph export plan.graph -f svg,png --column "Integration [HH]"

  # Grid attributes to a named file
  spacegraph export grid.graph --family grid -f tsv -o cells.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.formats, "format", "f", pipeline.FormatTSV, "tsv, links, dot, svg, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&opts.family, "family", "axial", "map family: "+familyNames)
	cmd.Flags().StringVar(&opts.mapName, "map", "", "map name (default: the displayed one)")
	cmd.Flags().StringVar(&opts.selection, "select", "", "record keys to select")
	cmd.Flags().StringVar(&opts.column, "column", "", "column colouring rendered drawings")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path")
	cmd.Flags().Float64Var(&opts.pngScale, "scale", pipeline.DefaultPNGScale, "PNG resolution multiplier")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, input string, opts *exportOpts) error {
	fam, err := parseFamily(opts.family)
	if err != nil {
		return err
	}
	po := pipeline.Options{
		Input:    input,
		Map:      opts.mapName,
		Target:   fam,
		Formats:  parseFormats(opts.formats),
		Column:   opts.column,
		PNGScale: opts.pngScale,
	}
	if len(po.Formats) == 0 {
		return sgerrors.New(sgerrors.ErrCodeInvalidOptions, "no export format given")
	}
	if opts.selection != "" {
		if po.Selection, err = parseKeys(opts.selection); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Exporting...")
	spinner.Start()
	res, err := runner.Export(ctx, po)
	spinner.Stop()
	if err != nil {
		return err
	}

	var files []string
	if opts.output != "" && len(po.Formats) == 1 {
		if err := os.WriteFile(opts.output, res.Artifacts[po.Formats[0]], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.output, err)
		}
		files = []string{opts.output}
	} else if files, err = writeArtifacts(artifactBase(opts.output, input), res.MapName, res.Artifacts); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Exported %d artifact(s)", len(files)))

	printSuccess("Exported %s map %q", fam, res.MapName)
	printStats(res.Stats.Records, 0, res.CacheInfo.RenderHit)
	for _, f := range files {
		printFile(f)
	}
	if fam == document.FamilyAxial && opts.column == "" && po.NeedsGraph() {
		printNewline()
		printNextStep("Colour by a column", "spacegraph export "+input+" -f svg --column <name>")
	}
	return nil
}
