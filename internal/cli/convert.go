package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// convertOpts holds options for the convert command.
type convertOpts struct {
	to             string
	from           string
	fromMap        string
	name           string
	copyAttributes bool
	removeSource   bool
	stubs          float64
	saveFlags
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	opts := &convertOpts{}

	cmd := &cobra.Command{
		Use:   "convert <file.graph>",
		Short: "Make a new map from drawings or another map",
		Long: `Convert the shown drawing layers, or the displayed map of a family, into a new map.

Targets are axial, segment, convex, data and drawing. An axial graph
converted to segments drops line ends shorter than --stubs times their
line. Converted drawings go to the "Converted Maps" drawing group.`,
		Example: `  # Axial graph from the drawings
  spacegraph convert plan.graph --to axial

  # Segment graph from the displayed axial graph, keeping its attributes
  spacegraph convert plan.graph --from axial --to segment --copy-attributes --stubs 0.4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.to, "to", "", "target type: axial, segment, convex, data, drawing")
	cmd.Flags().StringVar(&opts.from, "from", "drawing", "source: drawing, axial or data")
	cmd.Flags().StringVar(&opts.fromMap, "map", "", "source map name (default: the displayed one)")
	cmd.Flags().StringVar(&opts.name, "name", "", "name of the new map")
	cmd.Flags().BoolVar(&opts.copyAttributes, "copy-attributes", false, "copy attribute values to the new map")
	cmd.Flags().BoolVar(&opts.removeSource, "remove-source", false, "remove the source map afterwards")
	cmd.Flags().Float64Var(&opts.stubs, "stubs", 0, "stub removal fraction for axial to segment (0 to 0.5)")
	opts.saveFlags.register(cmd)
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// convertOptions validates the flags and builds the document options.
func (o *convertOpts) convertOptions() (document.ConvertOptions, error) {
	to, err := shape.ParseType(o.to)
	if err != nil {
		return document.ConvertOptions{}, sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "--to")
	}
	from := document.FamilyNone
	if o.from != "drawing" {
		if from, err = parseFamily(o.from); err != nil {
			return document.ConvertOptions{}, err
		}
		if from == document.FamilyGrid {
			return document.ConvertOptions{}, sgerrors.New(sgerrors.ErrCodeInvalidInput, "grids cannot be converted to shapes")
		}
	}
	if o.stubs < 0 || o.stubs > 0.5 {
		return document.ConvertOptions{}, sgerrors.New(sgerrors.ErrCodeInvalidInput, "--stubs must be between 0 and 0.5")
	}
	if o.name != "" {
		if err := sgerrors.ValidateMapName(o.name); err != nil {
			return document.ConvertOptions{}, err
		}
	}
	return document.ConvertOptions{
		Name:           o.name,
		To:             to,
		From:           from,
		CopyAttributes: o.copyAttributes,
		RemoveSource:   o.removeSource,
		StubRemoval:    o.stubs,
	}, nil
}

func (c *CLI) runConvert(ctx context.Context, input string, opts *convertOpts) error {
	co, err := opts.convertOptions()
	if err != nil {
		return err
	}
	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	if co.From != document.FamilyNone {
		if _, err := resolveMap(d, co.From, opts.fromMap); err != nil {
			return err
		}
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Converting to %s...", co.To))
	spinner.Start()
	ref, err := d.Convert(newCommunicator(ctx, c.Logger, spinner, "converting"), co)
	if err != nil {
		spinner.StopWithError("Conversion failed")
		return err
	}
	spinner.Stop()

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	prog.done("Converted " + co.To.String())

	if ref.Family == document.FamilyNone {
		printSuccess("Added drawing layer to %q", document.ConvertedGroup)
	} else {
		m, err := d.ShapeMap(ref.Family, ref.Index)
		if err != nil {
			return err
		}
		printSuccess("Added %s map %q", ref.Family, m.Name)
		printStats(m.Len(), m.Table().NumColumns(), false)
	}
	printFile(out)
	return nil
}
