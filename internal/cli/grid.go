package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/comm"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
)

// gridOpts holds options for the grid command.
type gridOpts struct {
	name    string
	spacing float64
	offset  string
	seeds   []string
	fill    string
	block   bool
	saveFlags
}

// gridCommand creates the grid command.
func (c *CLI) gridCommand() *cobra.Command {
	opts := &gridOpts{}

	cmd := &cobra.Command{
		Use:   "grid <file.graph>",
		Short: "Add a grid map and flood-fill it",
		Long: `Add a grid map over the document region and fill it from one or more seed points.

Cells crossed by a shown drawing line are blocked. Full fills spread to
all eight neighbours, semi fills to the four orthogonal ones, augment fills
only add cells next to ones already filled.`,
		Example: `  # Unit grid filled from the middle of the plan
  spacegraph grid plan.graph --spacing 1

  # Two seeds, written to a new file
  spacegraph grid plan.graph --spacing 0.5 --seed 2,2 --seed 8,3 -o grid.graph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGrid(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "Grid", "map name")
	cmd.Flags().Float64Var(&opts.spacing, "spacing", 0, "cell size (default from config)")
	cmd.Flags().StringVar(&opts.offset, "offset", "", "grid origin offset x,y")
	cmd.Flags().StringArrayVar(&opts.seeds, "seed", nil, "fill seed x,y (repeatable; default: region centre)")
	cmd.Flags().StringVar(&opts.fill, "fill", "", "fill type: full, semi, augment (default from config)")
	cmd.Flags().BoolVar(&opts.block, "block", true, "block cells crossed by drawing lines")
	opts.saveFlags.register(cmd)

	return cmd
}

func (c *CLI) runGrid(ctx context.Context, input string, opts *gridOpts) error {
	spacing := opts.spacing
	if spacing == 0 {
		spacing = c.Config.Grid.Spacing
	}
	fillName := opts.fill
	if fillName == "" {
		fillName = c.Config.Grid.Fill
	}
	fill, err := grid.ParseFillType(fillName)
	if err != nil {
		return sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "--fill")
	}
	var offset geom.Point
	if opts.offset != "" {
		if offset, err = parsePoint(opts.offset); err != nil {
			return err
		}
	}

	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	seeds := make([]geom.Point, 0, len(opts.seeds))
	for _, s := range opts.seeds {
		p, err := parsePoint(s)
		if err != nil {
			return err
		}
		seeds = append(seeds, p)
	}
	if len(seeds) == 0 {
		seeds = append(seeds, d.Region().Centre())
	}

	pm, err := d.Grid(d.AddGrid(opts.name))
	if err != nil {
		return err
	}
	if err := pm.SetGrid(spacing, offset); err != nil {
		return sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "grid spacing %g", spacing)
	}
	if opts.block {
		pm.BlockLines(d.ShownLines())
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Filling grid...")
	spinner.Start()
	filled, err := fillSeeds(newCommunicator(ctx, c.Logger, spinner, "filling"), pm, seeds, fill)
	if err != nil && !errors.Is(err, comm.ErrCancelled) {
		spinner.StopWithError("Fill failed")
		return err
	}
	spinner.Stop()
	if errors.Is(err, comm.ErrCancelled) {
		printWarning("Fill cancelled; keeping %d cells", pm.FilledCount())
	}
	if filled == 0 && err == nil {
		printWarning("No seed landed on an empty cell")
	}

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Filled %d cells", pm.FilledCount()))

	printSuccess("Grid %q: %d x %d cells of %g", opts.name, pm.Cols(), pm.Rows(), spacing)
	printStats(pm.FilledCount(), pm.Table().NumColumns(), false)
	printFile(out)
	if err != nil {
		return err
	}
	printNextStep("Analyse it", fmt.Sprintf("spacegraph analyse %s --mode isovist", out))
	return nil
}

// fillSeeds fills from each seed in turn and returns how many seeds
// started a fill. Filled cells are kept when c cancels.
func fillSeeds(c comm.Communicator, pm *grid.PointMap, seeds []geom.Point, fill grid.FillType) (int, error) {
	n := 0
	for _, p := range seeds {
		ok, err := pm.MakePoints(p, fill, c)
		if ok {
			n++
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
