package cli

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

// isovistOpts holds options for the isovist command.
type isovistOpts struct {
	at    []string
	fov   float64
	dir   float64
	along string
	saveFlags
}

// isovistCommand creates the isovist command.
func (c *CLI) isovistCommand() *cobra.Command {
	opts := &isovistOpts{}

	cmd := &cobra.Command{
		Use:   "isovist <file.graph>",
		Short: "Add isovists seen from points or along lines",
		Long: `Add isovists to the "Isovists" data map.

Each --at point adds the region visible from it, within a view of --fov
degrees centred on --dir. With --along, every segment of the listed lines
of the displayed data map gets an isovist looking along it.`,
		Example: `  # Full-circle isovist
  spacegraph isovist plan.graph --at 2.5,3

  # A 90 degree view looking north
  spacegraph isovist plan.graph --at 2.5,3 --fov 90 --dir 90`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runIsovist(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.at, "at", nil, "origin x,y (repeatable)")
	cmd.Flags().Float64Var(&opts.fov, "fov", 360, "field of view in degrees")
	cmd.Flags().Float64Var(&opts.dir, "dir", 0, "view direction in degrees, counter-clockwise from east")
	cmd.Flags().StringVar(&opts.along, "along", "", "keys of data map lines to walk along")
	opts.saveFlags.register(cmd)

	return cmd
}

// viewAngles converts a field of view and direction in degrees to the
// start and end angles in radians. A full circle has equal angles.
func viewAngles(fov, dir float64) (float64, float64, error) {
	if !(fov > 0) {
		return 0, 0, sgerrors.New(sgerrors.ErrCodeInvalidInput, "--fov must be positive")
	}
	if fov >= 360 {
		return 0, 0, nil
	}
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	return geom.NormaliseAngle(rad(dir - fov/2)), geom.NormaliseAngle(rad(dir + fov/2)), nil
}

func (c *CLI) runIsovist(ctx context.Context, input string, opts *isovistOpts) error {
	if len(opts.at) == 0 && opts.along == "" {
		return sgerrors.New(sgerrors.ErrCodeInvalidInput, "give --at or --along")
	}
	start, end, err := viewAngles(opts.fov, opts.dir)
	if err != nil {
		return err
	}
	origins := make([]geom.Point, 0, len(opts.at))
	for _, s := range opts.at {
		p, err := parsePoint(s)
		if err != nil {
			return err
		}
		origins = append(origins, p)
	}
	var along []int
	if opts.along != "" {
		if along, err = parseKeys(opts.along); err != nil {
			return err
		}
	}

	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	before := isovistCount(d)
	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Building partition...")
	spinner.Start()
	cm := newCommunicator(ctx, c.Logger, spinner, "partitioning")
	err = addIsovists(cm, d, origins, start, end)
	if err == nil && len(along) > 0 {
		err = addIsovistPath(cm, d, along, opts.fov)
	}
	spinner.Stop()
	if err != nil {
		return err
	}

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	total := isovistCount(d)
	prog.done(fmt.Sprintf("Added %d isovists", total-before))

	printSuccess("%q now holds %d isovists", document.IsovistMap, total)
	printFile(out)
	return nil
}

func isovistCount(d *document.Document) int {
	ref, ok := d.FindMap(document.FamilyData, document.IsovistMap)
	if !ok {
		return 0
	}
	m, err := d.ShapeMap(ref.Family, ref.Index)
	if err != nil {
		return 0
	}
	return m.Len()
}

func addIsovists(cm comm.Communicator, d *document.Document, origins []geom.Point, start, end float64) error {
	for _, o := range origins {
		if _, err := d.MakeIsovist(cm, o, start, end); err != nil {
			return fmt.Errorf("isovist at (%g, %g): %w", o.X, o.Y, err)
		}
	}
	return nil
}

// addIsovistPath selects the given lines of the displayed data map and
// adds one isovist per segment.
func addIsovistPath(cm comm.Communicator, d *document.Document, keys []int, fovDeg float64) error {
	ref, err := resolveMap(d, document.FamilyData, "")
	if err != nil {
		return err
	}
	m, err := d.ShapeMap(ref.Family, ref.Index)
	if err != nil {
		return err
	}
	m.SetCurSel(keys, false)
	fov := 2 * math.Pi
	if fovDeg < 360 {
		fov = fovDeg * math.Pi / 180
	}
	_, err = d.MakeIsovistPath(cm, fov)
	return err
}
