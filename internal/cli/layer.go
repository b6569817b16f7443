package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/grid"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
)

// mapFlags pick the map a layer command works on.
type mapFlags struct {
	family string
	name   string
}

func (f *mapFlags) register(cmd *cobra.Command, prefix, def string) {
	cmd.Flags().StringVar(&f.family, prefix+"family", def, "map family: "+familyNames)
	cmd.Flags().StringVar(&f.name, prefix+"map", "", "map name (default: the displayed one)")
}

func (f *mapFlags) resolve(d *document.Document) (document.MapRef, error) {
	fam, err := parseFamily(f.family)
	if err != nil {
		return document.MapRef{}, err
	}
	return resolveMap(d, fam, f.name)
}

// layerCommand creates the layer command and its subcommands.
func (c *CLI) layerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layer",
		Short: "Work with layers and attribute columns",
	}

	cmd.AddCommand(c.layerSelectCommand())
	cmd.AddCommand(c.layerPushCommand())
	cmd.AddCommand(c.layerImportCommand())
	cmd.AddCommand(c.layerColumnCommand())

	return cmd
}

// =============================================================================
// layer select
// =============================================================================

type layerSelectOpts struct {
	maps mapFlags
	keys string
	name string
	saveFlags
}

func (c *CLI) layerSelectCommand() *cobra.Command {
	opts := &layerSelectOpts{}

	cmd := &cobra.Command{
		Use:   "select <file.graph>",
		Short: "Turn a selection of records into a new layer",
		Example: `  spacegraph layer select plan.graph --family axial --keys 0,3,4 --name "High street"
  spacegraph layer select grid.graph --family grid --keys 2:3,2:4 --name Entrance`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayerSelect(cmd.Context(), args[0], opts)
		},
	}

	opts.maps.register(cmd, "", "axial")
	cmd.Flags().StringVar(&opts.keys, "keys", "", "record keys (comma-separated, x:y for grid cells)")
	cmd.Flags().StringVar(&opts.name, "name", "", "layer name")
	opts.saveFlags.register(cmd)
	_ = cmd.MarkFlagRequired("keys")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *CLI) runLayerSelect(_ context.Context, input string, opts *layerSelectOpts) error {
	keys, err := parseKeys(opts.keys)
	if err != nil {
		return err
	}
	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	ref, err := opts.maps.resolve(d)
	if err != nil {
		return err
	}

	var layer, picked int
	if ref.Family == document.FamilyGrid {
		m, err := d.Grid(ref.Index)
		if err != nil {
			return err
		}
		refs := make([]grid.PixelRef, len(keys))
		for i, k := range keys {
			refs[i] = grid.PixelRef(k)
		}
		m.SetCurSelRefs(refs, false)
		picked = len(m.Selection())
		if layer, err = m.SelectionToLayer(opts.name); err != nil {
			return err
		}
	} else {
		m, err := d.ShapeMap(ref.Family, ref.Index)
		if err != nil {
			return err
		}
		picked = m.SetCurSel(keys, false)
		if layer, err = m.SelectionToLayer(opts.name); err != nil {
			return err
		}
	}

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	printSuccess("Layer %q (%d) holds %d records", opts.name, layer, picked)
	printFile(out)
	return nil
}

// =============================================================================
// layer push
// =============================================================================

type layerPushOpts struct {
	from   mapFlags
	to     mapFlags
	column string
	fn     string
	count  bool
	saveFlags
}

func (c *CLI) layerPushCommand() *cobra.Command {
	opts := &layerPushOpts{}

	cmd := &cobra.Command{
		Use:   "push <file.graph>",
		Short: "Push a column from one map onto another",
		Long: `Copy the values of a column onto the records of another map that meet each source record.

Where several source records meet one destination record their values are
combined with --func. --count also writes how many source records met it.`,
		Example: `  spacegraph layer push plan.graph --from-family data --column Footfall --to-family axial --func total`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayerPush(cmd.Context(), args[0], opts)
		},
	}

	opts.from.register(cmd, "from-", "data")
	opts.to.register(cmd, "to-", "axial")
	cmd.Flags().StringVar(&opts.column, "column", "", "source column")
	cmd.Flags().StringVar(&opts.fn, "func", "max", "combine with max, min, avg or total")
	cmd.Flags().BoolVar(&opts.count, "count", false, "also write the Object Count column")
	opts.saveFlags.register(cmd)
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func (c *CLI) runLayerPush(_ context.Context, input string, opts *layerPushOpts) error {
	fn, err := document.ParsePushFunc(opts.fn)
	if err != nil {
		return sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "--func")
	}
	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	src, err := opts.from.resolve(d)
	if err != nil {
		return err
	}
	dst, err := opts.to.resolve(d)
	if err != nil {
		return err
	}
	if err := d.PushValuesToLayer(src, opts.column, dst, fn, opts.count); err != nil {
		return err
	}

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	printSuccess("Pushed %q from %s to %s", opts.column, src, dst)
	printFile(out)
	return nil
}

// =============================================================================
// layer import
// =============================================================================

type layerImportOpts struct {
	maps mapFlags
	saveFlags
}

func (c *CLI) layerImportCommand() *cobra.Command {
	opts := &layerImportOpts{}

	cmd := &cobra.Command{
		Use:   "import <file.graph> <table.tsv|table.csv>",
		Short: "Import attribute columns from a table",
		Long: `Import numeric columns into a map, matching table rows to records in key order.

The table needs one row per record. Empty cells leave values unset and a
leading Ref column is ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayerImport(cmd.Context(), args[0], args[1], opts)
		},
	}

	opts.maps.register(cmd, "", "axial")
	opts.saveFlags.register(cmd)

	return cmd
}

func (c *CLI) runLayerImport(_ context.Context, input, table string, opts *layerImportOpts) error {
	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	ref, err := opts.maps.resolve(d)
	if err != nil {
		return err
	}

	f, err := os.Open(table)
	if err != nil {
		return sgerrors.Wrap(sgerrors.ErrCodeFileNotFound, err, "open %s", table)
	}
	defer f.Close()
	header, rows, err := sgio.ReadTable(f, sgio.Separator(table))
	if err != nil {
		return sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "read %s", table)
	}
	if err := d.ImportTable(ref, header, rows); err != nil {
		return err
	}

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	printSuccess("Imported %d columns into %s", len(header), ref)
	printFile(out)
	return nil
}

// =============================================================================
// layer column
// =============================================================================

type layerColumnOpts struct {
	maps   mapFlags
	add    string
	remove string
	rename []string
	saveFlags
}

func (c *CLI) layerColumnCommand() *cobra.Command {
	opts := &layerColumnOpts{}

	cmd := &cobra.Command{
		Use:   "column <file.graph>",
		Short: "Add, remove or rename an attribute column",
		Example: `  spacegraph layer column plan.graph --add Footfall
  spacegraph layer column plan.graph --rename Footfall,Visitors`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayerColumn(cmd.Context(), args[0], opts)
		},
	}

	opts.maps.register(cmd, "", "axial")
	cmd.Flags().StringVar(&opts.add, "add", "", "add an empty column")
	cmd.Flags().StringVar(&opts.remove, "remove", "", "remove a column")
	cmd.Flags().StringSliceVar(&opts.rename, "rename", nil, "rename a column: old,new")
	cmd.MarkFlagsOneRequired("add", "remove", "rename")
	cmd.MarkFlagsMutuallyExclusive("add", "remove", "rename")
	opts.saveFlags.register(cmd)

	return cmd
}

func (c *CLI) runLayerColumn(_ context.Context, input string, opts *layerColumnOpts) error {
	d, err := openGraph(c.Logger, input)
	if err != nil {
		return err
	}
	if _, err := opts.maps.resolve(d); err != nil {
		return err
	}

	switch {
	case opts.add != "":
		if err := sgerrors.ValidateColumnName(opts.add); err != nil {
			return err
		}
		if _, err := d.AddAttribute(opts.add); err != nil {
			return err
		}
		printSuccess("Added column %q", opts.add)
	case opts.remove != "":
		if err := d.RemoveAttribute(opts.remove); err != nil {
			return err
		}
		printSuccess("Removed column %q", opts.remove)
	default:
		if len(opts.rename) != 2 {
			return sgerrors.New(sgerrors.ErrCodeInvalidInput, "--rename takes old,new")
		}
		if err := sgerrors.ValidateColumnName(opts.rename[1]); err != nil {
			return err
		}
		if err := d.RenameAttribute(opts.rename[0], opts.rename[1]); err != nil {
			return err
		}
		printSuccess("Renamed column %q to %q", opts.rename[0], opts.rename[1])
	}

	out := opts.target(input)
	if err := saveGraph(c.Logger, d, out, opts.legacy); err != nil {
		return err
	}
	printFile(out)
	return nil
}
