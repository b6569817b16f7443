package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
)

// newOpts holds options for the new command.
type newOpts struct {
	drawings []string
	name     string
	force    bool
	legacy   bool
}

// newCommand creates the new command for starting a document from
// line drawings.
func (c *CLI) newCommand() *cobra.Command {
	opts := &newOpts{}

	cmd := &cobra.Command{
		Use:   "new <output.graph>",
		Short: "Create a graph file from line drawings",
		Long: `Create a graph file from one or more line drawings.

Each drawing is a CSV file with one line per row: x1,y1,x2,y2 and an
optional layer name. Every file becomes a drawing group; its layers keep
the names given in the file.`,
		Example: `  # Start a document from a plan
  spacegraph new plan.graph --drawing walls.csv

  # Combine two drawings, compressed
  spacegraph new plan.graph.zst --drawing walls.csv --drawing doors.csv --name "Ground floor"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNew(args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.drawings, "drawing", "d", nil, "line drawing CSV (repeatable)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "document name (default: output file name)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "write columns sorted by name for reproducible files")
	_ = cmd.MarkFlagRequired("drawing")

	return cmd
}

func (c *CLI) runNew(output string, opts *newOpts) error {
	if err := sgerrors.ValidateFilePath(output); err != nil {
		return err
	}
	if _, err := os.Stat(output); err == nil && !opts.force {
		return sgerrors.New(sgerrors.ErrCodeInvalidInput, "%s exists (use --force to overwrite)", output)
	}
	name := opts.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(output), sgio.CompressedExt)
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	prog := newProgress(c.Logger)
	d, err := importDrawings(name, opts.drawings)
	if err != nil {
		return err
	}
	if err := saveGraph(c.Logger, d, output, opts.legacy); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Imported %d lines", len(d.ShownLines())))

	r := d.Region()
	printSuccess("Created %s", name)
	printDetail("Region: %s", formatRegion(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y))
	printFile(output)
	printNextStep("Fill a grid", fmt.Sprintf("spacegraph grid %s --spacing 1", output))
	return nil
}

// importDrawings builds a document with one drawing group per file.
func importDrawings(name string, paths []string) (*document.Document, error) {
	d := document.New(name)
	for _, path := range paths {
		layers, err := readLines(path)
		if err != nil {
			return nil, err
		}
		group := filepath.Base(path)
		for _, l := range layers {
			if _, err := d.ImportShapes(group, l.Name, l.Shapes); err != nil {
				return nil, fmt.Errorf("%s layer %q: %w", path, l.Name, err)
			}
		}
	}
	return d, nil
}

func readLines(path string) ([]sgio.Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sgerrors.Wrap(sgerrors.ErrCodeFileNotFound, err, "drawing %s", path)
		}
		return nil, fmt.Errorf("open drawing: %w", err)
	}
	defer f.Close()
	layers, err := sgio.ReadLines(f)
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "drawing %s", path)
	}
	if len(layers) == 0 {
		return nil, sgerrors.New(sgerrors.ErrCodeInvalidInput, "drawing %s has no lines", path)
	}
	return layers, nil
}

func formatRegion(x0, y0, x1, y1 float64) string {
	return fmt.Sprintf("(%g, %g) to (%g, %g)", x0, y0, x1, y1)
}
