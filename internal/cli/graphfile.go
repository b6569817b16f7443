package cli

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
)

// saveFlags are shared by commands that modify a graph file.
type saveFlags struct {
	output string
	legacy bool
}

func (f *saveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output graph file (default: rewrite the input)")
	cmd.Flags().BoolVar(&f.legacy, "legacy", false, "write columns sorted by name for reproducible files")
}

// target returns where the modified document goes.
func (f *saveFlags) target(input string) string {
	if f.output != "" {
		return f.output
	}
	return input
}

// openGraph reads a graph file, classifying failures with an error code.
func openGraph(l *log.Logger, path string) (*document.Document, error) {
	if err := sgerrors.ValidateFilePath(path); err != nil {
		return nil, err
	}
	d, status, err := sgio.ImportGraph(path)
	if err != nil {
		return nil, err
	}
	l.Debug("opened graph", "path", path, "status", status, "name", d.Name)
	return d, nil
}

// saveGraph writes d to path.
func saveGraph(l *log.Logger, d *document.Document, path string, legacy bool) error {
	if err := sgio.ExportGraph(d, path, legacy); err != nil {
		return err
	}
	l.Debug("saved graph", "path", path, "legacy", legacy)
	return nil
}

// familyNames lists the map families commands accept.
const familyNames = "grid, axial or data"

func parseFamily(s string) (document.Family, error) {
	f, err := document.ParseFamily(s)
	if err != nil {
		return document.FamilyNone, sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "family must be %s", familyNames)
	}
	return f, nil
}

// resolveMap finds the map named name in family f, or the displayed one
// when name is empty, and displays it.
func resolveMap(d *document.Document, f document.Family, name string) (document.MapRef, error) {
	ref := document.MapRef{Family: f, Index: d.Displayed(f)}
	if name != "" {
		found, ok := d.FindMap(f, name)
		if !ok {
			return ref, sgerrors.New(sgerrors.ErrCodeMapNotFound, "no %s map named %q", f, name)
		}
		ref = found
	}
	if ref.Index < 0 {
		return ref, sgerrors.New(sgerrors.ErrCodeMapNotFound, "document has no %s map", f)
	}
	if err := d.SetDisplayed(f, ref.Index); err != nil {
		return ref, err
	}
	d.SetViewClass(document.ShowTop(f))
	return ref, nil
}
