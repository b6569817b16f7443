package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
	"github.com/matzehuels/spacegraph/pkg/store"
)

// storeCommand creates the graph store command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep graph files under short names",
		Long: `Keep graph files under short names in the configured store.

The file store lives under ~/.local/share/spacegraph/graphs; set
store.backend = "mongo" to share graphs with a server.`,
	}

	cmd.AddCommand(c.storePutCommand())
	cmd.AddCommand(c.storeGetCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeRemoveCommand())

	return cmd
}

// withStore opens the store, runs fn and closes it.
func (c *CLI) withStore(ctx context.Context, fn func(store.Store) error) error {
	s, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// storeName derives a store name from a file path.
func storeName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, sgio.CompressedExt)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *CLI) storePutCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "put <file.graph>",
		Short: "Store a graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return sgerrors.Wrap(sgerrors.ErrCodeFileNotFound, err, "read %s", args[0])
			}
			// refuse anything that does not load
			if _, _, err := sgio.ReadGraph(bytes.NewReader(data)); err != nil {
				return err
			}
			if name == "" {
				name = storeName(args[0])
			}
			return c.withStore(cmd.Context(), func(s store.Store) error {
				e, err := s.Put(cmd.Context(), name, data)
				if err != nil {
					return err
				}
				printSuccess("Stored %q", e.Name)
				printKeyValue("Size", formatSize(e.Size))
				printKeyValue("Hash", e.Hash[:12])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "store name (default: file name)")
	return cmd
}

func (c *CLI) storeGetCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Write a stored graph to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s store.Store) error {
				data, e, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("get %s: %w", args[0], err)
				}
				out := output
				if out == "" {
					out = e.Name + sgio.GraphExt
					if e.Compressed {
						out += sgio.CompressedExt
					}
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				printSuccess("Fetched %q", e.Name)
				printFile(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <name>.graph)")
	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored graphs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s store.Store) error {
				entries, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if entries == nil {
						entries = []store.Entry{}
					}
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				if len(entries) == 0 {
					printInfo("Store is empty")
					return nil
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{e.Name, formatSize(e.Size), e.Hash[:12], e.UpdatedAt.Local().Format(time.DateTime)}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Size", "Hash", "Updated"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func (c *CLI) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove"},
		Short:   "Remove stored graphs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s store.Store) error {
				for _, name := range args {
					if err := s.Delete(cmd.Context(), name); err != nil {
						return fmt.Errorf("remove %s: %w", name, err)
					}
					printSuccess("Removed %q", name)
				}
				return nil
			})
		},
	}
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
