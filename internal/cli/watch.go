package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/pipeline"
)

// watchOpts holds options for the watch command.
type watchOpts struct {
	analyseOpts
}

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	opts := &watchOpts{}

	cmd := &cobra.Command{
		Use:   "watch [file.graph...]",
		Short: "Re-run an analysis whenever graph files change",
		Long: `Analyse each file once, then again every time it changes.

Files come from the arguments or the watch.inputs config list. Results
are exported as artifacts; the graph files themselves are never
rewritten. Analysis events go to NATS when events.nats_url is set.`,
		Example: `  spacegraph watch plan.graph -f tsv,svg
  spacegraph watch --config project.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args
			if len(inputs) == 0 {
				inputs = c.Config.Watch.Inputs
			}
			if len(inputs) == 0 {
				return sgerrors.New(sgerrors.ErrCodeInvalidInput, "no files to watch")
			}
			po, err := c.pipelineOptions(cmd, &opts.analyseOpts)
			if err != nil {
				return err
			}
			if len(po.Formats) == 0 {
				po.Formats = c.Config.Watch.Formats
				if err := pipeline.ValidateFormats(po.Formats); err != nil {
					return err
				}
			}
			po.NoWrite = true
			return c.runWatch(cmd.Context(), inputs, po, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "analysis mode (default from config)")
	cmd.Flags().StringVarP(&opts.radius, "radius", "r", "", "comma-separated radii, n for global")
	cmd.Flags().BoolVar(&opts.choice, "choice", false, "also compute choice")
	cmd.Flags().BoolVar(&opts.local, "local", false, "compute local measures")
	cmd.Flags().BoolVar(&opts.global, "global", true, "compute global measures")
	cmd.Flags().StringVar(&opts.mapName, "map", "", "map to analyse (default: the displayed one)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "artifacts to write (default from config)")
	cmd.Flags().StringVar(&opts.column, "column", "", "column colouring rendered drawings")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, inputs []string, base pipeline.Options, opts *watchOpts) error {
	hooks, err := c.installHooks(false)
	if err != nil {
		return err
	}
	defer hooks.Close()

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	analyse := func(ctx context.Context, input string) error {
		po := base
		po.Input = input
		res, err := runner.Execute(ctx, po)
		if err != nil {
			return err
		}
		files, err := writeArtifacts(artifactBase("", input), res.MapName, res.Artifacts)
		if err != nil {
			return err
		}
		printSuccess("%s: %s %s", input, res.MapName, res.Analysis.DisplayColumn)
		printStats(res.Stats.Records, 0, res.CacheInfo.AnalysisHit)
		for _, f := range files {
			printFile(f)
		}
		return nil
	}

	w, err := newFileWatcher(inputs, c.Config.Watch.Debounce, c.Logger, analyse)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, input := range inputs {
		if err := analyse(ctx, input); err != nil {
			c.Logger.Error("initial run failed", "path", input, "error", err)
		}
	}
	printInfo("Watching %d file(s), press Ctrl+C to stop", len(inputs))
	if err := w.Loop(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	c.Logger.Info("watch stopped", "runs", w.Runs())
	return nil
}
