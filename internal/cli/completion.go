package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for spacegraph.

To load completions:

Bash:
  $ source <(spacegraph completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ spacegraph completion bash > /etc/bash_completion.d/spacegraph
  # macOS:
  $ spacegraph completion bash > $(brew --prefix)/etc/bash_completion.d/spacegraph

Zsh:
  $ spacegraph completion zsh > "${fpath[1]}/_spacegraph"

Fish:
  $ spacegraph completion fish > ~/.config/fish/completions/spacegraph.fish

PowerShell:
  PS> spacegraph completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}

// flagValues lists the fixed values of enumerated flags, by flag name.
var flagValues = map[string][]string{
	"mode":   {"integration", "stepdepth", "grid-stepdepth", "isovist"},
	"family": {"grid", "axial", "data"},
	"fill":   {"full", "semi", "augment"},
	"to":     {"axial", "segment", "convex", "data", "drawing"},
	"from":   {"drawing", "axial", "data"},
	"func":   {"max", "min", "avg", "total"},
	"format": {"tsv", "links", "dot", "svg", "png", "pdf"},
}

// registerFlagCompletions offers flagValues for every matching flag in
// the command tree.
func registerFlagCompletions(cmd *cobra.Command) {
	for name, values := range flagValues {
		for _, flag := range []string{name, "from-" + name, "to-" + name} {
			if cmd.Flags().Lookup(flag) == nil {
				continue
			}
			_ = cmd.RegisterFlagCompletionFunc(flag, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
		}
	}
	for _, sub := range cmd.Commands() {
		registerFlagCompletions(sub)
	}
}
