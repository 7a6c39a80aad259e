package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(completionCmd)
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate autocompletion script for your shell",
	Long: `To load completions:

Bash:

  $ source <(elevideo completion bash)
  # To load completions for each session, add to your ~/.bashrc:
  #   source <(elevideo completion bash)

Zsh:

  $ elevideo completion zsh > "${fpath[1]}/_elevideo"

Fish:

  $ elevideo completion fish | source
  # To load automatically:
  $ elevideo completion fish > ~/.config/fish/completions/elevideo.fish

PowerShell:

  PS> elevideo completion powershell | Out-String | Invoke-Expression
`,
	Annotations: map[string]string{"config": "skip"},
	Args:        cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs:   []string{"bash", "zsh", "fish", "powershell"},
	Hidden:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		default:
			return fmt.Errorf("unsupported shell type: %s", args[0])
		}
	},
}
