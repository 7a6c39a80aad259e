package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/auth"
	"github.com/jhorman9/elevideo/internal/config"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sign-in status",
	Long:  `Displays whether a credential is stored, where it lives and how it is protected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			st := auth.GetStatus(ctx, a.Config, a.Store)
			out := cmd.OutOrStdout()

			if statusJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			fmt.Fprintln(out, "Sign-in Status:")
			fmt.Fprintln(out, "===============")
			if st.SignedIn {
				fmt.Fprintln(out, "Signed in")
			} else {
				fmt.Fprintln(out, "Not signed in")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Backend URL: %s\n", st.BackendURL)
			fmt.Fprintf(out, "  Credential store: %s\n", st.Backend)
			if st.Location != "" {
				fmt.Fprintf(out, "  Location: %s\n", st.Location)
			}
			if st.Backend == config.BackendFile {
				fmt.Fprintf(out, "  Sealed: %v\n", st.Sealed)
				if st.KeyPresent {
					fmt.Fprintf(out, "  Sealing key: %s\n", st.KeyFingerprint)
				}
			}
			if st.Error != "" {
				fmt.Fprintf(out, "  Error: %s\n", st.Error)
			}
			if !st.SignedIn {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Run 'elevideo login' to sign in.")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status in JSON format")
}
