package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/auth"
)

var (
	logoutRemoveKey  bool
	logoutSecureWipe bool
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored credential",
	Long: `Deletes the stored credential. With --remove-key the sealing key is deleted
as well, and a new one is created at the next sealed sign-in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			st := auth.GetStatus(ctx, a.Config, a.Store)
			if !st.SignedIn && !logoutRemoveKey {
				fmt.Fprintln(cmd.OutOrStdout(), "You are not currently signed in.")
				return nil
			}

			arts, err := auth.ArtifactsFor(a.Config)
			if err != nil {
				return err
			}
			result := auth.Cleanup(ctx, a.Store, auth.CleanupOptions{
				Artifacts:  arts,
				RemoveKey:  logoutRemoveKey,
				SecureWipe: logoutSecureWipe,
			})
			fmt.Fprint(cmd.OutOrStdout(), result.String())
			if err := result.Err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully signed out!")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVar(&logoutRemoveKey, "remove-key", false, "also remove the credential sealing key")
	logoutCmd.Flags().BoolVar(&logoutSecureWipe, "secure-wipe", false, "overwrite the credential file before deletion")
}
