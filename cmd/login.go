package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/auth"
	"github.com/jhorman9/elevideo/internal/crypto"
	"github.com/jhorman9/elevideo/internal/gateway"
)

var (
	loginEmail    string
	loginPassword string
	loginVerify   bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Elevideo",
	Long: `Signs in with your email and password and stores the returned credential
for later commands. The password is read from --password, ELEVIDEO_PASSWORD,
or a line on stdin, in that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(loginEmail)
		if email == "" {
			var err error
			if email, err = readSecret(cmd, "", "ELEVIDEO_EMAIL", "Email: "); err != nil {
				return err
			}
		}
		password, err := readSecret(cmd, loginPassword, "ELEVIDEO_PASSWORD", "Password: ")
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return performLogin(ctx, a, cmd.OutOrStdout(), email, password)
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prefer ELEVIDEO_PASSWORD)")
	loginCmd.Flags().BoolVar(&loginVerify, "verify", true, "check the new credential with an authenticated request")
}

// performLogin signs in and rolls the stored artifacts back if any later step fails.
func performLogin(ctx context.Context, a *app.App, out io.Writer, email, password string) error {
	rollback := auth.NewRollbackManager(out)

	arts, err := auth.ArtifactsFor(a.Config)
	if err != nil {
		return err
	}
	if a.Config.Credential.Seal && arts.KeyPath != "" && !crypto.KeyExists(arts.KeyPath) {
		rollback.AddKeyRollback(arts.KeyPath)
	}

	session, err := a.Auth.Login(ctx, email, password)
	if err != nil {
		_ = rollback.Execute()
		return fmt.Errorf("sign-in failed: %w", err)
	}
	rollback.AddCredentialRollback(ctx, a.Store)
	fmt.Fprintln(out, "✓ credential saved")

	if loginVerify {
		if _, err := a.Projects.List(ctx, gateway.ListOptions{Size: 1}); err != nil {
			fmt.Fprintln(out, "Sign-in could not be verified. Rolling back changes...")
			if rbErr := rollback.Execute(); rbErr != nil {
				fmt.Fprintf(out, "Rollback failed: %v\n", rbErr)
			}
			return fmt.Errorf("credential check failed: %w", err)
		}
	}

	who := session.Email
	if who == "" {
		who = email
	}
	fmt.Fprintf(out, "Signed in as %s\n", who)
	return nil
}
