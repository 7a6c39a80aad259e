package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/auth"
	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/crypto"
)

var errNoKeyPath = errors.New("the sealing key is only used by the file credential backend")

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the credential sealing key",
	Long: `Manage the local key used to seal the stored credential at rest.
The key is created automatically at the first sealed sign-in.`,
}

// keysStatusCmd shows the status of the sealing key
var keysStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a sealing key exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		arts, err := keyArtifacts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !crypto.KeyExists(arts.KeyPath) {
			fmt.Fprintln(out, "Status: No sealing key found")
			fmt.Fprintln(out, "Run 'elevideo keys generate' or sign in with sealing enabled to create one")
			return nil
		}
		key, err := crypto.LoadKey(arts.KeyPath)
		if err != nil {
			return fmt.Errorf("key exists but failed to load: %w", err)
		}
		fmt.Fprintln(out, "Status: Sealing key is present")
		fmt.Fprintf(out, "Location: %s\n", arts.KeyPath)
		fmt.Fprintf(out, "Fingerprint: %s\n", key.Fingerprint())
		return nil
	},
}

// keysGenerateCmd generates a new sealing key
var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new sealing key",
	Long: `Generate a new sealing key, replacing any existing one. A credential sealed
with the old key can no longer be read, so it is removed and you must sign in again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		arts, err := keyArtifacts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if crypto.KeyExists(arts.KeyPath) && !force {
			fmt.Fprintln(cmd.ErrOrStderr(), "A sealing key already exists. Replacing it signs you out.")
			if !confirm(cmd, "Are you sure you want to continue?") {
				fmt.Fprintln(out, "Key generation cancelled.")
				return nil
			}
		}

		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		if err := crypto.SaveKey(arts.KeyPath, key); err != nil {
			return err
		}
		// the old sealed credential is unreadable now
		res := auth.Cleanup(cmd.Context(), credential.NewFileStore(arts.CredentialPath, credential.WithLogger(logger)), auth.CleanupOptions{Artifacts: arts})
		if err := res.Err(); err != nil {
			return err
		}

		fmt.Fprintln(out, "Sealing key generated successfully!")
		fmt.Fprintf(out, "Fingerprint: %s\n", key.Fingerprint())
		return nil
	},
}

// keysRemoveCmd removes the sealing key
var keysRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the sealing key",
	Long:  `Remove the sealing key. A sealed credential cannot be read afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		arts, err := keyArtifacts()
		if err != nil {
			return err
		}
		if !crypto.KeyExists(arts.KeyPath) {
			fmt.Fprintln(cmd.OutOrStdout(), "No sealing key found to remove.")
			return nil
		}
		if !force && !confirm(cmd, "This signs you out if your credential is sealed. Continue?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Key removal cancelled.")
			return nil
		}
		if err := crypto.RemoveKey(arts.KeyPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Sealing key removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysStatusCmd)
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysRemoveCmd)

	keysGenerateCmd.Flags().BoolP("force", "f", false, "Force key generation without confirmation")
	keysRemoveCmd.Flags().BoolP("force", "f", false, "Force key removal without confirmation")
}

func keyArtifacts() (auth.Artifacts, error) {
	arts, err := auth.ArtifactsFor(cfg)
	if err != nil {
		return arts, err
	}
	if arts.KeyPath == "" {
		return arts, errNoKeyPath
	}
	return arts, nil
}
