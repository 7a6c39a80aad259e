package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/config"
)

var (
	initCredentialBackend string
	initSeal              bool
	initRedisAddr         string
	initNoHeartbeat       bool
	initForce             bool
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an elevideo configuration file",
	Long: `Creates the configuration file used by every other command, holding the API
base URL, where the credential is stored and whether the backend heartbeat runs.

Run this once per machine before 'elevideo login'.`,
	Annotations: map[string]string{"config": "skip"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			dir, err := config.EnsureConfigDir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, config.GlobalConfigFile)
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			fmt.Fprintf(cmd.ErrOrStderr(), "A configuration already exists at %s\n", path)
			if !confirm(cmd, "Do you want to override the existing configuration?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Initialization aborted.")
				return nil
			}
		}

		c := config.Default()
		if baseURL != "" {
			c.BackendURL = baseURL
		}
		if initCredentialBackend != "" {
			c.Credential.Backend = initCredentialBackend
		}
		c.Credential.Seal = initSeal
		c.Credential.RedisAddr = initRedisAddr
		c.Heartbeat.Enabled = !initNoHeartbeat
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if logFormat != "" {
			c.Log.Format = logFormat
		}
		if err := config.Validate(c); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := config.WriteFile(path, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initCredentialBackend, "credential-backend", config.BackendFile, "credential store: file, memory or redis")
	initCmd.Flags().BoolVar(&initSeal, "seal", false, "encrypt the stored credential with a local key")
	initCmd.Flags().StringVar(&initRedisAddr, "redis-addr", "", "redis address for the redis credential backend")
	initCmd.Flags().BoolVar(&initNoHeartbeat, "no-heartbeat", false, "disable the backend keep-warm heartbeat")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration without asking")
}
