package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/config"
	xlog "github.com/jhorman9/elevideo/internal/log"
	"github.com/jhorman9/elevideo/internal/version"
)

var (
	cfgFile   string
	baseURL   string
	logLevel  string
	logFormat string

	// Set by PersistentPreRunE for every command that needs them
	cfg    config.Config
	logger = zerolog.Nop()
)

// errSignInRequired is returned when a command hit an expired session.
var errSignInRequired = errors.New("session expired; run 'elevideo login' to sign in again")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "elevideo",
	Short: "Manage Elevideo projects and videos from the command line.",
	Long: `elevideo is a command-line client for the Elevideo video hosting service.

It signs you in, keeps your credential on this machine, and lets you manage
projects and the videos inside them: list, create, rename, upload, download
and delete.

Start with 'elevideo init' to write a configuration, then 'elevideo login'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipsConfig(cmd) {
			return nil
		}
		loaded, err := config.Load(cfgFile, config.Overrides{
			BackendURL: baseURL,
			LogLevel:   logLevel,
			LogFormat:  logFormat,
		})
		if err != nil {
			return err
		}
		cfg = loaded
		logger = xlog.WithComponent(xlog.New(xlog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()}), "cli")
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/elevideo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Elevideo API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console or json)")
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "skip" {
			return true
		}
	}
	return false
}

// withApp builds the client, runs fn with the heartbeat alive and turns a forced
// sign-in into errSignInRequired.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error, opts ...app.Option) error {
	ui := newTerminalPorts(cmd.ErrOrStderr())
	opts = append([]app.Option{app.WithPorts(ui, ui)}, opts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// one id correlates every request of this invocation
	ctx = xlog.ContextWithRequestID(ctx, uuid.NewString())
	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.Run(ctx, func(ctx context.Context) error { return fn(ctx, a) })
	if ui.SignInRequired() {
		return errSignInRequired
	}
	return err
}

// readSecret takes a value from the flag, then the environment, then one line of stdin.
func readSecret(cmd *cobra.Command, flagValue, envKey, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s (y/N): ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
