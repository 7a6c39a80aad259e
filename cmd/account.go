package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/models"
)

var (
	registerFirstName string
	registerLastName  string
	registerEmail     string
	registerPassword  string
	forgotEmail       string
	resetPassword     string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an Elevideo account",
	Long:  `Creates an account. A verification email is sent to the given address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(cmd, registerPassword, "ELEVIDEO_PASSWORD", "Password: ")
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			msg, err := a.Auth.Register(ctx, models.RegisterRequest{
				FirstName: strings.TrimSpace(registerFirstName),
				LastName:  strings.TrimSpace(registerLastName),
				Email:     strings.TrimSpace(registerEmail),
				Password:  password,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			printMessage(cmd, msg, "Account created. Check your inbox to verify your email.")
			return nil
		})
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email TOKEN",
	Short: "Confirm an email address with the token from the verification email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			msg, err := a.Auth.VerifyEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			printMessage(cmd, msg, "Email verified. You can now sign in.")
			return nil
		})
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset email",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			msg, err := a.Auth.ForgotPassword(ctx, strings.TrimSpace(forgotEmail))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			printMessage(cmd, msg, "If the account exists, a reset link is on its way.")
			return nil
		})
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password TOKEN",
	Short: "Set a new password with the token from the reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(cmd, resetPassword, "ELEVIDEO_NEW_PASSWORD", "New password: ")
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			msg, err := a.Auth.ResetPassword(ctx, args[0], password)
			if err != nil {
				return fmt.Errorf("password reset failed: %w", err)
			}
			printMessage(cmd, msg, "Password updated. You can now sign in.")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, verifyEmailCmd, forgotPasswordCmd, resetPasswordCmd)

	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "first name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "last name")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password (prefer ELEVIDEO_PASSWORD)")
	_ = registerCmd.MarkFlagRequired("email")

	forgotPasswordCmd.Flags().StringVarP(&forgotEmail, "email", "e", "", "account email")
	_ = forgotPasswordCmd.MarkFlagRequired("email")

	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "new password (prefer ELEVIDEO_NEW_PASSWORD)")
}

func printMessage(cmd *cobra.Command, msg, fallback string) {
	if msg == "" {
		msg = fallback
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}
