package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/jrsteele09/go-dashboard-auth/flows"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	fake   bool
	banner bool
}

// NewRootCmd creates the root command for the dashauth CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dashauth",
		Short: "Dashboard authentication client",
		Long: `dashauth signs users in and out of the dashboard's identity provider and
completes the flows started by emailed confirmation and password-reset links.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.fake, "fake", false, "use an in-memory identity provider seeded with "+demoEmail)
	cmd.PersistentFlags().BoolVar(&opts.banner, "banner", true, "print the application banner")

	cmd.AddCommand(newSignUpCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newForgotPasswordCmd(opts))
	cmd.AddCommand(newResetPasswordCmd(opts))
	cmd.AddCommand(newConfirmCmd(opts))

	return cmd
}

func newSignUpCmd(opts *rootOptions) *cobra.Command {
	var form auth.RegisterFormData

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, "")
			if err != nil {
				return err
			}
			cache, err := a.newCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			flow := flows.NewRegisterFlow(a.deps(cache))
			flow.Mount()
			defer flow.Unmount()

			if err := flow.Submit(ctx, form); err != nil {
				return err
			}
			return report(cmd, flow.Snapshot(), a.location)
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "password again")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var form auth.LoginFormData
	var hold bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, then sign out again on interrupt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, "")
			if err != nil {
				return err
			}
			cache, err := a.newCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			flow := flows.NewLoginFlow(a.deps(cache))
			flow.Mount()
			defer flow.Unmount()

			if err := flow.Submit(ctx, form); err != nil {
				return err
			}
			if err := report(cmd, flow.Snapshot(), a.location); err != nil {
				return err
			}

			if user := cache.Snapshot().User(); user != nil {
				cmd.Printf("Signed in as %s (%s)\n", user.Email, user.ID)
			}
			if !hold {
				return nil
			}

			cmd.Println("Press Ctrl+C to sign out")
			waitForStopSignal()
			if err := cache.SignOut(ctx); err != nil {
				return errors.Wrap(err, "sign out")
			}
			cmd.Printf("Signed out, now at %s\n", a.location.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password")
	cmd.Flags().BoolVar(&hold, "hold", true, "keep the session until interrupted, then sign out")
	return cmd
}

func newForgotPasswordCmd(opts *rootOptions) *cobra.Command {
	var form auth.ForgotPasswordFormData

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password-reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, "")
			if err != nil {
				return err
			}

			flow := flows.NewForgotPasswordFlow(a.deps(nil))
			flow.Mount()
			defer flow.Unmount()

			if err := flow.Submit(ctx, form); err != nil {
				return err
			}
			return report(cmd, flow.Snapshot(), a.location)
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	return cmd
}

func newResetPasswordCmd(opts *rootOptions) *cobra.Command {
	var form auth.ResetPasswordFormData
	var link string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password from an emailed recovery link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, link)
			if err != nil {
				return err
			}
			cache, err := a.newCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			delay := a.cfg.GetRedirectDelay()
			flow := flows.NewResetPasswordFlow(a.deps(cache), delay)
			flow.Mount()
			defer flow.Unmount()

			if err := flow.Submit(ctx, form); err != nil {
				return err
			}
			state := flow.Snapshot()
			if state.Status == flows.StatusSuccess {
				select {
				case <-time.After(delay + 100*time.Millisecond):
				case <-ctx.Done():
				}
			}
			return report(cmd, state, a.location)
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "recovery link from the email")
	cmd.Flags().StringVar(&form.Password, "password", "", "new password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "new password again")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}

func newConfirmCmd(opts *rootOptions) *cobra.Command {
	var link string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm an email address from an emailed signup link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, link)
			if err != nil {
				return err
			}
			cache, err := a.newCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			flow := flows.NewEmailConfirmationFlow(a.deps(cache), navigation.RouteDashboard)
			flow.Mount()
			defer flow.Unmount()

			confirmed, err := flow.Verify(ctx)
			if err != nil {
				return err
			}
			if !confirmed && flow.Snapshot().Status == flows.StatusIdle {
				return errors.New("link is not an email confirmation link")
			}
			return report(cmd, flow.Snapshot(), a.location)
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "confirmation link from the email")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}

// report prints the outcome of a flow. A failed flow is returned as an error.
func report(cmd *cobra.Command, state flows.State, location *navigation.Location) error {
	for field, msg := range state.FieldErrors {
		cmd.Printf("%s: %s\n", field, msg)
	}
	if len(state.FieldErrors) > 0 {
		return errors.New("invalid input")
	}
	if state.PageError != "" {
		return errors.New(state.PageError)
	}
	if state.Status == flows.StatusError {
		return errors.New(state.Error)
	}
	if state.Message != "" {
		cmd.Println(state.Message)
	}
	cmd.Printf("Status: %s, location: %s\n", state.Status, location.Path())
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
