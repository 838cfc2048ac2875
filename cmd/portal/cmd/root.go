// Package cmd implements the portal CLI, a terminal front end for the
// customer portal and the intranet.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/observability"
	"github.com/spec-kit/diagnostic-login/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "Drive the customer portal and the intranet from a terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	},
}

// portalEnv holds what every subcommand shares.
type portalEnv struct {
	cfg    config.PortalConfig
	logger *zap.Logger
	out    io.Writer
}

var app portalEnv

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "auth API base URL (default from PORTAL_API_URL)")
	rootCmd.PersistentFlags().String("api-prefix", "", "auth API path prefix (default from PORTAL_API_PREFIX)")
	rootCmd.PersistentFlags().String("customer-app-url", "", "customer portal URL (default from PORTAL_CUSTOMER_APP_URL)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP timeout (default from PORTAL_TIMEOUT_SECONDS)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
}

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(err))
		if app.logger != nil {
			app.logger.Debug("command failed", zap.Error(err))
		}
	}
	return err
}

func setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetString("api-url"); v != "" {
		cfg.Portal.APIURL = v
	}
	if v, _ := flags.GetString("api-prefix"); v != "" {
		cfg.Portal.APIPrefix = v
	}
	if v, _ := flags.GetString("customer-app-url"); v != "" {
		cfg.Portal.CustomerAppURL = v
	}
	if v, _ := flags.GetDuration("timeout"); v > 0 {
		cfg.Portal.TimeoutSeconds = int(v / time.Second)
	}
	cfg.Logger.Level, _ = flags.GetString("log-level")

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	app = portalEnv{cfg: cfg.Portal, logger: logger, out: cmd.OutOrStdout()}
	return nil
}

func newClient(portal client.Portal) *client.Client {
	return client.New(app.cfg.APIURL, portal,
		client.WithAPIPrefix(app.cfg.APIPrefix),
		client.WithTimeout(app.cfg.Timeout()),
		client.WithLogger(app.logger.Named("client")),
	)
}

func newOrchestrator(api *client.Client, entryURL string) *session.Orchestrator {
	return session.NewOrchestrator(api, api.Portal(), session.NewLocation(entryURL),
		session.WithLogger(app.logger.Named("session")))
}

func credentials(cmd *cobra.Command) (string, string, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("PORTAL_PASSWORD")
	}
	if username == "" || password == "" {
		return "", "", errors.New("--username and --password (or PORTAL_PASSWORD) are required")
	}
	return username, password, nil
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("username", "", "account username")
	cmd.Flags().String("password", "", "account password")
}

func printState(w io.Writer, state session.State) {
	fmt.Fprintf(w, "Phase:    %s\n", state.Phase)
	if state.Customer != nil {
		fmt.Fprintf(w, "Signed in as %s\n", describe(*state.Customer))
	}
	if state.Staff != nil {
		fmt.Fprintf(w, "Diagnostic session opened by %s\n", describe(*state.Staff))
	}
	if state.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", state.Error)
	}
}

func describe(id domain.Identity) string {
	return fmt.Sprintf("%s (%s, id %d)", id.DisplayName(), id.Username, id.ID)
}

// errorText prefers the backend's message for API failures.
func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return client.Message(err)
	}
	return err.Error()
}
