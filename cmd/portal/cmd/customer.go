package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/session"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Customer portal",
}

var customerOpenCmd = &cobra.Command{
	Use:   "open [url]",
	Short: "Load the customer portal at url, redeeming a diagnostic code if present",
	Long: `Load the customer portal the way a browser tab would.

A ?code= parameter in the URL is exchanged for a diagnostic session and
removed from the address. Without one the session is restored from cookies.

Examples:
  portal customer open "http://localhost:3002/?code=6f1c..."
  portal customer open
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCustomerOpen,
}

var customerLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the customer portal",
	Args:  cobra.NoArgs,
	RunE:  runCustomerLogin,
}

func init() {
	addCredentialFlags(customerLoginCmd)
	customerCmd.AddCommand(customerOpenCmd, customerLoginCmd)
	rootCmd.AddCommand(customerCmd)
}

func runCustomerOpen(cmd *cobra.Command, args []string) error {
	entry := app.cfg.CustomerAppURL + "/"
	if len(args) == 1 {
		entry = args[0]
	}

	loc := session.NewLocation(entry)
	orch := session.NewOrchestrator(newClient(client.PortalCustomer), client.PortalCustomer, loc,
		session.WithLogger(app.logger.Named("session")))

	state := orch.Init(cmd.Context())
	printState(app.out, state)
	fmt.Fprintf(app.out, "Address:  %s\n", loc.URL())

	if state.Phase == session.PhaseExchangeError {
		orch.DismissExchangeError()
		return fmt.Errorf("diagnostic login failed: %s", state.Error)
	}
	return nil
}

func runCustomerLogin(cmd *cobra.Command, _ []string) error {
	username, password, err := credentials(cmd)
	if err != nil {
		return err
	}
	orch := newOrchestrator(newClient(client.PortalCustomer), app.cfg.CustomerAppURL+"/")
	state, err := orch.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	printState(app.out, state)
	return nil
}
