package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/impersonation"
	"github.com/spec-kit/diagnostic-login/internal/surface"
)

var intranetCmd = &cobra.Command{
	Use:   "intranet",
	Short: "Staff intranet",
}

var intranetLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the intranet (staff accounts only)",
	Args:  cobra.NoArgs,
	RunE:  runIntranetLogin,
}

var intranetCustomersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customers",
	Args:  cobra.NoArgs,
	RunE:  runIntranetCustomers,
}

var intranetDiagnoseCmd = &cobra.Command{
	Use:   "diagnose <customer-id>",
	Short: "Open the customer portal as a customer for diagnostics",
	Long: `Request a one-time code for the customer and hand it to the customer portal.

With --browser a Chrome tab is opened before the code is requested and then
navigated to the portal; the command keeps the browser open until interrupted.
Without it the portal address is printed.

Examples:
  portal intranet diagnose 5 --username staff1 --password staff123
  portal intranet diagnose 5 --username staff1 --browser
`,
	Args: cobra.ExactArgs(1),
	RunE: runIntranetDiagnose,
}

func init() {
	for _, c := range []*cobra.Command{intranetLoginCmd, intranetCustomersCmd, intranetDiagnoseCmd} {
		addCredentialFlags(c)
	}
	intranetDiagnoseCmd.Flags().Bool("browser", false, "open the portal in a Chrome tab")
	intranetDiagnoseCmd.Flags().Bool("headless", false, "run Chrome headless (with --browser)")
	intranetCmd.AddCommand(intranetLoginCmd, intranetCustomersCmd, intranetDiagnoseCmd)
	rootCmd.AddCommand(intranetCmd)
}

// staffSession logs in to the intranet and returns the authenticated client.
func staffSession(cmd *cobra.Command) (*client.Client, error) {
	username, password, err := credentials(cmd)
	if err != nil {
		return nil, err
	}
	api := newClient(client.PortalIntranet)
	orch := newOrchestrator(api, "")
	state, err := orch.Login(cmd.Context(), username, password)
	if err != nil {
		return nil, err
	}
	app.logger.Debug("intranet login", zap.Int64("user_id", state.Customer.ID))
	return api, nil
}

func runIntranetLogin(cmd *cobra.Command, _ []string) error {
	username, password, err := credentials(cmd)
	if err != nil {
		return err
	}
	orch := newOrchestrator(newClient(client.PortalIntranet), "")
	state, err := orch.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	printState(app.out, state)
	return nil
}

func runIntranetCustomers(cmd *cobra.Command, _ []string) error {
	api, err := staffSession(cmd)
	if err != nil {
		return err
	}
	customers, err := api.ListCustomers(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL")
	for _, c := range customers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Username, c.DisplayName(), c.Email)
	}
	return w.Flush()
}

func runIntranetDiagnose(cmd *cobra.Command, args []string) error {
	customerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || customerID <= 0 {
		return fmt.Errorf("invalid customer id %q", args[0])
	}
	useBrowser, _ := cmd.Flags().GetBool("browser")
	headless, _ := cmd.Flags().GetBool("headless")

	api, err := staffSession(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var opener impersonation.SurfaceOpener = surface.NewPrinter(app.out)
	var browser *surface.Browser
	if useBrowser {
		browser = surface.NewBrowser(context.WithoutCancel(ctx), headless, app.logger.Named("browser"))
		defer browser.Close()
		opener = browser
	}

	initiator := impersonation.NewInitiator(api, opener, app.cfg.CustomerAppURL, app.logger.Named("impersonation"))
	out := <-initiator.Initiate(ctx, customerID)
	if out.Err != nil {
		if out.URL != "" {
			fmt.Fprintf(app.out, "Could not open a tab. Open this address yourself: %s\n", out.URL)
		}
		return out.Err
	}
	fmt.Fprintf(app.out, "Diagnostic session for %s started.\n", describe(out.Customer))

	if browser != nil {
		fmt.Fprintln(app.out, "Press Ctrl+C to close the browser.")
		<-ctx.Done()
	}
	return nil
}
