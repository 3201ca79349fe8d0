package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/AmiraaaF/Projet-Rust/pkg/client"
	"github.com/spf13/cobra"
)

// confirm asks a yes/no question on in. Anything but y/yes declines.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (a *app) cache(cmd *cobra.Command) (*client.BillingCache, error) {
	c, err := a.api()
	if err != nil {
		return nil, err
	}
	cache := client.NewBillingCache(c, c.Session().UserID, a.log)
	if err := cache.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return cache, nil
}

func (a *app) renderCacheResult(cmd *cobra.Command, cache *client.BillingCache) error {
	if err := cache.LoadInvoices(cmd.Context()); err != nil {
		return err
	}
	state, _ := cache.Snapshot()

	out := cmd.OutOrStdout()
	if a.output == formatTable {
		fmt.Fprintf(out, "Current plan: %s\n\n", state.CurrentPlan)
	}
	return a.render(out, state.Invoices, invoiceTable(state.Invoices))
}

func newChangePlanCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "change-plan <plan>",
		Short: "Change the session user's plan after confirmation",
		Long: `Stage a plan change, ask for confirmation, then apply it.
The plan shown afterwards is the one the server reports, not the one requested.`,
		Aliases: []string{"upgrade"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := a.cache(cmd)
			if err != nil {
				return err
			}

			cache.RequestPlanChange(billing.Plan(strings.ToLower(args[0])))
			state, _ := cache.Snapshot()

			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Change plan from %s to %s?", state.CurrentPlan, *state.PendingPlan))
				if err != nil {
					return err
				}
				if !ok {
					cache.DismissPlanChange()
					fmt.Fprintln(cmd.OutOrStdout(), "Plan change dismissed")
					return nil
				}
			}

			if err := cache.ConfirmPlanChange(cmd.Context()); err != nil {
				return err
			}
			return a.renderCacheResult(cmd, cache)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newCancelPlanCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cancel-plan",
		Short: "Return the session user to the free plan after confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := a.cache(cmd)
			if err != nil {
				return err
			}

			cache.RequestCancel()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Cancel the subscription and return to free?")
				if err != nil {
					return err
				}
				if !ok {
					cache.DismissCancel()
					fmt.Fprintln(cmd.OutOrStdout(), "Cancellation dismissed")
					return nil
				}
			}

			if err := cache.CancelSubscription(cmd.Context()); err != nil {
				return err
			}
			return a.renderCacheResult(cmd, cache)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
