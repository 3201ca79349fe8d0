package cli

import (
	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/spf13/cobra"
)

func newPlansCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Show the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			plans, err := c.ListPlans(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), plans, planTable(plans))
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <plan>",
		Short: "Show one plan (unknown plans resolve to free)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			plan, err := c.GetPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), plan, planTable([]billing.PlanInfo{*plan}))
		},
	})

	return cmd
}
