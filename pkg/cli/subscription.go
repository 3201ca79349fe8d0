package cli

import (
	"fmt"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// targetUser returns --for when given, otherwise the session user
func (a *app) targetUser(forUser string) (uuid.UUID, error) {
	if forUser != "" {
		id, err := uuid.Parse(forUser)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid --for user id %q: %w", forUser, err)
		}
		return id, nil
	}
	c, err := a.api()
	if err != nil {
		return uuid.Nil, err
	}
	return c.Session().UserID, nil
}

func newSubscriptionCommand(a *app) *cobra.Command {
	var forUser string

	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Show or change a subscription",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			userID, err := a.targetUser(forUser)
			if err != nil {
				return err
			}
			sub, err := c.GetSubscription(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), sub, subscriptionTable(sub))
		},
	}
	cmd.PersistentFlags().StringVar(&forUser, "for", "", "Act on another user id (default: session user)")

	cmd.AddCommand(
		newSubscriptionSetCommand(a, &forUser),
		newSubscriptionUpdateCommand(a, &forUser),
		newSubscriptionCancelCommand(a, &forUser),
	)
	return cmd
}

func newSubscriptionSetCommand(a *app, forUser *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <plan>",
		Short: "Select a plan; paid plans are invoiced immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			userID, err := a.targetUser(*forUser)
			if err != nil {
				return err
			}
			sub, err := c.CreateSubscription(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), sub, subscriptionTable(sub.Subscription))
		},
	}
}

func newSubscriptionUpdateCommand(a *app, forUser *string) *cobra.Command {
	var (
		plan      string
		status    string
		autoRenew bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change plan, status or auto-renew",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := &billing.UpdateSubscriptionRequest{}
			if cmd.Flags().Changed("plan") {
				req.Plan = &plan
			}
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}
			if cmd.Flags().Changed("auto-renew") {
				req.AutoRenew = &autoRenew
			}
			if req.Plan == nil && req.Status == nil && req.AutoRenew == nil {
				return fmt.Errorf("nothing to update: set --plan, --status or --auto-renew")
			}

			c, err := a.api()
			if err != nil {
				return err
			}
			userID, err := a.targetUser(*forUser)
			if err != nil {
				return err
			}
			sub, err := c.UpdateSubscription(cmd.Context(), userID, req)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), sub, subscriptionTable(sub.Subscription))
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "", "New plan (free, starter, pro, enterprise)")
	cmd.Flags().StringVar(&status, "status", "", "New status (active, cancelled)")
	cmd.Flags().BoolVar(&autoRenew, "auto-renew", true, "Renew automatically")

	return cmd
}

func newSubscriptionCancelCommand(a *app, forUser *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Return to the free plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			userID, err := a.targetUser(*forUser)
			if err != nil {
				return err
			}
			sub, err := c.CancelSubscription(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), sub, subscriptionTable(sub.Subscription))
		},
	}
}

func newQuotaCommand(a *app) *cobra.Command {
	var forUser string

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show project and task limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.api()
			if err != nil {
				return err
			}
			userID, err := a.targetUser(forUser)
			if err != nil {
				return err
			}
			quota, err := c.CheckQuota(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), quota, quotaTable(quota))
		},
	}
	cmd.Flags().StringVar(&forUser, "for", "", "Act on another user id (default: session user)")
	return cmd
}
