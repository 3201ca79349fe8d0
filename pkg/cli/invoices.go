package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newInvoicesCommand(a *app) *cobra.Command {
	var (
		forUser string
		page    int
		limit   int
		status  string
	)

	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice", "inv"},
		Short:   "List and manage invoices",
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
			resp, err := c.ListInvoices(cmd.Context(), userID, billing.ListInvoicesParams{Page: page, Limit: limit, Status: status})
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), resp, func(tw *tabwriter.Writer) {
				invoiceTable(resp.Data)(tw)
				fmt.Fprintf(tw, "\npage %d/%d\t(%d invoices)\n", resp.Page, resp.TotalPages, resp.Total)
			})
		},
	}
	cmd.PersistentFlags().StringVar(&forUser, "for", "", "Act on another user id (default: session user)")
	cmd.Flags().IntVar(&page, "page", billing.DefaultPage, "Page number")
	cmd.Flags().IntVar(&limit, "limit", billing.DefaultLimit, "Invoices per page (max 100)")
	cmd.Flags().StringVar(&status, "status", "", "Only invoices with this status (draft, issued, paid, overdue)")

	cmd.AddCommand(
		newInvoiceGetCommand(a),
		newInvoiceCreateCommand(a, &forUser),
		newInvoicePayCommand(a),
		newInvoiceDeleteCommand(a),
		newInvoiceExportCommand(a, &forUser),
	)
	return cmd
}

func parseInvoiceID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid invoice id %q: %w", arg, err)
	}
	return id, nil
}

func newInvoiceGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <invoice-id>",
		Short: "Show one invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			c, err := a.api()
			if err != nil {
				return err
			}
			inv, err := c.GetInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), inv, invoiceTable([]*billing.Invoice{inv}))
		},
	}
}

// parseDueDate accepts a calendar date or an RFC 3339 timestamp
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return &t, nil
}

func newInvoiceCreateCommand(a *app, forUser *string) *cobra.Command {
	var (
		amount         string
		currency       string
		status         string
		due            string
		subscriptionID string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a manual invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			dueDate, err := parseDueDate(due)
			if err != nil {
				return err
			}
			userID, err := a.targetUser(*forUser)
			if err != nil {
				return err
			}

			req := &billing.CreateInvoiceRequest{
				UserID:   userID,
				Amount:   value,
				Currency: currency,
				DueDate:  dueDate,
				Status:   status,
			}
			if subscriptionID != "" {
				id, err := uuid.Parse(subscriptionID)
				if err != nil {
					return fmt.Errorf("invalid subscription id %q: %w", subscriptionID, err)
				}
				req.SubscriptionID = &id
			}

			c, err := a.api()
			if err != nil {
				return err
			}
			inv, err := c.CreateInvoice(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), inv, invoiceTable([]*billing.Invoice{inv}))
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 12.50 (required)")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code (default USD)")
	cmd.Flags().StringVar(&status, "status", "", "draft or issued (default issued)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "Subscription id the invoice belongs to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newInvoicePayCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <invoice-id>",
		Short: "Mark an invoice as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			c, err := a.api()
			if err != nil {
				return err
			}
			inv, err := c.PayInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), inv, invoiceTable([]*billing.Invoice{inv}))
		},
	}
}

func newInvoiceDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <invoice-id>",
		Short: "Delete a draft invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			c, err := a.api()
			if err != nil {
				return err
			}
			if err := c.DeleteInvoice(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invoice %s deleted\n", id)
			return nil
		},
	}
}
