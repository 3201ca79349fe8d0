package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

var invoiceHeader = []interface{}{
	"id", "plan", "amount", "currency", "status", "issued_at", "due_date", "paid_at", "subscription_id",
}

func newInvoiceExportCommand(a *app, forUser *string) *cobra.Command {
	var (
		file   string
		status string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every invoice to an .xlsx workbook",
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
			invoices, err := c.ListAllInvoices(cmd.Context(), userID, status)
			if err != nil {
				return err
			}

			if file == "-" {
				return writeInvoiceWorkbook(cmd.OutOrStdout(), invoices)
			}

			f, err := invoiceWorkbook(invoices)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			if err := f.SaveAs(file); err != nil {
				return fmt.Errorf("failed to save %s: %w", file, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoices to %s\n", len(invoices), file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "invoices.xlsx", "Output workbook, - for stdout")
	cmd.Flags().StringVar(&status, "status", "", "Only invoices with this status")
	return cmd
}

// invoiceWorkbook lays invoices out one per row under a header row
func invoiceWorkbook(invoices []*billing.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := f.SetSheetRow(sheet, "A1", &invoiceHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, inv := range invoices {
		amount, _ := inv.Amount.Float64()
		row := []interface{}{
			inv.ID.String(),
			string(inv.PlanName),
			amount,
			inv.Currency,
			string(inv.Status),
			inv.IssuedAt.UTC().Format(time.RFC3339),
			optionalTime(inv.DueDate),
			optionalTime(inv.PaidAt),
			"",
		}
		if inv.SubscriptionID != nil {
			row[8] = inv.SubscriptionID.String()
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write invoice %s: %w", inv.ID, err)
		}
	}

	return f, nil
}

func writeInvoiceWorkbook(w io.Writer, invoices []*billing.Invoice) error {
	f, err := invoiceWorkbook(invoices)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.WriteTo(w)
	return err
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
