package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v in the selected format. table draws the table form.
func (a *app) render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch a.output {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		return writeYAML(w, v)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// writeYAML goes through JSON so field names and decimal amounts match the API.
// Decoding into a yaml.Node keeps the JSON field order.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("convert to yaml: %w", err)
	}
	setBlockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// setBlockStyle drops the flow collections and quoting inherited from JSON syntax
func setBlockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		setBlockStyle(c)
	}
}

func formatLimit(n int) string {
	if n == billing.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func planTable(plans []billing.PlanInfo) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tNAME\tPRICE\tPROJECTS\tTASKS\tFEATURES")
		for _, p := range plans {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
				p.ID, p.Name, p.PriceMonthly.StringFixed(2), p.Currency,
				formatLimit(p.MaxProjects), formatLimit(p.MaxTasks), strings.Join(p.Features, ", "))
		}
	}
}

func subscriptionTable(sub *billing.Subscription) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "USER\t%s\n", sub.UserID)
		fmt.Fprintf(tw, "PLAN\t%s\n", sub.Plan)
		fmt.Fprintf(tw, "STATUS\t%s\n", sub.Status)
		fmt.Fprintf(tw, "AUTO RENEW\t%t\n", sub.AutoRenew)
		fmt.Fprintf(tw, "STARTED\t%s\n", formatTime(&sub.StartedAt))
		fmt.Fprintf(tw, "EXPIRES\t%s\n", formatTime(sub.ExpiresAt))
		fmt.Fprintf(tw, "PROJECTS\t%s\n", formatLimit(sub.MaxProjects))
		fmt.Fprintf(tw, "TASKS\t%s\n", formatLimit(sub.MaxTasks))
		fmt.Fprintf(tw, "SOURCE\t%s\n", sub.Source)
	}
}

func quotaTable(q *billing.QuotaSnapshot) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "PLAN\t%s\n", q.Plan)
		fmt.Fprintf(tw, "ACTIVE\t%t\n", q.SubscriptionActive)
		fmt.Fprintf(tw, "PROJECTS\t%s\n", formatLimit(q.Quotas.MaxProjects))
		fmt.Fprintf(tw, "TASKS\t%s\n", formatLimit(q.Quotas.MaxTasks))
		fmt.Fprintf(tw, "SOURCE\t%s\n", q.Source)
	}
}

func invoiceTable(invoices []*billing.Invoice) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tPLAN\tAMOUNT\tSTATUS\tISSUED\tDUE\tPAID")
		for _, inv := range invoices {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\n",
				inv.ID, inv.PlanName, inv.Amount.StringFixed(2), inv.Currency, inv.Status,
				formatTime(&inv.IssuedAt), formatTime(inv.DueDate), formatTime(inv.PaidAt))
		}
	}
}
