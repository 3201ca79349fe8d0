package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AmiraaaF/Projet-Rust/pkg/client"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Environment variables read for flag defaults
const (
	EnvServerURL = "BILLING_SERVER_URL"
	EnvUserID    = "BILLING_USER_ID"
	EnvToken     = "BILLING_TOKEN"
)

// app carries the parsed persistent flags shared by every command
type app struct {
	serverURL string
	userID    string
	token     string
	output    string
	verbose   bool

	log    *logrus.Logger
	client *client.Client
}

// NewRootCommand creates the billing CLI root command
func NewRootCommand() *cobra.Command {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:           "billing",
		Short:         "Billing - subscription and invoice management CLI",
		Long:          `Manage plans, subscriptions, quotas and invoices on a billing server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.serverURL, "server", "s", envOr(EnvServerURL, "http://localhost:8080"), "Billing server URL")
	root.PersistentFlags().StringVarP(&a.userID, "user", "u", os.Getenv(EnvUserID), "User id the session acts for")
	root.PersistentFlags().StringVarP(&a.token, "token", "t", os.Getenv(EnvToken), "Bearer token")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format (table, json, yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log API calls")

	root.AddCommand(
		newPlansCommand(a),
		newSubscriptionCommand(a),
		newQuotaCommand(a),
		newInvoicesCommand(a),
		newChangePlanCommand(a),
		newCancelPlanCommand(a),
	)

	return root
}

func (a *app) setup(stderr io.Writer) error {
	a.log.SetOutput(stderr)
	a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	a.log.SetLevel(logrus.WarnLevel)
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	switch a.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unsupported output format %q (must be table, json or yaml)", a.output)
	}
	return nil
}

// api builds the client on first use so commands that never call the
// server do not require a session
func (a *app) api() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	session, err := client.NewSession(a.userID, a.token)
	if err != nil {
		return nil, fmt.Errorf("%w (set --user/--token or %s/%s)", err, EnvUserID, EnvToken)
	}
	c, err := client.New(a.serverURL, session, client.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
