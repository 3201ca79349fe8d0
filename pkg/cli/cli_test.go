package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AmiraaaF/Projet-Rust/pkg/api"
	"github.com/AmiraaaF/Projet-Rust/pkg/auth"
	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/AmiraaaF/Projet-Rust/pkg/middleware"
	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/AmiraaaF/Projet-Rust/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

type testEnv struct {
	url    string
	userID string
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Config{Driver: "sqlite3", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(ctx, db, storage.DialectSQLite))

	verifier, err := auth.NewHMACVerifier("cli-test-secret-0123456789", "")
	require.NoError(t, err)

	srv := api.NewServer(api.ServerOptions{
		Service:       billing.NewSQLService(db, storage.DialectSQLite),
		Logger:        observability.NewLogger(observability.ErrorLevel, io.Discard),
		Authenticator: middleware.NewAuthenticator(verifier, 16, time.Minute),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	userID := uuid.New()
	token, err := verifier.Issue(userID, "", time.Hour)
	require.NoError(t, err)

	return &testEnv{url: ts.URL, userID: userID.String(), token: token}
}

// run executes the CLI with the session flags prepended
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--server", e.url, "--user", e.userID, "--token", e.token}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "billing", root.Use)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"plans", "subscription", "quota", "invoices", "change-plan", "cancel-plan"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_RejectsUnknownOutput(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "plans", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRootCommand_RequiresSession(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--user", "", "--token", "", "plans"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvUserID)
}

func TestPlansCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "plans")
	require.NoError(t, err)
	assert.Contains(t, out, "enterprise")
	assert.Contains(t, out, "29.99 USD")
	assert.Contains(t, out, "unlimited")

	out, err = env.run(t, "", "plans", "get", "nope", "-o", "json")
	require.NoError(t, err)
	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "free", plan["id"])
}

func TestSubscriptionCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "subscription")
	require.NoError(t, err)
	assert.Contains(t, out, "virtual_default")

	out, err = env.run(t, "", "subscription", "set", "pro")
	require.NoError(t, err)
	assert.Contains(t, out, "pro")

	out, err = env.run(t, "", "subscription", "update", "--auto-renew=false", "-o", "yaml")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "pro", doc["plan"])
	assert.Equal(t, false, doc["auto_renew"])
	assert.Equal(t, "stored", doc["source"])

	_, err = env.run(t, "", "subscription", "update")
	assert.Error(t, err)

	_, err = env.run(t, "", "subscription", "set", "gold")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown plan")

	out, err = env.run(t, "", "quota", "-o", "json")
	require.NoError(t, err)
	var quota billing.QuotaSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &quota))
	assert.True(t, quota.SubscriptionActive)
	assert.Equal(t, 50, quota.Quotas.MaxProjects)

	out, err = env.run(t, "", "subscription", "cancel", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"plan": "free"`)
}

func TestInvoiceCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "invoices", "create", "--amount", "12.5", "--currency", "eur", "--status", "draft", "--due", "2026-12-31", "-o", "json")
	require.NoError(t, err)
	var inv billing.Invoice
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	assert.Equal(t, billing.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "EUR", inv.Currency)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("12.5")))
	require.NotNil(t, inv.DueDate)

	out, err = env.run(t, "", "invoices", "get", inv.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "12.50 EUR")

	out, err = env.run(t, "", "invoices", "delete", inv.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = env.run(t, "", "invoices", "get", "not-a-uuid")
	assert.Error(t, err)

	_, err = env.run(t, "", "invoices", "create", "--amount", "abc")
	assert.Error(t, err)

	_, err = env.run(t, "", "subscription", "set", "starter")
	require.NoError(t, err)

	out, err = env.run(t, "", "invoices", "--status", "paid")
	require.NoError(t, err)
	assert.Contains(t, out, "9.99 USD")
	assert.Contains(t, out, "page 1/1")

	issued, err := env.run(t, "", "invoices", "create", "--amount", "3", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(issued), &inv))

	out, err = env.run(t, "", "invoices", "pay", inv.ID.String(), "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "paid"`)

	_, err = env.run(t, "", "invoices", "pay", inv.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestInvoiceExport(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "subscription", "set", "enterprise")
	require.NoError(t, err)
	_, err = env.run(t, "", "invoices", "create", "--amount", "7.25")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := env.run(t, "", "invoices", "export", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 invoices")

	f, err := excelize.OpenFile(file)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "amount", rows[0][2])

	amounts := []string{rows[1][2], rows[2][2]}
	assert.ElementsMatch(t, []string{"99.99", "7.25"}, amounts)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

func TestInvoiceWorkbook_Stdout(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "invoices", "export", "-f", "-")
	require.NoError(t, err)

	f, err := excelize.OpenReader(strings.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestChangePlanCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "n\n", "change-plan", "pro")
	require.NoError(t, err)
	assert.Contains(t, out, "Change plan from free to pro?")
	assert.Contains(t, out, "Plan change dismissed")

	out, err = env.run(t, "", "subscription", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"plan": "free"`)

	out, err = env.run(t, "yes\n", "change-plan", "PRO")
	require.NoError(t, err)
	assert.Contains(t, out, "Current plan: pro")
	assert.Contains(t, out, "29.99 USD")

	_, err = env.run(t, "", "upgrade", "diamond", "--yes")
	require.Error(t, err)

	out, err = env.run(t, "", "cancel-plan")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancellation dismissed")

	out, err = env.run(t, "", "cancel-plan", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "Current plan: free")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"\n", false},
		{"no\n", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := confirm(strings.NewReader(tt.input), io.Discard, "?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "input %q", tt.input)
	}
}

func TestParseDueDate(t *testing.T) {
	d, err := parseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDueDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *d)

	d, err = parseDueDate("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = parseDueDate("tomorrow")
	assert.Error(t, err)
}
