package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"financas/internal/core"
)

func TestFormatReais(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{2550, "R$ 25,50"},
		{100000, "R$ 1.000,00"},
		{123456789, "R$ 1.234.567,89"},
		{-82500, "-R$ 825,00"},
		{math.MaxInt64, "R$ 92.233.720.368.547.758,07"},
	}
	for _, tt := range tests {
		if got := formatReais(decimal.New(tt.cents, -2)); got != tt.want {
			t.Errorf("formatReais(%d cents) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestInputFromFlagsOverlaysOnlyChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	addInputFlags(fs)
	if err := fs.Parse([]string{"-a", "30", "--date", "2024-03-09"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	base := core.Input{Kind: "expense", Description: "Uber", Amount: "25.50", Category: "Transporte", OccurredAt: "2024-03-04"}
	got := inputFromFlags(fs, base)
	want := core.Input{Kind: "expense", Description: "Uber", Amount: "30", Category: "Transporte", OccurredAt: "2024-03-09"}
	if got != want {
		t.Errorf("inputFromFlags() = %+v, want %+v", got, want)
	}
}

func TestDescribeWriteError(t *testing.T) {
	_, err := core.Input{Kind: "gift", Amount: "-1"}.Normalize(core.DefaultCategories(), time.Now(), time.UTC)
	msg := describeWriteError(err).Error()
	for _, field := range []string{"kind:", "description:", "amount:"} {
		if !strings.Contains(msg, field) {
			t.Errorf("describeWriteError() = %q, missing %q", msg, field)
		}
	}

	other := errors.New("boom")
	if got := describeWriteError(other); got != other {
		t.Errorf("describeWriteError(non-validation) = %v, want it unchanged", got)
	}
}

// resetFlags puts every flag of the tree back to its default so commands
// can run more than once in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func setupEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"POLL_INTERVAL", "AMQP_URL", "AMQP_EXCHANGE", "CATEGORIES",
		"DEFAULT_CATEGORY", "STATUS_ADDR", "FINANCAS_OWNER",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "financas.db"))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("financas %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func createdID(t *testing.T, out string) string {
	t.Helper()
	id, ok := strings.CutPrefix(strings.TrimSpace(out), "Created ")
	if !ok || id == "" {
		t.Fatalf("add output = %q, want Created <id>", out)
	}
	return id
}

func TestCommandsAgainstSQLite(t *testing.T) {
	setupEnv(t)

	if _, err := runCLI(t, "list"); err == nil || !strings.Contains(err.Error(), "no owner") {
		t.Fatalf("list without owner error = %v, want no owner", err)
	}

	uber := createdID(t, mustRun(t, "--owner", "alice", "add",
		"-k", "despesa", "-d", "Uber", "-a", "25,50", "-c", "transporte", "--date", "2024-03-04"))
	createdID(t, mustRun(t, "--owner", "alice", "add",
		"-k", "income", "-d", "Salário março", "-a", "3500", "-c", "Salário", "--date", "2024-03-05"))

	out := mustRun(t, "--owner", "alice", "list")
	if !strings.Contains(out, "Uber") || !strings.Contains(out, "R$ 25,50") || !strings.Contains(out, "Transporte") {
		t.Errorf("list output missing the expense:\n%s", out)
	}
	if strings.Index(out, "Salário março") > strings.Index(out, "Uber") {
		t.Errorf("list is not newest first:\n%s", out)
	}

	out = mustRun(t, "--owner", "alice", "list", "--json", "-k", "income")
	var incomes []core.Transaction
	if err := json.Unmarshal([]byte(out), &incomes); err != nil {
		t.Fatalf("decode list --json: %v\n%s", err, out)
	}
	if len(incomes) != 1 || incomes[0].Amount.Cents != 350000 || incomes[0].OwnerID != "alice" {
		t.Errorf("income list = %+v", incomes)
	}

	if out := mustRun(t, "--owner", "alice", "edit", uber, "-a", "30"); !strings.Contains(out, "Updated "+uber) {
		t.Errorf("edit output = %q", out)
	}
	out = mustRun(t, "--owner", "alice", "list", "-c", "Transporte")
	if !strings.Contains(out, "R$ 30,00") || !strings.Contains(out, "Uber") || !strings.Contains(out, "2024-03-04") {
		t.Errorf("edited record lost fields:\n%s", out)
	}

	out = mustRun(t, "--owner", "alice", "summary", "--month", "2024-03")
	for _, want := range []string{"R$ 3.500,00", "R$ 30,00", "R$ 3.470,00", "Transporte"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "--owner", "alice", "add", "-k", "expense", "-d", "x", "--amount=-1"); err == nil ||
		!strings.Contains(err.Error(), "amount") {
		t.Errorf("invalid add error = %v, want amount violation", err)
	}
	if _, err := runCLI(t, "--owner", "alice", "edit", "missing", "-a", "1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("edit missing error = %v, want ErrNotFound", err)
	}

	if out := mustRun(t, "--owner", "bob", "list"); !strings.Contains(out, "No transactions.") {
		t.Errorf("bob sees alice's data:\n%s", out)
	}

	mustRun(t, "--owner", "alice", "rm", uber, "already-gone")
	out = mustRun(t, "--owner", "alice", "list")
	if strings.Contains(out, "Uber") {
		t.Errorf("removed record still listed:\n%s", out)
	}
}

func TestCategoriesCommand(t *testing.T) {
	setupEnv(t)
	t.Setenv("CATEGORIES", "Casa,Mercado")
	t.Setenv("DEFAULT_CATEGORY", "Diversos")

	out := mustRun(t, "categories")
	want := "Casa\nMercado\nDiversos (default)\n"
	if out != want {
		t.Errorf("categories output = %q, want %q", out, want)
	}
}

func TestInvalidCriteriaFlags(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "--owner", "alice", "list", "--from", "03/01/2024"); err == nil {
		t.Error("list with a malformed --from should fail")
	}
}
