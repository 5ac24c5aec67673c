package costs

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testDay = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func setupLedger(t *testing.T, opts ...LedgerOption) *Ledger {
	t.Helper()
	opts = append([]LedgerOption{WithClock(fixedClock(testDay))}, opts...)
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "costs"), opts...)
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	return ledger
}

func TestNewLedger_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".albedo", "costs")

	ledger, err := NewLedger(dir)
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	if ledger.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", ledger.Dir(), dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected ledger directory to exist, stat: %v", err)
	}
}

func TestLedger_LogPricesAndAppends(t *testing.T) {
	ledger := setupLedger(t)

	rec, alerts, err := ledger.Log(Record{
		Project:  "webshop",
		Model:    "claude-sonnet-4-20250514",
		TokensIn: 100_000, TokensOut: 10_000,
		Command: "chat",
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if math.Abs(rec.CostUSD-0.45) > 1e-9 {
		t.Errorf("cost = %v, want 0.45", rec.CostUSD)
	}
	if rec.Agent != "pm" {
		t.Errorf("agent = %q, want default 'pm'", rec.Agent)
	}
	if !rec.Timestamp.Equal(testDay) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, testDay)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts at $0.45, got %v", alerts)
	}

	_, alerts, err = ledger.Log(Record{
		Agent: "pm",
		Model: "claude-3-5-haiku-20241022",
		TokensIn: 500_000, TokensOut: 100_000,
	})
	if err != nil {
		t.Fatalf("second Log failed: %v", err)
	}

	day, err := ledger.Day(testDay)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	if day.Date != "2026-03-10" {
		t.Errorf("date = %q, want 2026-03-10", day.Date)
	}
	if len(day.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(day.Calls))
	}
	if day.Summary.Calls != 2 || day.Summary.Tokens != 710_000 {
		t.Errorf("summary calls/tokens = %d/%d, want 2/710000", day.Summary.Calls, day.Summary.Tokens)
	}
	if math.Abs(day.Summary.CostUSD-1.25) > 1e-9 {
		t.Errorf("summary cost = %v, want 1.25", day.Summary.CostUSD)
	}
	if b := day.Summary.ByAgent["pm"]; b == nil || b.Calls != 2 {
		t.Errorf("by_agent pm = %+v, want 2 calls", b)
	}
	if b := day.Summary.ByProject["webshop"]; b == nil || b.Calls != 1 {
		t.Errorf("by_project webshop = %+v, want 1 call", b)
	}
	if len(day.Summary.ByModel) != 2 {
		t.Errorf("expected 2 models in rollup, got %d", len(day.Summary.ByModel))
	}

	// $1.25 blows the $1.00 daily budget.
	want := "Daily budget exceeded: $1.25 / $1.00"
	if len(alerts) != 1 || alerts[0] != want {
		t.Errorf("alerts = %v, want [%q]", alerts, want)
	}
	if math.Abs(day.Budget.DailyRemaining-(-0.25)) > 1e-9 {
		t.Errorf("daily remaining = %v, want -0.25", day.Budget.DailyRemaining)
	}

	if _, err := os.Stat(filepath.Join(ledger.Dir(), "2026-03-10.json")); err != nil {
		t.Errorf("expected day file on disk: %v", err)
	}
}

func TestLedger_RequiresModel(t *testing.T) {
	ledger := setupLedger(t)

	if _, _, err := ledger.Log(Record{TokensIn: 100}); err == nil {
		t.Error("expected error for record without model")
	}
}

func TestLedger_TruncatesSummary(t *testing.T) {
	ledger := setupLedger(t)

	rec, _, err := ledger.Log(Record{
		Model:   "claude-sonnet-4-20250514",
		Summary: strings.Repeat("x", 250),
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(rec.Summary) != 200 {
		t.Errorf("summary length = %d, want 200", len(rec.Summary))
	}
}

func TestLedger_WarnsAtEightyPercent(t *testing.T) {
	ledger := setupLedger(t)

	// $0.90 of the $1.00 daily budget.
	_, alerts, err := ledger.Log(Record{
		Model:    "claude-sonnet-4-20250514",
		TokensIn: 200_000, TokensOut: 20_000,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	want := "Daily budget 80% used: $0.90 / $1.00"
	if len(alerts) != 1 || alerts[0] != want {
		t.Errorf("alerts = %v, want [%q]", alerts, want)
	}
}

func TestLedger_MonthlyBudgetSpansDays(t *testing.T) {
	current := testDay
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "costs"),
		WithClock(func() time.Time { return current }),
		WithBudgets(100, 1.00))
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}

	// Day one: $0.90 of the $1.00 monthly budget.
	_, alerts, err := ledger.Log(Record{
		Model:    "claude-sonnet-4-20250514",
		TokensIn: 200_000, TokensOut: 20_000,
	})
	if err != nil {
		t.Fatalf("day one Log failed: %v", err)
	}
	want := "Monthly budget 80% used: $0.90 / $1.00"
	if len(alerts) != 1 || alerts[0] != want {
		t.Errorf("day one alerts = %v, want [%q]", alerts, want)
	}

	// Day two adds $0.30, crossing the monthly limit.
	current = testDay.AddDate(0, 0, 1)
	_, alerts, err = ledger.Log(Record{
		Model:    "claude-3-5-haiku-20241022",
		TokensIn: 250_000, TokensOut: 25_000,
	})
	if err != nil {
		t.Fatalf("day two Log failed: %v", err)
	}
	want = "Monthly budget exceeded: $1.20 / $1.00"
	if len(alerts) != 1 || alerts[0] != want {
		t.Errorf("day two alerts = %v, want [%q]", alerts, want)
	}

	day, err := ledger.Day(current)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	if math.Abs(day.Budget.MonthlyUsed-1.2) > 1e-9 {
		t.Errorf("monthly used = %v, want 1.2", day.Budget.MonthlyUsed)
	}
	if math.Abs(day.Summary.CostUSD-0.3) > 1e-9 {
		t.Errorf("day two cost = %v, want 0.3", day.Summary.CostUSD)
	}
}

func TestLedger_Month(t *testing.T) {
	current := testDay
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "costs"),
		WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}

	if _, _, err := ledger.Log(Record{
		Model:    "claude-sonnet-4-20250514",
		TokensIn: 200_000, TokensOut: 20_000,
		Project: "webshop",
	}); err != nil {
		t.Fatalf("day one Log failed: %v", err)
	}

	current = testDay.AddDate(0, 0, 1)
	if _, _, err := ledger.Log(Record{
		Model:    "claude-3-5-haiku-20241022",
		TokensIn: 250_000, TokensOut: 25_000,
		Project: "intranet",
	}); err != nil {
		t.Fatalf("day two Log failed: %v", err)
	}

	sum, err := ledger.Month(current)
	if err != nil {
		t.Fatalf("Month failed: %v", err)
	}
	if sum.Month != "2026-03" {
		t.Errorf("month = %q, want 2026-03", sum.Month)
	}
	if sum.Calls != 2 || sum.Tokens != 495_000 {
		t.Errorf("calls/tokens = %d/%d, want 2/495000", sum.Calls, sum.Tokens)
	}
	if math.Abs(sum.CostUSD-1.2) > 1e-9 {
		t.Errorf("month cost = %v, want 1.2", sum.CostUSD)
	}
	if b := sum.ByAgent["pm"]; b == nil || b.Calls != 2 {
		t.Errorf("by_agent pm = %+v, want 2 calls", b)
	}
	if len(sum.ByProject) != 2 {
		t.Errorf("expected 2 projects, got %d", len(sum.ByProject))
	}
	if math.Abs(sum.UsedPercent-6.0) > 1e-9 {
		t.Errorf("used percent = %v, want 6 (of the $20 default)", sum.UsedPercent)
	}
}

func TestLedger_Month_EmptyIsNotAnError(t *testing.T) {
	ledger := setupLedger(t)

	sum, err := ledger.Month(testDay)
	if err != nil {
		t.Fatalf("Month failed: %v", err)
	}
	if sum.Calls != 0 || sum.CostUSD != 0 {
		t.Errorf("expected empty summary, got %+v", sum)
	}
}

func TestLedger_Day_NoData(t *testing.T) {
	ledger := setupLedger(t)

	_, err := ledger.Day(testDay)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestLedger_Projection(t *testing.T) {
	ledger := setupLedger(t)

	// $0.45 by the 10th projects to $1.35 over a 30-day month.
	if _, _, err := ledger.Log(Record{
		Model:    "claude-sonnet-4-20250514",
		TokensIn: 100_000, TokensOut: 10_000,
	}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	day, err := ledger.Day(testDay)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	if math.Abs(day.Projection-1.35) > 1e-9 {
		t.Errorf("projection = %v, want 1.35", day.Projection)
	}
}

func TestLedger_ZeroBudgetsDisableAlerts(t *testing.T) {
	ledger := setupLedger(t, WithBudgets(0, 0))

	_, alerts, err := ledger.Log(Record{
		Model:    "claude-sonnet-4-20250514",
		TokensIn: 1_000_000, TokensOut: 0,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts without budgets, got %v", alerts)
	}
}

func TestLedger_WriteCSV(t *testing.T) {
	current := testDay
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "costs"),
		WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}

	if _, _, err := ledger.Log(Record{Model: "claude-sonnet-4-20250514", TokensIn: 1000, TokensOut: 100, Command: "chat"}); err != nil {
		t.Fatalf("day one Log failed: %v", err)
	}
	current = testDay.AddDate(0, 0, 1)
	if _, _, err := ledger.Log(Record{Model: "claude-3-5-haiku-20241022", TokensIn: 1000, TokensOut: 100, Command: "batch"}); err != nil {
		t.Fatalf("day two Log failed: %v", err)
	}

	var buf bytes.Buffer
	rows, err := ledger.WriteCSV(&buf, 30)
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "timestamp,agent,project,model,tokens_in,tokens_out,cost_usd,command") {
		t.Errorf("missing header, got %q", out)
	}
	if !strings.Contains(out, "claude-3-5-haiku-20241022") {
		t.Error("expected haiku row in csv")
	}

	// A one-day window only covers the newest file.
	buf.Reset()
	rows, err = ledger.WriteCSV(&buf, 1)
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
	if strings.Contains(buf.String(), "claude-sonnet-4-20250514") {
		t.Error("day one row should fall outside a one-day window")
	}
}
