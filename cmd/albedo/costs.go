package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/costs"
)

var (
	costsCSV  bool
	costsDays int
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show API spend and budget status",
	Long: `Show today's API spend, the month's running total, and budget status.

Every PM agent call is priced into a daily JSON ledger under
.albedo/costs/; this command summarizes it.

Examples:
  albedo costs
  albedo costs --csv --days 30 > spend.csv`,
	RunE: runCosts,
}

func init() {
	costsCmd.Flags().BoolVar(&costsCSV, "csv", false, "Export call records as CSV to stdout")
	costsCmd.Flags().IntVar(&costsDays, "days", 7, "How many days of records the CSV export covers")
}

func runCosts(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ledger, err := app.openLedger()
	if err != nil {
		return err
	}

	if costsCSV {
		n, err := ledger.WriteCSV(os.Stdout, costsDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d records exported\n", n)
		return nil
	}

	now := time.Now()
	day, err := ledger.Day(now)
	if err != nil {
		return fmt.Errorf("read today's ledger: %w", err)
	}
	month, err := ledger.Month(now)
	if err != nil {
		return fmt.Errorf("read month ledger: %w", err)
	}

	dailyBudget, monthlyBudget := ledger.Budgets()

	fmt.Printf("Today (%s):\n", now.Format("2006-01-02"))
	fmt.Printf("  calls: %d  tokens: %d  spend: $%.4f / $%.2f\n",
		day.Summary.Calls, day.Summary.Tokens, day.Summary.CostUSD, dailyBudget)
	printBuckets("  by model:", day.Summary.ByModel)

	fmt.Printf("\nMonth (%s):\n", month.Month)
	fmt.Printf("  calls: %d  tokens: %d  spend: $%.4f / $%.2f (%.0f%%)\n",
		month.Calls, month.Tokens, month.CostUSD, monthlyBudget, month.UsedPercent)
	if day.Projection > 0 {
		fmt.Printf("  projected month at today's pace: $%.2f\n", day.Projection)
	}

	for _, alert := range day.Alerts {
		printStatus("⚠", alert, color.FgYellow)
	}
	return nil
}

func printBuckets(label string, buckets map[string]*costs.Bucket) {
	if len(buckets) == 0 {
		return
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println(label)
	for _, k := range keys {
		b := buckets[k]
		fmt.Printf("    %-40s %d calls  $%.4f\n", k, b.Calls, b.CostUSD)
	}
}
