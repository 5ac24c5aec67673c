// Package costs keeps a transparent ledger of Anthropic API spend.
//
// Every call is appended to a per-day JSON file under the ledger directory
// (2006-01-02.json), together with a running daily summary and budget
// status, so spend stays inspectable with nothing more than cat.
package costs

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// ErrNoData indicates no ledger file exists for the requested day.
var ErrNoData = errors.New("no cost data")

// WarnFraction is the share of a budget at which alerts begin.
const WarnFraction = 0.80

const (
	defaultDailyBudget   = 1.00
	defaultMonthlyBudget = 20.00

	dayFormat   = "2006-01-02"
	monthFormat = "2006-01"

	summaryLimit = 200
)

// Record is a single priced API call.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Project   string    `json:"project,omitempty"`
	Model     string    `json:"model"`
	TokensIn  int64     `json:"tokens_in"`
	TokensOut int64     `json:"tokens_out"`
	CostUSD   float64   `json:"cost_usd"`
	Command   string    `json:"command,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// Bucket accumulates calls, tokens and spend for one grouping key.
type Bucket struct {
	Calls   int     `json:"calls"`
	Tokens  int64   `json:"tokens"`
	CostUSD float64 `json:"cost_usd"`
}

// DaySummary is the running rollup stored alongside a day's calls.
type DaySummary struct {
	Calls     int                `json:"calls"`
	Tokens    int64              `json:"tokens"`
	CostUSD   float64            `json:"cost_usd"`
	ByAgent   map[string]*Bucket `json:"by_agent,omitempty"`
	ByModel   map[string]*Bucket `json:"by_model,omitempty"`
	ByProject map[string]*Bucket `json:"by_project,omitempty"`
}

func (s *DaySummary) add(rec Record) {
	if s.ByAgent == nil {
		s.ByAgent = make(map[string]*Bucket)
	}
	if s.ByModel == nil {
		s.ByModel = make(map[string]*Bucket)
	}
	if s.ByProject == nil {
		s.ByProject = make(map[string]*Bucket)
	}

	tokens := rec.TokensIn + rec.TokensOut
	s.Calls++
	s.Tokens += tokens
	s.CostUSD = round7(s.CostUSD + rec.CostUSD)

	addTo(s.ByAgent, rec.Agent, tokens, rec.CostUSD)
	addTo(s.ByModel, rec.Model, tokens, rec.CostUSD)
	if rec.Project != "" {
		addTo(s.ByProject, rec.Project, tokens, rec.CostUSD)
	}
}

func addTo(m map[string]*Bucket, key string, tokens int64, cost float64) {
	b, ok := m[key]
	if !ok {
		b = &Bucket{}
		m[key] = b
	}
	b.Calls++
	b.Tokens += tokens
	b.CostUSD = round7(b.CostUSD + cost)
}

// BudgetStatus snapshots budget consumption at the time of the last call.
type BudgetStatus struct {
	DailyLimit       float64 `json:"daily_limit"`
	DailyUsed        float64 `json:"daily_used"`
	DailyRemaining   float64 `json:"daily_remaining"`
	MonthlyLimit     float64 `json:"monthly_limit"`
	MonthlyUsed      float64 `json:"monthly_used"`
	MonthlyRemaining float64 `json:"monthly_remaining"`
}

// DayLog is the on-disk shape of one day's ledger file.
type DayLog struct {
	Date       string       `json:"date"`
	Calls      []Record     `json:"calls"`
	Summary    DaySummary   `json:"summary"`
	Projection float64      `json:"monthly_projection"`
	Budget     BudgetStatus `json:"budget"`
	Alerts     []string     `json:"alerts,omitempty"`
}

// MonthSummary aggregates every ledger file of one calendar month.
type MonthSummary struct {
	Month       string             `json:"month"`
	Calls       int                `json:"calls"`
	Tokens      int64              `json:"tokens"`
	CostUSD     float64            `json:"cost_usd"`
	ByAgent     map[string]*Bucket `json:"by_agent,omitempty"`
	ByProject   map[string]*Bucket `json:"by_project,omitempty"`
	BudgetUSD   float64            `json:"budget_usd"`
	UsedPercent float64            `json:"used_percent"`
}

// Ledger appends priced call records to daily JSON files and checks them
// against daily and monthly budgets.
type Ledger struct {
	dir           string
	dailyBudget   float64
	monthlyBudget float64
	now           func() time.Time
	mu            sync.Mutex
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithBudgets sets the daily and monthly budget limits in USD. A limit of
// zero or less disables alerts for that window.
func WithBudgets(dailyUSD, monthlyUSD float64) LedgerOption {
	return func(l *Ledger) {
		l.dailyBudget = dailyUSD
		l.monthlyBudget = monthlyUSD
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates the ledger directory if needed and returns a Ledger
// writing into it.
func NewLedger(dir string, opts ...LedgerOption) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create costs dir: %w", err)
	}

	l := &Ledger{
		dir:           dir,
		dailyBudget:   defaultDailyBudget,
		monthlyBudget: defaultMonthlyBudget,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Dir returns the ledger directory.
func (l *Ledger) Dir() string {
	return l.dir
}

// Budgets returns the configured daily and monthly limits in USD.
func (l *Ledger) Budgets() (dailyUSD, monthlyUSD float64) {
	return l.dailyBudget, l.monthlyBudget
}

// Log prices the record, appends it to today's ledger file and refreshes
// the daily summary and budget status. It returns the completed record and
// any budget alerts now in effect.
func (l *Ledger) Log(rec Record) (Record, []string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Model == "" {
		return Record{}, nil, fmt.Errorf("cost record needs a model")
	}
	now := l.now()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	if rec.Agent == "" {
		rec.Agent = "pm"
	}
	if len(rec.Summary) > summaryLimit {
		rec.Summary = rec.Summary[:summaryLimit]
	}
	rec.CostUSD = Cost(rec.Model, rec.TokensIn, rec.TokensOut)

	day, err := l.loadDay(now)
	if err != nil {
		return Record{}, nil, err
	}

	day.Calls = append(day.Calls, rec)
	day.Summary.add(rec)

	monthly := round7(l.monthCostExcluding(now) + day.Summary.CostUSD)
	day.Budget = BudgetStatus{
		DailyLimit:       l.dailyBudget,
		DailyUsed:        day.Summary.CostUSD,
		DailyRemaining:   round7(l.dailyBudget - day.Summary.CostUSD),
		MonthlyLimit:     l.monthlyBudget,
		MonthlyUsed:      monthly,
		MonthlyRemaining: round7(l.monthlyBudget - monthly),
	}
	day.Projection = round2(monthly / float64(now.Day()) * 30)
	day.Alerts = l.checkAlerts(day.Summary.CostUSD, monthly)

	if err := l.writeDay(now, day); err != nil {
		return Record{}, nil, err
	}
	return rec, day.Alerts, nil
}

// Day reads the ledger file for the given date. Returns ErrNoData when no
// calls were logged that day.
func (l *Ledger) Day(t time.Time) (*DayLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day, err := readDayFile(l.dayPath(t))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, t.Format(dayFormat))
	}
	if err != nil {
		return nil, err
	}
	return day, nil
}

// Month aggregates every ledger file of the month containing t. A month
// with no files yields an empty summary, not an error.
func (l *Ledger) Month(t time.Time) (*MonthSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamp := t.Format(monthFormat)
	paths, err := filepath.Glob(filepath.Join(l.dir, stamp+"-*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan costs dir: %w", err)
	}

	sum := &MonthSummary{
		Month:     stamp,
		ByAgent:   make(map[string]*Bucket),
		ByProject: make(map[string]*Bucket),
		BudgetUSD: l.monthlyBudget,
	}
	for _, path := range paths {
		day, err := readDayFile(path)
		if err != nil {
			continue
		}
		sum.Calls += day.Summary.Calls
		sum.Tokens += day.Summary.Tokens
		sum.CostUSD += day.Summary.CostUSD
		mergeBuckets(sum.ByAgent, day.Summary.ByAgent)
		mergeBuckets(sum.ByProject, day.Summary.ByProject)
	}
	sum.CostUSD = round7(sum.CostUSD)
	if l.monthlyBudget > 0 {
		sum.UsedPercent = round2(sum.CostUSD / l.monthlyBudget * 100)
	}
	return sum, nil
}

func mergeBuckets(dst, src map[string]*Bucket) {
	for key, b := range src {
		d, ok := dst[key]
		if !ok {
			d = &Bucket{}
			dst[key] = d
		}
		d.Calls += b.Calls
		d.Tokens += b.Tokens
		d.CostUSD += b.CostUSD
	}
}

// WriteCSV writes one row per call covering the last days of records,
// newest day first, and returns the number of data rows written.
func (l *Ledger) WriteCSV(w io.Writer, days int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "agent", "project", "model", "tokens_in", "tokens_out", "cost_usd", "command"})

	rows := 0
	now := l.now()
	for i := 0; i < days; i++ {
		day, err := readDayFile(l.dayPath(now.AddDate(0, 0, -i)))
		if err != nil {
			continue
		}
		for _, rec := range day.Calls {
			cw.Write([]string{
				rec.Timestamp.Format(time.RFC3339),
				rec.Agent,
				rec.Project,
				rec.Model,
				strconv.FormatInt(rec.TokensIn, 10),
				strconv.FormatInt(rec.TokensOut, 10),
				strconv.FormatFloat(rec.CostUSD, 'f', -1, 64),
				rec.Command,
			})
			rows++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("write csv: %w", err)
	}
	return rows, nil
}

func (l *Ledger) checkAlerts(daily, monthly float64) []string {
	var alerts []string
	if l.dailyBudget > 0 {
		switch {
		case daily > l.dailyBudget:
			alerts = append(alerts, fmt.Sprintf("Daily budget exceeded: $%.2f / $%.2f", daily, l.dailyBudget))
		case daily > l.dailyBudget*WarnFraction:
			alerts = append(alerts, fmt.Sprintf("Daily budget 80%% used: $%.2f / $%.2f", daily, l.dailyBudget))
		}
	}
	if l.monthlyBudget > 0 {
		switch {
		case monthly > l.monthlyBudget:
			alerts = append(alerts, fmt.Sprintf("Monthly budget exceeded: $%.2f / $%.2f", monthly, l.monthlyBudget))
		case monthly > l.monthlyBudget*WarnFraction:
			alerts = append(alerts, fmt.Sprintf("Monthly budget 80%% used: $%.2f / $%.2f", monthly, l.monthlyBudget))
		}
	}
	return alerts
}

// monthCostExcluding sums the summaries of every file in t's month except
// t's own day, which the caller tracks in memory.
func (l *Ledger) monthCostExcluding(t time.Time) float64 {
	paths, err := filepath.Glob(filepath.Join(l.dir, t.Format(monthFormat)+"-*.json"))
	if err != nil {
		return 0
	}

	skip := t.Format(dayFormat) + ".json"
	total := 0.0
	for _, path := range paths {
		if filepath.Base(path) == skip {
			continue
		}
		day, err := readDayFile(path)
		if err != nil {
			continue
		}
		total += day.Summary.CostUSD
	}
	return round7(total)
}

func (l *Ledger) dayPath(t time.Time) string {
	return filepath.Join(l.dir, t.Format(dayFormat)+".json")
}

// loadDay reads today's file, or starts a fresh DayLog when none exists.
func (l *Ledger) loadDay(t time.Time) (*DayLog, error) {
	day, err := readDayFile(l.dayPath(t))
	if errors.Is(err, os.ErrNotExist) {
		return &DayLog{Date: t.Format(dayFormat)}, nil
	}
	if err != nil {
		return nil, err
	}
	return day, nil
}

func (l *Ledger) writeDay(t time.Time, day *DayLog) error {
	data, err := json.MarshalIndent(day, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cost log: %w", err)
	}
	if err := os.WriteFile(l.dayPath(t), data, 0o644); err != nil {
		return fmt.Errorf("write cost log: %w", err)
	}
	return nil
}

func readDayFile(path string) (*DayLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var day DayLog
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, fmt.Errorf("parse cost log %s: %w", filepath.Base(path), err)
	}
	return &day, nil
}

func round7(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
