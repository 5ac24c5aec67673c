package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

func finding(condition, message string) orchestrator.Event {
	return orchestrator.Event{
		Type:      orchestrator.EventMonitorFinding,
		ProjectID: 1,
		Condition: condition,
		Message:   message,
		Timestamp: time.Date(2026, 8, 23, 9, 15, 0, 0, time.UTC),
	}
}

func TestFindingsPanel_Add(t *testing.T) {
	p := NewFindingsPanel()
	p.SetSize(80, 20)

	p.Add(finding("overdue", "2 task(s) past due"))
	p.Add(finding("stale_blocked", "1 task blocked for 4 days"))

	if p.FindingCount() != 2 {
		t.Errorf("FindingCount = %d, want 2", p.FindingCount())
	}
}

func TestFindingsPanel_Add_TrimsOldFindings(t *testing.T) {
	p := NewFindingsPanel()
	p.SetSize(80, 20)
	p.maxItems = 2

	p.Add(finding("overdue", "first"))
	p.Add(finding("overdue", "second"))
	p.Add(finding("overdue", "third"))

	if p.FindingCount() != 2 {
		t.Errorf("FindingCount = %d, want 2", p.FindingCount())
	}
	if p.findings[0].Message != "second" {
		t.Errorf("oldest finding = %q, want %q", p.findings[0].Message, "second")
	}
}

func TestFindingsPanel_View(t *testing.T) {
	p := NewFindingsPanel()
	p.SetSize(80, 20)
	p.Add(finding("overdue", "2 task(s) past due"))

	view := p.View()

	if !strings.Contains(view, "[overdue]") {
		t.Errorf("view should show the condition, got %q", view)
	}
	if !strings.Contains(view, "2 task(s) past due") {
		t.Errorf("view should show the message, got %q", view)
	}
}

func TestFindingsPanel_View_Empty(t *testing.T) {
	p := NewFindingsPanel()
	p.SetSize(80, 20)

	if view := p.View(); !strings.Contains(view, "No findings yet") {
		t.Error("empty view should explain where findings come from")
	}
}
