package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

func feedEvent(taskID int64, worker string, typ orchestrator.EventType) orchestrator.Event {
	return orchestrator.Event{
		Type:      typ,
		TaskID:    taskID,
		TaskTitle: "Fix login",
		WorkerKey: worker,
		Timestamp: time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC),
	}
}

func TestDispatchPanel_Add(t *testing.T) {
	p := NewDispatchPanel()

	p.Add(feedEvent(1, "backend", orchestrator.EventTaskDispatched))
	p.Add(feedEvent(1, "backend", orchestrator.EventTaskSucceeded))

	if p.EntryCount() != 2 {
		t.Errorf("EntryCount = %d, want 2", p.EntryCount())
	}
}

func TestDispatchPanel_Add_TrimsOldEntries(t *testing.T) {
	p := NewDispatchPanel()
	p.maxEntries = 3

	for i := int64(1); i <= 5; i++ {
		p.Add(feedEvent(i, "backend", orchestrator.EventTaskDispatched))
	}

	if p.EntryCount() != 3 {
		t.Errorf("EntryCount = %d, want 3", p.EntryCount())
	}
	if p.entries[0].TaskID != 3 {
		t.Errorf("oldest entry TaskID = %d, want 3", p.entries[0].TaskID)
	}
}

func TestDispatchPanel_FilterCycling(t *testing.T) {
	p := NewDispatchPanel()
	p.SetSize(60, 12)
	p.SetFocused(true)

	p.Add(feedEvent(1, "backend", orchestrator.EventTaskDispatched))
	p.Add(feedEvent(2, "frontend", orchestrator.EventTaskDispatched))
	p.Add(feedEvent(3, "backend", orchestrator.EventTaskSucceeded))

	if p.CurrentFilter() != "all" {
		t.Errorf("CurrentFilter = %q, want %q", p.CurrentFilter(), "all")
	}
	if p.FilteredCount() != 3 {
		t.Errorf("FilteredCount = %d, want 3", p.FilteredCount())
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})

	if p.CurrentFilter() != "backend" {
		t.Errorf("CurrentFilter = %q, want %q", p.CurrentFilter(), "backend")
	}
	if p.FilteredCount() != 2 {
		t.Errorf("FilteredCount = %d, want 2", p.FilteredCount())
	}
}

func TestDispatchPanel_ScrollDisablesAutoScroll(t *testing.T) {
	p := NewDispatchPanel()
	p.SetSize(60, 10) // 5 visible lines
	p.SetFocused(true)

	for i := int64(1); i <= 8; i++ {
		p.Add(feedEvent(i, "backend", orchestrator.EventTaskDispatched))
	}

	if !p.autoScroll {
		t.Fatal("autoScroll should start enabled")
	}
	if p.scrollOffset != 3 {
		t.Errorf("scrollOffset = %d, want 3", p.scrollOffset)
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyUp})

	if p.autoScroll {
		t.Error("scrolling up should disable autoScroll")
	}
	if p.scrollOffset != 2 {
		t.Errorf("scrollOffset = %d, want 2", p.scrollOffset)
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})

	if !p.autoScroll {
		t.Error("G should re-enable autoScroll")
	}
	if p.scrollOffset != 3 {
		t.Errorf("scrollOffset = %d, want 3", p.scrollOffset)
	}
}

func TestDispatchPanel_RenderEntry(t *testing.T) {
	p := NewDispatchPanel()
	p.SetSize(100, 12)

	tests := []struct {
		name string
		ev   orchestrator.Event
		want string
	}{
		{
			name: "dispatched",
			ev:   feedEvent(7, "backend", orchestrator.EventTaskDispatched),
			want: "#7 Fix login → backend",
		},
		{
			name: "failed includes reason",
			ev: orchestrator.Event{
				Type:      orchestrator.EventTaskFailed,
				TaskID:    7,
				TaskTitle: "Fix login",
				WorkerKey: "backend",
				Message:   "rejected: tests failing",
				Timestamp: time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC),
			},
			want: "backend: rejected: tests failing",
		},
		{
			name: "batch summary",
			ev: orchestrator.Event{
				Type:      orchestrator.EventBatchFinished,
				BatchID:   "0b5799f1-4edb-4aa3-9388-4bb348345a23",
				Message:   "2/3 succeeded",
				Timestamp: time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC),
			},
			want: "batch 0b5799f1: 2/3 succeeded",
		},
		{
			name: "auto assignment",
			ev: orchestrator.Event{
				Type:      orchestrator.EventAutoAssigned,
				TaskID:    9,
				TaskTitle: "Write tests",
				WorkerKey: "qa",
				Timestamp: time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC),
			},
			want: "auto #9 Write tests → qa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := p.renderEntry(tt.ev)
			if !strings.Contains(line, tt.want) {
				t.Errorf("renderEntry = %q, want it to contain %q", line, tt.want)
			}
			if !strings.Contains(line, "14:30:05") {
				t.Errorf("renderEntry = %q, want timestamp", line)
			}
		})
	}
}

func TestDispatchPanel_View_Empty(t *testing.T) {
	p := NewDispatchPanel()
	p.SetSize(60, 12)

	if view := p.View(); !strings.Contains(view, "No dispatches yet") {
		t.Error("empty view should mention the empty feed")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0b5799f1-4edb"); got != "0b5799f1" {
		t.Errorf("shortID = %q, want %q", got, "0b5799f1")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q, want %q", got, "abc")
	}
}
