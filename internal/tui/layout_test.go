package tui

import "testing"

func TestLayoutManager_CalculateFleetTab(t *testing.T) {
	lm := NewLayoutManager(100, 40)

	dims := lm.CalculateFleetTab(1)

	if dims.FleetWidth != 40 {
		t.Errorf("FleetWidth = %d, want 40", dims.FleetWidth)
	}
	if dims.DispatchWidth != 60 {
		t.Errorf("DispatchWidth = %d, want 60", dims.DispatchWidth)
	}
	// 40 total - 10 header - 1 footer - 1 tab bar
	if dims.ContentHeight != 28 {
		t.Errorf("ContentHeight = %d, want 28", dims.ContentHeight)
	}
}

func TestLayoutManager_CalculateFleetTab_MinWidth(t *testing.T) {
	lm := NewLayoutManager(50, 40)

	dims := lm.CalculateFleetTab(1)

	if dims.FleetWidth != 30 {
		t.Errorf("FleetWidth = %d, want min 30", dims.FleetWidth)
	}
	if dims.DispatchWidth != 20 {
		t.Errorf("DispatchWidth = %d, want 20", dims.DispatchWidth)
	}
}

func TestLayoutManager_CalculateFindingsTab(t *testing.T) {
	lm := NewLayoutManager(100, 40)

	dims := lm.CalculateFindingsTab(1)

	if dims.FindingsWidth != 100 {
		t.Errorf("FindingsWidth = %d, want 100", dims.FindingsWidth)
	}
	if dims.FleetWidth != 0 {
		t.Errorf("FleetWidth = %d, want 0", dims.FleetWidth)
	}
	if dims.ContentHeight != 28 {
		t.Errorf("ContentHeight = %d, want 28", dims.ContentHeight)
	}
}

func TestLayoutManager_SetHeaderHeight(t *testing.T) {
	lm := NewLayoutManager(100, 40)
	lm.SetHeaderHeight(0)

	dims := lm.CalculateFleetTab(1)

	if dims.ContentHeight != 38 {
		t.Errorf("ContentHeight = %d, want 38 with header hidden", dims.ContentHeight)
	}
}

func TestLayoutManager_MinContentHeight(t *testing.T) {
	lm := NewLayoutManager(100, 5)

	dims := lm.CalculateFleetTab(1)

	if dims.ContentHeight != 1 {
		t.Errorf("ContentHeight = %d, want 1", dims.ContentHeight)
	}
}

func TestLayoutManager_SetSize(t *testing.T) {
	lm := NewLayoutManager(80, 24)
	lm.SetSize(120, 50)

	if lm.TotalWidth() != 120 {
		t.Errorf("TotalWidth = %d, want 120", lm.TotalWidth())
	}
	if lm.TotalHeight() != 50 {
		t.Errorf("TotalHeight = %d, want 50", lm.TotalHeight())
	}
}
