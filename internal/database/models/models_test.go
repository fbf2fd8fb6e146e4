package models

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"light", CategoryLight},
		{"Ceiling Lights", CategoryLight},
		{"Smart Lock", CategoryLock},
		{"camera", CategoryCamera},
		{"AC", CategoryAC},
		{"security", CategorySecurity},
		{"Security System", CategoryOther},
		{"speaker", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		if got := ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeviceApplyStatus(t *testing.T) {
	tests := []struct {
		category    Category
		active      bool
		wantStatus  string
		wantVariant StatusVariant
	}{
		{CategoryLight, true, "On", VariantDefault},
		{CategoryLight, false, "Off", VariantSecondary},
		{CategoryLock, true, "Locked", VariantDefault},
		{CategoryLock, false, "Unlocked", VariantDestructive},
		{CategoryCamera, true, "Recording", VariantDefault},
		{CategoryCamera, false, "Off", VariantSecondary},
		{CategoryAC, true, "Cooling", VariantDefault},
		{CategoryAC, false, "Off", VariantSecondary},
	}

	for _, tt := range tests {
		d := &Device{Category: tt.category, Active: tt.active, Status: "stale", StatusVariant: VariantDestructive}
		d.ApplyStatus()
		if d.Status != tt.wantStatus || d.StatusVariant != tt.wantVariant {
			t.Errorf("%s active=%v: got %q/%q, want %q/%q",
				tt.category, tt.active, d.Status, d.StatusVariant, tt.wantStatus, tt.wantVariant)
		}
	}
}

func TestDeviceApplyStatus_UnderivedCategoriesUnchanged(t *testing.T) {
	for _, c := range []Category{CategorySecurity, CategoryOther} {
		d := &Device{Category: c, Active: false, Status: "Online", StatusVariant: VariantDefault}
		d.ApplyStatus()
		if d.Status != "Online" || d.StatusVariant != VariantDefault {
			t.Errorf("%s: status changed to %q/%q", c, d.Status, d.StatusVariant)
		}
	}
}

func TestAutomationApplyStatus(t *testing.T) {
	a := &Automation{Active: true}
	a.ApplyStatus()
	if a.Status != AutomationActive {
		t.Fatalf("expected %q, got %q", AutomationActive, a.Status)
	}
	a.Active = false
	a.ApplyStatus()
	if a.Status != AutomationPaused {
		t.Fatalf("expected %q, got %q", AutomationPaused, a.Status)
	}
}
