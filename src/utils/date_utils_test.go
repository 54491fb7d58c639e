package utils

import "testing"

func TestParseGrainDate(t *testing.T) {
	if _, err := ParseGrainDate("2024-03-01"); err != nil {
		t.Errorf("valid grain date rejected: %v", err)
	}
	for _, bad := range []string{"", "01/03/2024", "2024-3-1", "2024-13-01", "not-a-date"} {
		if _, err := ParseGrainDate(bad); err == nil {
			t.Errorf("ParseGrainDate(%q) should fail", bad)
		}
	}
}

func TestValidateDateRange(t *testing.T) {
	if err := ValidateDateRange("2024-03-01", "2024-03-31"); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}
	if err := ValidateDateRange("2024-03-01", "2024-03-01"); err != nil {
		t.Errorf("single-day range rejected: %v", err)
	}
	if err := ValidateDateRange("2024-03-31", "2024-03-01"); err == nil {
		t.Error("inverted range accepted")
	}
	if err := ValidateDateRange("", "2024-03-01"); err == nil {
		t.Error("missing start accepted")
	}
	if err := ValidateDateRange("2024-03-01", ""); err == nil {
		t.Error("missing end accepted")
	}
}

func TestRoundFloat(t *testing.T) {
	if got := RoundFloat(1.23456789, 2); got != 1.23 {
		t.Errorf("RoundFloat = %v, want 1.23", got)
	}
	if got := RoundFloat(0.4005, 6); got != 0.4005 {
		t.Errorf("RoundFloat = %v, want 0.4005", got)
	}
}
