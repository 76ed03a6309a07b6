package timenorm

import "testing"

func TestNormalizeSlashDate(t *testing.T) {
	c := Normalize("14/08/2025", "11:00")
	if c.Date != "14/08/2025" {
		t.Fatalf("Date = %q, want 14/08/2025", c.Date)
	}
	if c.Time != "11:00" {
		t.Fatalf("Time = %q, want 11:00", c.Time)
	}
	if c.Timestamp.Hour() != 11 || c.Timestamp.Minute() != 0 {
		t.Fatalf("unexpected timestamp: %v", c.Timestamp)
	}
}

func TestNormalizeISODateAndLongTime(t *testing.T) {
	c := Normalize("2025-08-14", "11:00:30")
	if c.Date != "14/08/2025" {
		t.Fatalf("Date = %q, want 14/08/2025", c.Date)
	}
	if c.Timestamp.Second() != 30 {
		t.Fatalf("expected seconds preserved, got %v", c.Timestamp)
	}
}

func TestNormalizeFallsBackToNow(t *testing.T) {
	c := Normalize("", "")
	if c.Date == "" || c.Time == "" {
		t.Fatal("expected a canonical date/time even with no input")
	}
	if c.Timestamp.Location() != FixedOffset {
		t.Fatal("expected timestamp to use the fixed +05:30 offset")
	}
}

func TestNormalizeUnparseableInputsFallBack(t *testing.T) {
	c := Normalize("not-a-date", "not-a-time")
	if c.Date == "" || c.Time == "" {
		t.Fatal("expected fallback canonical values for garbage input")
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	// A smattering of malformed/edge inputs must never panic and must
	// always return a non-zero timestamp.
	inputs := [][2]string{
		{"31/02/2025", "25:99"},
		{"2025/08/14", "11-00"},
		{"", "11:00"},
		{"14/08/2025", ""},
	}
	for _, in := range inputs {
		c := Normalize(in[0], in[1])
		if c.Timestamp.IsZero() {
			t.Fatalf("Normalize(%q, %q) produced a zero timestamp", in[0], in[1])
		}
	}
}
