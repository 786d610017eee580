package main

import (
	"testing"
	"time"
)

func TestHasMinimumFields(t *testing.T) {
	cases := []struct {
		name  string
		setup func(d *Draft)
		want  bool
	}{
		{"empty draft", func(d *Draft) {}, false},
		{"title only", func(d *Draft) { d.BinderTitle = "Opening Night" }, false},
		{"date only", func(d *Draft) { d.GameDate = "2026-01-15" }, false},
		{"title and date", func(d *Draft) {
			d.BinderTitle = "Opening Night"
			d.GameDate = "2026-01-15"
		}, true},
		{"teams and date", func(d *Draft) {
			d.HomeTeam = "BOS"
			d.AwayTeam = "NYR"
			d.GameDate = "2026-01-15"
		}, true},
		{"partial team pair and date", func(d *Draft) {
			d.HomeTeam = "BOS"
			d.GameDate = "2026-01-15"
		}, false},
	}

	for _, tc := range cases {
		d := NewDraft("U1", "2026-01-15")
		tc.setup(&d)
		if got := HasMinimumFields(d); got != tc.want {
			t.Fatalf("%s: HasMinimumFields = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMissingFieldsIdentityDerived(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	missing := MissingFields(d)
	if !missing[FieldIdentity] {
		t.Fatal("empty draft should be missing identity")
	}

	d.HomeTeam = "BOS"
	if m := MissingFields(d); !m[FieldIdentity] {
		t.Fatal("one team alone does not satisfy identity")
	}

	d.AwayTeam = "NYR"
	if m := MissingFields(d); m[FieldIdentity] {
		t.Fatal("both teams should satisfy identity")
	}

	d2 := NewDraft("U1", "2026-01-15")
	d2.BinderTitle = "Opening Night"
	if m := MissingFields(d2); m[FieldIdentity] {
		t.Fatal("a title should satisfy identity")
	}
}

func TestDisplayTitle(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	if d.DisplayTitle() != "Untitled binder" {
		t.Fatalf("empty draft title = %q", d.DisplayTitle())
	}

	d.HomeTeam = "BOS"
	d.AwayTeam = "NYR"
	if d.DisplayTitle() != "NYR @ BOS" {
		t.Fatalf("matchup title = %q, want NYR @ BOS", d.DisplayTitle())
	}

	d.BinderTitle = "Opening Night"
	if d.DisplayTitle() != "Opening Night" {
		t.Fatalf("explicit title should win, got %q", d.DisplayTitle())
	}
}

func TestDayKey(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	// 3am UTC on the 16th is still the evening of the 15th in New York.
	instant := time.Date(2026, 1, 16, 3, 0, 0, 0, time.UTC)
	if got := DayKey(instant, ny); got != "2026-01-15" {
		t.Fatalf("DayKey = %q, want 2026-01-15", got)
	}
	if got := DayKey(instant, time.UTC); got != "2026-01-16" {
		t.Fatalf("DayKey UTC = %q, want 2026-01-16", got)
	}
}

func TestConfidenceOrdering(t *testing.T) {
	if !ConfidenceHigh.AtLeast(ConfidenceMedium) || !ConfidenceMedium.AtLeast(ConfidenceLow) {
		t.Fatal("confidence ordering broken")
	}
	if ConfidenceLow.AtLeast(ConfidenceMedium) {
		t.Fatal("low should not satisfy medium")
	}
	if !ConfidenceHigh.AtLeast(ConfidenceHigh) {
		t.Fatal("AtLeast must be reflexive")
	}
}
