package main

import "testing"

func TestApplyFieldValueAnswerLocksField(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")

	d = ApplyFieldValue(d, FieldVenue, "TD Garden", ConfidenceLow, OriginAnswer)
	if d.Venue != "TD Garden" {
		t.Fatalf("expected venue set, got %q", d.Venue)
	}
	if d.FieldConfidence[FieldVenue] != ConfidenceHigh {
		t.Fatalf("answers are forced to high confidence, got %s", d.FieldConfidence[FieldVenue])
	}
	if !d.LockedFields[FieldVenue] {
		t.Fatal("answers should lock the field")
	}
}

func TestApplyFieldValueLockedFieldRejects(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	d = ApplyFieldValue(d, FieldVenue, "TD Garden", ConfidenceHigh, OriginManual)

	out := ApplyFieldValue(d, FieldVenue, "Madison Square Garden", ConfidenceHigh, OriginExtract)
	if out.Venue != "TD Garden" {
		t.Fatalf("locked field should not change, got %q", out.Venue)
	}
}

func TestApplyFieldValueConfidenceMonotonic(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	d = ApplyFieldValue(d, FieldGameTime, "19:00", ConfidenceHigh, OriginExtract)

	// Lower confidence loses.
	out := ApplyFieldValue(d, FieldGameTime, "20:00", ConfidenceMedium, OriginExtract)
	if out.GameTime != "19:00" {
		t.Fatalf("lower-confidence value should be rejected, got %q", out.GameTime)
	}

	// Ties go to the newest value.
	out = ApplyFieldValue(d, FieldGameTime, "20:00", ConfidenceHigh, OriginExtract)
	if out.GameTime != "20:00" {
		t.Fatalf("equal-confidence value should win, got %q", out.GameTime)
	}

	// Higher confidence upgrades.
	d2 := ApplyFieldValue(NewDraft("U1", "2026-01-15"), FieldGameTime, "19:00", ConfidenceLow, OriginExtract)
	out = ApplyFieldValue(d2, FieldGameTime, "19:30", ConfidenceMedium, OriginExtract)
	if out.GameTime != "19:30" || out.FieldConfidence[FieldGameTime] != ConfidenceMedium {
		t.Fatalf("higher-confidence value should apply, got %q (%s)", out.GameTime, out.FieldConfidence[FieldGameTime])
	}
}

func TestApplyFieldValueExtractNeverLocks(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	d = ApplyFieldValue(d, FieldVenue, "TD Garden", ConfidenceHigh, OriginExtract)
	if d.LockedFields[FieldVenue] {
		t.Fatal("extracted values must not lock the field")
	}

	// A later answer can still overwrite it.
	d = ApplyFieldValue(d, FieldVenue, "Bell Centre", ConfidenceHigh, OriginAnswer)
	if d.Venue != "Bell Centre" || !d.LockedFields[FieldVenue] {
		t.Fatalf("answer should overwrite and lock, got %q locked=%v", d.Venue, d.LockedFields[FieldVenue])
	}
}

func TestApplyFieldValueDoesNotMutateInput(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	out := ApplyFieldValue(d, FieldVenue, "TD Garden", ConfidenceHigh, OriginAnswer)

	if d.Venue != "" || len(d.FieldConfidence) != 0 || len(d.LockedFields) != 0 {
		t.Fatalf("input draft was mutated: %+v", d)
	}
	out.FieldConfidence[FieldGameDate] = ConfidenceLow
	if _, ok := d.FieldConfidence[FieldGameDate]; ok {
		t.Fatal("output shares map storage with input")
	}
}

func TestOverrideFieldReplacesLockedValue(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	d = ApplyFieldValue(d, FieldVenue, "TD Garden", ConfidenceHigh, OriginAnswer)
	if !d.LockedFields[FieldVenue] {
		t.Fatal("answer should lock the field")
	}

	d = OverrideField(d, FieldVenue, "Madison Square Garden")
	if d.Venue != "Madison Square Garden" {
		t.Fatalf("user edit must replace a locked value, got %q", d.Venue)
	}
	if !d.LockedFields[FieldVenue] {
		t.Fatal("field should come out locked again")
	}
	if d.FieldConfidence[FieldVenue] != ConfidenceHigh {
		t.Fatalf("manual edit confidence = %s", d.FieldConfidence[FieldVenue])
	}

	// Automated merges still bounce off the re-locked field.
	out := ApplyFieldValue(d, FieldVenue, "Bell Centre", ConfidenceHigh, OriginExtract)
	if out.Venue != "Madison Square Garden" {
		t.Fatalf("extract overwrote a locked field: %q", out.Venue)
	}
}

func TestSkipAndReopenField(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")

	d = SkipField(d, FieldVenue)
	if !d.SkippedFields[FieldVenue] {
		t.Fatal("expected venue in skip set")
	}

	d = ReopenField(d, FieldVenue)
	if d.SkippedFields[FieldVenue] {
		t.Fatal("expected venue cleared from skip set")
	}
}

func TestReopenFieldKeepsAskCounts(t *testing.T) {
	d := NewDraft("U1", "2026-01-15")
	d.AskCounts[FieldVenue] = maxFieldAsks
	d = SkipField(d, FieldVenue)

	d = ReopenField(d, FieldVenue)
	if d.AskCounts[FieldVenue] != maxFieldAsks {
		t.Fatalf("reopening must not reset ask counts, got %d", d.AskCounts[FieldVenue])
	}
	// The ceiling still binds: the selector will not offer the field.
	if prompt := GetNextQuestion(MissingFields(d), d.AskCounts, d.SkippedFields); prompt != nil && prompt.Field == FieldVenue {
		t.Fatal("reopened field past the ceiling was offered again")
	}
}
