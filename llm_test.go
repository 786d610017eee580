package main

import (
	"strings"
	"testing"
)

func TestParseExtractionResponse(t *testing.T) {
	response := `[
		{"field": "homeTeam", "value": "BOS", "confidence": 0.92},
		{"field": "awayTeam", "value": "NYR", "confidence": 0.92},
		{"field": "gameDate", "value": "2026-01-15", "confidence": 0.7},
		{"field": "venue", "value": "TD Garden", "confidence": 0.4}
	]`

	fields, err := parseExtractionResponse(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(fields))
	}
	if fields[0].Field != FieldHomeTeam || fields[0].Value != "BOS" || fields[0].Confidence != ConfidenceHigh {
		t.Fatalf("homeTeam = %+v", fields[0])
	}
	if fields[2].Confidence != ConfidenceMedium {
		t.Fatalf("0.7 should map to medium, got %s", fields[2].Confidence)
	}
	if fields[3].Confidence != ConfidenceLow {
		t.Fatalf("0.4 should map to low, got %s", fields[3].Confidence)
	}
}

func TestParseExtractionResponseStripsCodeFences(t *testing.T) {
	response := "```json\n[{\"field\": \"venue\", \"value\": \"TD Garden\", \"confidence\": 0.9}]\n```"
	fields, err := parseExtractionResponse(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 1 || fields[0].Field != FieldVenue {
		t.Fatalf("got %+v", fields)
	}
}

func TestParseExtractionResponseFiltersJunk(t *testing.T) {
	response := `[
		{"field": "venue", "value": "TD Garden", "confidence": 0.9},
		{"field": "producerMood", "value": "tense", "confidence": 0.9},
		{"field": "gameDate", "value": "", "confidence": 0.9}
	]`
	fields, err := parseExtractionResponse(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 1 || fields[0].Field != FieldVenue {
		t.Fatalf("unknown fields and empty values should be dropped, got %+v", fields)
	}
}

func TestParseExtractionResponseMalformed(t *testing.T) {
	_, err := parseExtractionResponse("Sure! Here are the fields I found:")
	if err == nil {
		t.Fatal("expected an error for non-JSON output")
	}
}

func TestParseExtractionResponseTruncatesErrorDetail(t *testing.T) {
	long := strings.Repeat("x", 2000)
	_, err := parseExtractionResponse(long)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "[truncated, total_length=2000]") {
		t.Fatalf("error should carry truncation marker, got: %v", err)
	}
}

func TestConfidenceFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  Confidence
	}{
		{0.95, ConfidenceHigh},
		{0.85, ConfidenceHigh},
		{0.84, ConfidenceMedium},
		{0.55, ConfidenceMedium},
		{0.54, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tc := range cases {
		if got := confidenceFromScore(tc.score); got != tc.want {
			t.Fatalf("score %.2f: got %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestBuildExtractionPromptsNamesEveryField(t *testing.T) {
	system, user := buildExtractionPrompts("NYR at BOS tomorrow, 7pm ET, TD Garden")
	for _, f := range extractableFields {
		if !strings.Contains(system, string(f.Field)) {
			t.Fatalf("system prompt missing field %s", f.Field)
		}
	}
	if !strings.Contains(user, "TD Garden") {
		t.Fatal("user prompt should carry the input text")
	}
}

func TestLLMUsageAccounting(t *testing.T) {
	u := LLMUsage{InputTokens: 100, OutputTokens: 20}
	u.Add(LLMUsage{InputTokens: 50, OutputTokens: 5, CacheReadInputTokens: 30})
	if u.TotalTokens() != 175 {
		t.Fatalf("TotalTokens = %d", u.TotalTokens())
	}
	if u.CacheReadInputTokens != 30 {
		t.Fatalf("cache read tokens = %d", u.CacheReadInputTokens)
	}
}
