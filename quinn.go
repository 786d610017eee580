package main

// maxFieldAsks is the hard retry ceiling: a field prompted this many times
// is abandoned, never asked again in the session.
const maxFieldAsks = 2

// skipReply is the universal quick reply appended to every question.
const skipReply = "Skip"

// QuestionDefinition is one immutable question bank entry. Phrasings are
// rotated by ask count so a re-asked field gets alternate wording.
type QuestionDefinition struct {
	Field        Field
	Phrasings    []string
	QuickReplies []string
	SkipText     string
}

// questionBank holds the askable fields in priority order: identity first,
// then date/time/timezone, then location and feed. Array order is priority
// order.
var questionBank = []QuestionDefinition{
	{
		Field: FieldIdentity,
		Phrasings: []string{
			"Which game are we building a binder for? Teams like NYR @ BOS work, or just give me a title.",
			"Let's pin down the matchup — away @ home (e.g. NYR @ BOS), or a plain binder title.",
		},
		QuickReplies: []string{"NYR @ BOS", "TOR @ MTL", "Just a title…"},
		SkipText:     "No problem — we can title the binder later.",
	},
	{
		Field: FieldGameDate,
		Phrasings: []string{
			"What date is the game?",
			"When does this one air? A date like 2026-01-15 works, or just \"today\".",
		},
		QuickReplies: []string{"Today", "Tomorrow"},
		SkipText:     "Okay, leaving the game date open for now.",
	},
	{
		Field: FieldGameTime,
		Phrasings: []string{
			"What time is the broadcast? (puck drop or air time)",
			"Got a start time? Something like 19:00 or 7:30 PM.",
		},
		QuickReplies: []string{"19:00", "19:30", "20:00"},
		SkipText:     "Okay, we'll sort the start time later.",
	},
	{
		Field: FieldTimezone,
		Phrasings: []string{
			"Which timezone is that start time in?",
			"Timezone for the schedule — ET, CT, MT, or PT?",
		},
		QuickReplies: []string{"ET", "CT", "MT", "PT"},
		SkipText:     "Okay, skipping timezone for now.",
	},
	{
		Field: FieldControlRoom,
		Phrasings: []string{
			"Which control room is producing the show?",
			"Where's the show being cut from — a control room or remote?",
		},
		QuickReplies: []string{"CR1", "CR2", "Remote"},
		SkipText:     "Okay, control room left unassigned.",
	},
	{
		Field: FieldVenue,
		Phrasings: []string{
			"What's the venue?",
			"Which building is the game in?",
		},
		QuickReplies: nil,
		SkipText:     "Okay, skipping the venue.",
	},
	{
		Field: FieldBroadcastFeed,
		Phrasings: []string{
			"Which feed is this binder for — home, away, or national?",
			"Last one: whose broadcast is it (home/away/national)?",
		},
		QuickReplies: []string{"Home feed", "Away feed", "National"},
		SkipText:     "Okay, skipping the feed designation.",
	},
}

// QuestionPrompt is the Selector's output: the chosen field, the rendered
// phrasing, and the quick replies to offer.
type QuestionPrompt struct {
	Field        Field
	Text         string
	QuickReplies []string
}

// GetNextQuestion picks the next question in bank priority order, skipping
// fields that are answered, explicitly skipped, or past the retry ceiling.
// Returns nil when no askable field remains — the terminal signal for the
// driver. Pure: incrementing ask counts is the caller's job.
func GetNextQuestion(missing map[Field]bool, askCounts map[Field]int, skipped map[Field]bool) *QuestionPrompt {
	for _, q := range questionBank {
		if !missing[q.Field] || skipped[q.Field] || askCounts[q.Field] >= maxFieldAsks {
			continue
		}
		phrasing := q.Phrasings[askCounts[q.Field]%len(q.Phrasings)]
		replies := make([]string, 0, len(q.QuickReplies)+1)
		replies = append(replies, q.QuickReplies...)
		replies = append(replies, skipReply)
		return &QuestionPrompt{Field: q.Field, Text: phrasing, QuickReplies: replies}
	}
	return nil
}

// GetSkipText returns the field's skip acknowledgement, or a generic line
// for unknown fields.
func GetSkipText(f Field) string {
	for _, q := range questionBank {
		if q.Field == f {
			return q.SkipText
		}
	}
	return "Okay, skipping that one."
}

// bankField returns the bank entry for an askable field name, for slash
// command lookups like /binder ask venue.
func bankField(name string) (QuestionDefinition, bool) {
	for _, q := range questionBank {
		if string(q.Field) == name {
			return q, true
		}
	}
	return QuestionDefinition{}, false
}
