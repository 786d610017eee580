package main

import "time"

// Field names one piece of binder intake data. The askable fields (the ones
// Quinn prompts for) are a subset; identity is askable only and resolves to
// binderTitle or the homeTeam/awayTeam pair.
type Field string

const (
	FieldIdentity      Field = "identity"
	FieldBinderTitle   Field = "binderTitle"
	FieldHomeTeam      Field = "homeTeam"
	FieldAwayTeam      Field = "awayTeam"
	FieldGameDate      Field = "gameDate"
	FieldGameTime      Field = "gameTime"
	FieldTimezone      Field = "timezone"
	FieldControlRoom   Field = "controlRoom"
	FieldVenue         Field = "venue"
	FieldBroadcastFeed Field = "broadcastFeed"
)

// Confidence is the trust level of a stored field value, totally ordered
// low < medium < high.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// AtLeast reports whether c is at least as trusted as other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

// ValueOrigin says where an incoming field value came from. Conversational
// answers and manual edits are always high confidence and lock the field;
// extracted values carry whatever confidence the extractor assigned and
// never lock.
type ValueOrigin string

const (
	OriginAnswer  ValueOrigin = "answer"
	OriginManual  ValueOrigin = "manual"
	OriginExtract ValueOrigin = "extract"
)

// Conversation states for a draft session.
const (
	StateIdle    = "IDLE"
	StateIntake  = "INTAKE"
	StateClarify = "CLARIFY"
	StateConfirm = "CONFIRM"
	StateCreate  = "CREATE"
)

// Draft is the in-progress binder being assembled conversationally. One
// draft per Slack user per event day; the sqlite row is a durable mirror,
// ownership stays with the active session.
type Draft struct {
	UserID string
	DayKey string
	State  string

	BinderTitle   string
	HomeTeam      string
	AwayTeam      string
	GameDate      string
	GameTime      string
	Timezone      string
	ControlRoom   string
	Venue         string
	BroadcastFeed string

	FieldConfidence map[Field]Confidence
	LockedFields    map[Field]bool
	SkippedFields   map[Field]bool
	AskCounts       map[Field]int

	// PendingField is the askable field the last emitted question targeted;
	// empty outside INTAKE/CLARIFY.
	PendingField Field

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDraft returns an empty draft owned by the given user and day.
func NewDraft(userID, dayKey string) Draft {
	return Draft{
		UserID:          userID,
		DayKey:          dayKey,
		State:           StateIdle,
		FieldConfidence: map[Field]Confidence{},
		LockedFields:    map[Field]bool{},
		SkippedFields:   map[Field]bool{},
		AskCounts:       map[Field]int{},
	}
}

// FieldValue returns the stored value for a value field. Identity is a
// derived field and has no single value of its own.
func (d Draft) FieldValue(f Field) string {
	switch f {
	case FieldBinderTitle:
		return d.BinderTitle
	case FieldHomeTeam:
		return d.HomeTeam
	case FieldAwayTeam:
		return d.AwayTeam
	case FieldGameDate:
		return d.GameDate
	case FieldGameTime:
		return d.GameTime
	case FieldTimezone:
		return d.Timezone
	case FieldControlRoom:
		return d.ControlRoom
	case FieldVenue:
		return d.Venue
	case FieldBroadcastFeed:
		return d.BroadcastFeed
	}
	return ""
}

func (d *Draft) setFieldValue(f Field, value string) {
	switch f {
	case FieldBinderTitle:
		d.BinderTitle = value
	case FieldHomeTeam:
		d.HomeTeam = value
	case FieldAwayTeam:
		d.AwayTeam = value
	case FieldGameDate:
		d.GameDate = value
	case FieldGameTime:
		d.GameTime = value
	case FieldTimezone:
		d.Timezone = value
	case FieldControlRoom:
		d.ControlRoom = value
	case FieldVenue:
		d.Venue = value
	case FieldBroadcastFeed:
		d.BroadcastFeed = value
	}
}

// HasIdentity reports whether the identity gate is satisfied: an explicit
// title, or both team names. A partial team pair is insufficient.
func (d Draft) HasIdentity() bool {
	if d.BinderTitle != "" {
		return true
	}
	return d.HomeTeam != "" && d.AwayTeam != ""
}

// HasMinimumFields reports whether the draft is creation-eligible: identity
// plus a game date. Every other field may stay blank.
func HasMinimumFields(d Draft) bool {
	return d.HasIdentity() && d.GameDate != ""
}

// MissingFields returns the askable fields not yet answered.
func MissingFields(d Draft) map[Field]bool {
	missing := make(map[Field]bool)
	if !d.HasIdentity() {
		missing[FieldIdentity] = true
	}
	for _, f := range []Field{FieldGameDate, FieldGameTime, FieldTimezone, FieldControlRoom, FieldVenue, FieldBroadcastFeed} {
		if d.FieldValue(f) == "" {
			missing[f] = true
		}
	}
	return missing
}

// DisplayTitle is the binder name shown in summaries and on the created
// record: explicit title first, then the matchup.
func (d Draft) DisplayTitle() string {
	if d.BinderTitle != "" {
		return d.BinderTitle
	}
	if d.AwayTeam != "" && d.HomeTeam != "" {
		return d.AwayTeam + " @ " + d.HomeTeam
	}
	return "Untitled binder"
}

// ConversationMessage is one append-only transcript entry for a session.
type ConversationMessage struct {
	ID           int64
	UserID       string
	DayKey       string
	Role         string // "assistant" or "user"
	Text         string
	QuickReplies []string
	CreatedAt    time.Time
}

// Binder is the persisted record produced when a draft is confirmed.
type Binder struct {
	ID            int64
	UserID        string
	Title         string
	HomeTeam      string
	AwayTeam      string
	GameDate      string
	GameTime      string
	Timezone      string
	ControlRoom   string
	Venue         string
	BroadcastFeed string
	CreatedAt     time.Time
}

// DayKey returns the draft key for the given instant: the event day in the
// configured location, e.g. "2026-08-30".
func DayKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}
