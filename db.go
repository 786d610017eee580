package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		user_id          TEXT NOT NULL,
		day_key          TEXT NOT NULL,
		state            TEXT NOT NULL DEFAULT 'IDLE',
		binder_title     TEXT DEFAULT '',
		home_team        TEXT DEFAULT '',
		away_team        TEXT DEFAULT '',
		game_date        TEXT DEFAULT '',
		game_time        TEXT DEFAULT '',
		timezone         TEXT DEFAULT '',
		control_room     TEXT DEFAULT '',
		venue            TEXT DEFAULT '',
		broadcast_feed   TEXT DEFAULT '',
		field_confidence TEXT DEFAULT '{}',
		locked_fields    TEXT DEFAULT '',
		skipped_fields   TEXT DEFAULT '',
		ask_counts       TEXT DEFAULT '{}',
		pending_field    TEXT DEFAULT '',
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, day_key)
	);
	CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts(updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id       TEXT NOT NULL,
		day_key       TEXT NOT NULL,
		role          TEXT NOT NULL,
		text          TEXT NOT NULL,
		quick_replies TEXT DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user_day ON messages(user_id, day_key);

	CREATE TABLE IF NOT EXISTS binders (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        TEXT NOT NULL,
		title          TEXT NOT NULL,
		home_team      TEXT DEFAULT '',
		away_team      TEXT DEFAULT '',
		game_date      TEXT DEFAULT '',
		game_time      TEXT DEFAULT '',
		timezone       TEXT DEFAULT '',
		control_room   TEXT DEFAULT '',
		venue          TEXT DEFAULT '',
		broadcast_feed TEXT DEFAULT '',
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_binders_user ON binders(user_id);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	// Migration: add pending_field column if missing (pre-CLARIFY schema).
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('drafts') WHERE name = 'pending_field'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE drafts ADD COLUMN pending_field TEXT DEFAULT ''`)
	}

	return db, nil
}

// --- Drafts ---

func UpsertDraft(db *sql.DB, d Draft) error {
	confJSON, err := marshalConfidence(d.FieldConfidence)
	if err != nil {
		return err
	}
	asksJSON, err := marshalAskCounts(d.AskCounts)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO drafts
		 (user_id, day_key, state, binder_title, home_team, away_team, game_date, game_time, timezone,
		  control_room, venue, broadcast_feed, field_confidence, locked_fields, skipped_fields, ask_counts,
		  pending_field, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id, day_key) DO UPDATE SET
		   state = excluded.state,
		   binder_title = excluded.binder_title,
		   home_team = excluded.home_team,
		   away_team = excluded.away_team,
		   game_date = excluded.game_date,
		   game_time = excluded.game_time,
		   timezone = excluded.timezone,
		   control_room = excluded.control_room,
		   venue = excluded.venue,
		   broadcast_feed = excluded.broadcast_feed,
		   field_confidence = excluded.field_confidence,
		   locked_fields = excluded.locked_fields,
		   skipped_fields = excluded.skipped_fields,
		   ask_counts = excluded.ask_counts,
		   pending_field = excluded.pending_field,
		   updated_at = CURRENT_TIMESTAMP`,
		d.UserID, d.DayKey, d.State, d.BinderTitle, d.HomeTeam, d.AwayTeam, d.GameDate, d.GameTime,
		d.Timezone, d.ControlRoom, d.Venue, d.BroadcastFeed,
		confJSON, joinFieldSet(d.LockedFields), joinFieldSet(d.SkippedFields), asksJSON,
		string(d.PendingField),
	)
	return err
}

func GetDraft(db *sql.DB, userID, dayKey string) (Draft, bool, error) {
	var d Draft
	var confJSON, locked, skipped, asksJSON, pending string
	err := db.QueryRow(
		`SELECT user_id, day_key, state, binder_title, home_team, away_team, game_date, game_time, timezone,
		        control_room, venue, broadcast_feed, field_confidence, locked_fields, skipped_fields, ask_counts,
		        pending_field, created_at, updated_at
		 FROM drafts WHERE user_id = ? AND day_key = ?`,
		userID, dayKey,
	).Scan(
		&d.UserID, &d.DayKey, &d.State, &d.BinderTitle, &d.HomeTeam, &d.AwayTeam, &d.GameDate, &d.GameTime,
		&d.Timezone, &d.ControlRoom, &d.Venue, &d.BroadcastFeed,
		&confJSON, &locked, &skipped, &asksJSON, &pending, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Draft{}, false, nil
	}
	if err != nil {
		return Draft{}, false, err
	}

	if d.FieldConfidence, err = unmarshalConfidence(confJSON); err != nil {
		return Draft{}, false, fmt.Errorf("draft %s/%s field_confidence: %w", userID, dayKey, err)
	}
	if d.AskCounts, err = unmarshalAskCounts(asksJSON); err != nil {
		return Draft{}, false, fmt.Errorf("draft %s/%s ask_counts: %w", userID, dayKey, err)
	}
	d.LockedFields = splitFieldSet(locked)
	d.SkippedFields = splitFieldSet(skipped)
	d.PendingField = Field(pending)
	return d, true, nil
}

func DeleteDraft(db *sql.DB, userID, dayKey string) error {
	_, err := db.Exec(`DELETE FROM drafts WHERE user_id = ? AND day_key = ?`, userID, dayKey)
	return err
}

// sqliteTime renders a cutoff the way CURRENT_TIMESTAMP stores it:
// offset-less UTC text. Binding a raw time.Time would carry a zone suffix
// and skew lexicographic comparisons by the host offset.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// GetStaleDrafts returns unfinished drafts not touched since the cutoff,
// for the reminder scheduler.
func GetStaleDrafts(db *sql.DB, cutoff time.Time) ([]Draft, error) {
	rows, err := db.Query(
		`SELECT user_id, day_key FROM drafts
		 WHERE updated_at < ? AND state NOT IN (?, ?)
		 ORDER BY updated_at ASC`,
		sqliteTime(cutoff), StateCreate, StateIdle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Draft
	for rows.Next() {
		var userID, dayKey string
		if err := rows.Scan(&userID, &dayKey); err != nil {
			return nil, err
		}
		keys = append(keys, Draft{UserID: userID, DayKey: dayKey})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Draft
	for _, k := range keys {
		d, ok, err := GetDraft(db, k.UserID, k.DayKey)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// PurgeDraftsOlderThan deletes drafts (and their transcripts) not touched
// since the cutoff. Returns the number of drafts removed.
func PurgeDraftsOlderThan(db *sql.DB, cutoff time.Time) (int, error) {
	rows, err := db.Query(`SELECT user_id, day_key FROM drafts WHERE updated_at < ?`, sqliteTime(cutoff))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type key struct{ userID, dayKey string }
	var expired []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.userID, &k.dayKey); err != nil {
			return 0, err
		}
		expired = append(expired, k)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	purged := 0
	for _, k := range expired {
		if err := ClearMessages(db, k.userID, k.dayKey); err != nil {
			return purged, err
		}
		if err := DeleteDraft(db, k.userID, k.dayKey); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

// --- Messages ---

func InsertMessage(db *sql.DB, m ConversationMessage) error {
	_, err := db.Exec(
		`INSERT INTO messages (user_id, day_key, role, text, quick_replies) VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.DayKey, m.Role, m.Text, strings.Join(m.QuickReplies, "|"),
	)
	return err
}

func GetMessages(db *sql.DB, userID, dayKey string) ([]ConversationMessage, error) {
	rows, err := db.Query(
		`SELECT id, user_id, day_key, role, text, quick_replies, created_at
		 FROM messages WHERE user_id = ? AND day_key = ? ORDER BY id`,
		userID, dayKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		var replies string
		if err := rows.Scan(&m.ID, &m.UserID, &m.DayKey, &m.Role, &m.Text, &replies, &m.CreatedAt); err != nil {
			return nil, err
		}
		if replies != "" {
			m.QuickReplies = strings.Split(replies, "|")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func ClearMessages(db *sql.DB, userID, dayKey string) error {
	_, err := db.Exec(`DELETE FROM messages WHERE user_id = ? AND day_key = ?`, userID, dayKey)
	return err
}

// --- Binders ---

func InsertBinder(db *sql.DB, b Binder) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO binders (user_id, title, home_team, away_team, game_date, game_time, timezone, control_room, venue, broadcast_feed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Title, b.HomeTeam, b.AwayTeam, b.GameDate, b.GameTime, b.Timezone, b.ControlRoom, b.Venue, b.BroadcastFeed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetBindersByUser(db *sql.DB, userID string, limit int) ([]Binder, error) {
	rows, err := db.Query(
		`SELECT id, user_id, title, home_team, away_team, game_date, game_time, timezone, control_room, venue, broadcast_feed, created_at
		 FROM binders WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Binder
	for rows.Next() {
		var b Binder
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.HomeTeam, &b.AwayTeam, &b.GameDate, &b.GameTime,
			&b.Timezone, &b.ControlRoom, &b.Venue, &b.BroadcastFeed, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Column encoding helpers ---

func marshalConfidence(m map[Field]Confidence) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalConfidence(s string) (map[Field]Confidence, error) {
	out := map[Field]Confidence{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalAskCounts(m map[Field]int) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalAskCounts(s string) (map[Field]int, error) {
	out := map[Field]int{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Field sets are stored comma-separated, e.g. "gameDate,venue".
func joinFieldSet(set map[Field]bool) string {
	if len(set) == 0 {
		return ""
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	return strings.Join(fields, ",")
}

func splitFieldSet(s string) map[Field]bool {
	out := map[Field]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out[Field(part)] = true
		}
	}
	return out
}
