package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartReminderScheduler nudges users with stalled drafts on the configured
// cron schedule and purges drafts older than the TTL. No-op when the schedule
// is empty.
func StartReminderScheduler(cfg Config, db *sql.DB, api *slack.Client) error {
	if cfg.ReminderSchedule == "" {
		log.Println("Reminder scheduler disabled (no schedule configured)")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.ReminderSchedule)
	if err != nil {
		return fmt.Errorf("invalid reminder_schedule %q: %w", cfg.ReminderSchedule, err)
	}

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := schedule.Next(now)
			log.Printf("Next draft reminder run at %s", next.Format(time.RFC3339))
			time.Sleep(time.Until(next))
			runReminderPass(cfg, db, api)
		}
	}()

	log.Printf("Reminder scheduler started schedule=%q ttl=%s", cfg.ReminderSchedule, cfg.DraftTTL())
	return nil
}

func runReminderPass(cfg Config, db *sql.DB, api *slack.Client) {
	purged, err := PurgeDraftsOlderThan(db, time.Now().Add(-cfg.DraftTTL()))
	if err != nil {
		log.Printf("draft purge error: %v", err)
	} else if purged > 0 {
		log.Printf("purged %d expired draft(s)", purged)
	}

	// Anything untouched for an hour but younger than the TTL gets a nudge.
	stale, err := GetStaleDrafts(db, time.Now().Add(-1*time.Hour))
	if err != nil {
		log.Printf("stale draft lookup error: %v", err)
		return
	}
	log.Printf("reminder pass found %d stalled draft(s)", len(stale))

	for _, d := range stale {
		remindDraft(cfg, api, d)
	}
}

func remindDraft(cfg Config, api *slack.Client, d Draft) {
	channel, _, _, err := api.OpenConversation(&slack.OpenConversationParameters{
		Users: []string{d.UserID},
	})
	if err != nil {
		log.Printf("reminder dm open error user=%s: %v", d.UserID, err)
		return
	}

	var msg string
	if HasMinimumFields(d) {
		msg = fmt.Sprintf("Your binder draft *%s* has enough to create — `/binder` to finish it up.", d.DisplayTitle())
	} else {
		msg = "You have a half-finished binder draft sitting around. `/binder` picks it back up, `/binder discard` throws it away."
	}

	_, _, err = api.PostMessage(channel.ID, slack.MsgOptionText(msg, false))
	if err != nil {
		log.Printf("reminder post error user=%s: %v", d.UserID, err)
		return
	}
	log.Printf("reminder sent user=%s day=%s state=%s", d.UserID, d.DayKey, d.State)
}
