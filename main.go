package main

import (
	"log"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer db.Close()

	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))

	if err := StartReminderScheduler(cfg, db, api); err != nil {
		log.Fatalf("Reminder scheduler error: %v", err)
	}

	log.Printf("Starting binder bot for %s (llm=%s db=%s)", cfg.ProductionName, cfg.LLMProvider, cfg.DBPath)
	if err := StartSlackBot(cfg, db, api); err != nil {
		log.Fatalf("Slack bot error: %v", err)
	}
}
