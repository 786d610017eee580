package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const (
	actionQuickReply     = "quinn_quick_reply"
	actionSkipField      = "quinn_skip_field"
	actionConfirmCreate  = "quinn_confirm_create"
	actionConfirmEdit    = "quinn_confirm_edit"
	actionConfirmDiscard = "quinn_confirm_discard"

	roleAssistant = "assistant"
	roleUser      = "user"

	// Quick reply that asks for a plain title instead of a matchup.
	titleHelperReply = "Just a title…"
)

func StartSlackBot(cfg Config, db *sql.DB, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, cmd)
			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go handleEventsAPI(api, db, cfg, eventsAPIEvent)
			case socketmode.EventTypeInteractive:
				client.Ack(*evt.Request)
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				go handleInteraction(api, db, cfg, callback)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/binder", "/quinn":
		handleBinderCommand(api, db, cfg, cmd)
	case "/help":
		handleHelp(api, cfg, cmd)
	}
}

func handleBinderCommand(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	sub, rest := splitSubcommand(cmd.Text)
	switch sub {
	case "", "start", "resume":
		handleBinderStart(api, db, cfg, cmd.UserID, cmd.ChannelID)
	case "status":
		handleBinderStatus(api, db, cfg, cmd)
	case "ask":
		handleBinderAsk(api, db, cfg, cmd, rest)
	case "set":
		handleBinderSet(api, db, cfg, cmd, rest)
	case "import":
		handleBinderImport(api, db, cfg, cmd, rest)
	case "discard":
		handleBinderDiscard(api, db, cfg, cmd)
	case "list":
		handleBinderList(api, db, cfg, cmd)
	default:
		postEphemeral(api, cmd, "Unknown subcommand. Try `/binder`, `/binder status`, `/binder ask <field>`, `/binder set <field> <value>`, `/binder import <text>`, `/binder discard`, or `/binder list`.")
	}
}

func splitSubcommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	parts := strings.SplitN(text, " ", 2)
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return strings.ToLower(parts[0]), rest
}

func handleEventsAPI(api *slack.Client, db *sql.DB, cfg Config, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		handleDirectMessage(api, db, cfg, ev)
	case *slackevents.MemberJoinedChannelEvent:
		handleMemberJoined(api, cfg, ev)
	}
}

func handleMemberJoined(api *slack.Client, cfg Config, ev *slackevents.MemberJoinedChannelEvent) {
	if cfg.IntakeChannelID != "" && ev.Channel != cfg.IntakeChannelID {
		return
	}
	log.Printf("member-joined user=%s channel=%s", ev.User, ev.Channel)

	intro := fmt.Sprintf("Welcome to %s! I'm Quinn — I build the operations binder for each broadcast.\n\n"+
		"Here's how to get started:\n"+
		"• `/binder` — Start (or resume) today's binder; I'll ask a few quick questions\n"+
		"• `/binder import <pasted email>` — Let me pull details out of a rundown email\n"+
		"• `/help` — See all available commands\n\n"+
		"You can answer with the suggested buttons, free text, or Skip anything you don't know yet.",
		cfg.ProductionName,
	)

	_, _, err := api.PostMessage(ev.Channel,
		slack.MsgOptionText(intro, false),
		slack.MsgOptionPostEphemeral(ev.User),
	)
	if err != nil {
		log.Printf("member-joined intro error user=%s channel=%s: %v", ev.User, ev.Channel, err)
	}
}

// handleDirectMessage routes DM free text into the active intake session.
func handleDirectMessage(api *slack.Client, db *sql.DB, cfg Config, ev *slackevents.MessageEvent) {
	if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" || ev.User == "" {
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}
	handleUserAnswer(api, db, cfg, ev.User, ev.Channel, text)
}

// --- Intake flow ---

func handleBinderStart(api *slack.Client, db *sql.DB, cfg Config, userID, channelID string) {
	d, found, err := GetDraft(db, userID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postEphemeralTo(api, channelID, userID, fmt.Sprintf("Error loading draft: %v", err))
		log.Printf("binder-start load error user=%s: %v", userID, err)
		return
	}
	if !found {
		d = NewDraft(userID, DayKey(time.Now(), cfg.Location))
	}

	dm, err := openDM(api, userID)
	if err != nil {
		postEphemeralTo(api, channelID, userID, "Error opening a DM — check bot permissions.")
		log.Printf("binder-start dm error user=%s: %v", userID, err)
		return
	}

	switch d.State {
	case StateConfirm:
		presentConfirm(api, db, cfg, d, dm)
	case StateIntake, StateClarify:
		postText(api, dm, "Picking up where we left off.")
		askNextQuestion(api, db, cfg, d, dm)
	default:
		d.State = StateIntake
		postText(api, dm, fmt.Sprintf("Let's build tonight's binder for %s. Skip anything you don't know yet.", cfg.ProductionName))
		askNextQuestion(api, db, cfg, d, dm)
	}
	if channelID != dm {
		postEphemeralTo(api, channelID, userID, "Check your DMs — Quinn is ready.")
	}
	log.Printf("binder-start user=%s state=%s", userID, d.State)
}

// askNextQuestion asks the Selector for the next prompt and emits it. A nil
// prompt is the terminal signal: confirm when the draft is creation-eligible,
// otherwise stay in INTAKE and point at the escape hatches.
func askNextQuestion(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID string) {
	prompt := GetNextQuestion(MissingFields(d), d.AskCounts, d.SkippedFields)
	if prompt == nil {
		if HasMinimumFields(d) {
			presentConfirm(api, db, cfg, d, channelID)
			return
		}
		d = cloneDraft(d)
		d.State = StateIntake
		d.PendingField = ""
		if err := UpsertDraft(db, d); err != nil {
			log.Printf("ask-next save error user=%s: %v", d.UserID, err)
		}
		msg := "That's everything I can ask, but the binder still needs a matchup (or title) and a game date.\n" +
			"Use `/binder ask <field>` to revisit a skipped question, or `/binder set <field> <value>` to fill one in directly."
		postText(api, channelID, msg)
		recordAssistant(db, d, msg, nil)
		log.Printf("intake stuck user=%s missing-minimum", d.UserID)
		return
	}
	emitQuestion(api, db, cfg, d, channelID, *prompt, StateIntake, "")
}

// emitQuestion posts a question with its quick replies, counts the ask, and
// saves the draft. prefix carries clarify copy when re-asking.
func emitQuestion(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID string, prompt QuestionPrompt, state, prefix string) {
	d = cloneDraft(d)
	d.AskCounts[prompt.Field]++
	d.PendingField = prompt.Field
	d.State = state
	if err := UpsertDraft(db, d); err != nil {
		postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
		log.Printf("emit-question save error user=%s field=%s: %v", d.UserID, prompt.Field, err)
		return
	}

	text := prompt.Text
	if prefix != "" {
		text = prefix + "\n" + text
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
	}
	var buttons []slack.BlockElement
	for _, reply := range prompt.QuickReplies {
		actionID := actionQuickReply
		if reply == skipReply {
			actionID = actionSkipField
		}
		buttons = append(buttons, slack.NewButtonBlockElement(
			actionID,
			reply,
			slack.NewTextBlockObject(slack.PlainTextType, reply, false, false),
		))
	}
	if len(buttons) > 0 {
		blocks = append(blocks, slack.NewActionBlock("quinn_replies_"+string(prompt.Field), buttons...))
	}

	if _, _, err := api.PostMessage(channelID, slack.MsgOptionBlocks(blocks...)); err != nil {
		log.Printf("emit-question post error user=%s field=%s: %v", d.UserID, prompt.Field, err)
		postText(api, channelID, text)
	}
	recordAssistant(db, d, text, prompt.QuickReplies)
	log.Printf("question asked user=%s field=%s ask_count=%d state=%s", d.UserID, prompt.Field, d.AskCounts[prompt.Field], state)
}

// handleUserAnswer consumes one user turn: a DM line or a quick-reply click.
func handleUserAnswer(api *slack.Client, db *sql.DB, cfg Config, userID, channelID, text string) {
	d, found, err := GetDraft(db, userID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postText(api, channelID, fmt.Sprintf("Error loading draft: %v", err))
		log.Printf("answer load error user=%s: %v", userID, err)
		return
	}
	if !found || d.State == StateIdle {
		postText(api, channelID, "No active binder session — start one with `/binder`.")
		return
	}

	recordUser(db, d, text)

	if d.State == StateConfirm {
		switch strings.ToLower(text) {
		case "yes", "create", "confirm", "ship it":
			createBinder(api, db, cfg, d, channelID)
		case "no", "edit", "keep editing":
			resumeEditing(api, db, cfg, d, channelID)
		case "discard":
			discardDraft(api, db, d, channelID)
		default:
			postText(api, channelID, "The draft is waiting for confirmation — use the buttons, or reply `create`, `edit`, or `discard`.")
		}
		return
	}

	if d.PendingField == "" {
		postText(api, channelID, "I wasn't expecting an answer just now — `/binder` resumes the questions.")
		return
	}

	if strings.EqualFold(text, skipReply) {
		skipPendingField(api, db, cfg, d, channelID)
		return
	}
	if d.PendingField == FieldIdentity && text == titleHelperReply {
		postText(api, channelID, "Sure — type the binder title.")
		return
	}

	answers, parseErr := ParseAnswer(d.PendingField, text, time.Now().In(cfg.Location))
	if parseErr != nil {
		handleUnparsedAnswer(api, db, cfg, d, channelID, text, parseErr)
		return
	}

	hadMinimum := HasMinimumFields(d)
	for _, a := range answers {
		d = ApplyFieldValue(d, a.Field, a.Value, ConfidenceHigh, OriginAnswer)
	}
	d = cloneDraft(d)
	d.PendingField = ""
	d.State = StateIntake
	if err := UpsertDraft(db, d); err != nil {
		postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
		log.Printf("answer save error user=%s: %v", userID, err)
		return
	}
	log.Printf("answer applied user=%s fields=%d", userID, len(answers))

	if !hadMinimum && HasMinimumFields(d) {
		presentConfirm(api, db, cfg, d, channelID)
		return
	}
	askNextQuestion(api, db, cfg, d, channelID)
}

// handleUnparsedAnswer runs the extraction fallback, then clarifies. The
// clarify re-ask consumes an ask-count slot; a field past the ceiling is
// abandoned rather than asked a third time.
func handleUnparsedAnswer(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID, text string, parseErr error) {
	log.Printf("answer parse failed user=%s field=%s: %v", d.UserID, d.PendingField, parseErr)

	extracted, usage, err := ExtractFields(context.Background(), cfg, text)
	if err != nil {
		log.Printf("extract fallback error (non-fatal) user=%s: %v", d.UserID, err)
	}
	hadMinimum := HasMinimumFields(d)
	if applied := applyExtractedForField(&d, d.PendingField, extracted); len(applied) > 0 {
		d = cloneDraft(d)
		d.PendingField = ""
		d.State = StateIntake
		if err := UpsertDraft(db, d); err != nil {
			postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
			return
		}
		msg := "I read that as " + strings.Join(applied, ", ") + "."
		postText(api, channelID, msg)
		recordAssistant(db, d, msg, nil)
		log.Printf("extract fallback applied user=%s fields=%d tokens=%d", d.UserID, len(applied), usage.TotalTokens())
		if !hadMinimum && HasMinimumFields(d) {
			presentConfirm(api, db, cfg, d, channelID)
			return
		}
		askNextQuestion(api, db, cfg, d, channelID)
		return
	}

	field := d.PendingField
	plan := planClarify(d)
	if plan.Abandon {
		d = cloneDraft(d)
		d.PendingField = ""
		d.State = StateIntake
		if err := UpsertDraft(db, d); err != nil {
			postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
			return
		}
		msg := fmt.Sprintf("We'll come back to %s — you can fill it in later with `/binder set %s <value>`.", field, field)
		postText(api, channelID, msg)
		recordAssistant(db, d, msg, nil)
		log.Printf("field abandoned user=%s field=%s ask_count=%d", d.UserID, field, d.AskCounts[field])
		askNextQuestion(api, db, cfg, d, channelID)
		return
	}
	emitQuestion(api, db, cfg, d, channelID, plan.Prompt, StateClarify, clarifyText(field))
}

// clarifyPlan is the outcome of a failed parse on the pending field: either
// re-ask with the rotated phrasing, or give up on the field for the session.
type clarifyPlan struct {
	Abandon bool
	Prompt  QuestionPrompt
}

// planClarify decides the CLARIFY follow-up for the draft's pending field.
// A field at the ask-count ceiling is abandoned rather than asked again;
// otherwise the question re-emits with the next phrasing in the rotation.
func planClarify(d Draft) clarifyPlan {
	field := d.PendingField
	q, ok := bankField(string(field))
	if !ok || d.AskCounts[field] >= maxFieldAsks {
		return clarifyPlan{Abandon: true}
	}
	return clarifyPlan{
		Prompt: QuestionPrompt{
			Field:        field,
			Text:         q.Phrasings[d.AskCounts[field]%len(q.Phrasings)],
			QuickReplies: append(append([]string{}, q.QuickReplies...), skipReply),
		},
	}
}

// applyExtractedForField merges extracted values belonging to the pending
// askable field through the reconciler. Returns "field=value" strings for
// the values that actually landed.
func applyExtractedForField(d *Draft, pending Field, extracted []ExtractedField) []string {
	targets := map[Field]bool{pending: true}
	if pending == FieldIdentity {
		targets = map[Field]bool{FieldBinderTitle: true, FieldHomeTeam: true, FieldAwayTeam: true}
	}

	var applied []string
	for _, ex := range extracted {
		if !targets[ex.Field] {
			continue
		}
		before := d.FieldValue(ex.Field)
		next := ApplyFieldValue(*d, ex.Field, ex.Value, ex.Confidence, OriginExtract)
		if next.FieldValue(ex.Field) != before {
			*d = next
			applied = append(applied, fmt.Sprintf("%s=%s", ex.Field, ex.Value))
		}
	}
	return applied
}

func skipPendingField(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID string) {
	field := d.PendingField
	d = SkipField(d, field)
	d.PendingField = ""
	d.State = StateIntake
	if err := UpsertDraft(db, d); err != nil {
		postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
		log.Printf("skip save error user=%s field=%s: %v", d.UserID, field, err)
		return
	}
	msg := GetSkipText(field)
	postText(api, channelID, msg)
	recordAssistant(db, d, msg, nil)
	log.Printf("field skipped user=%s field=%s", d.UserID, field)
	askNextQuestion(api, db, cfg, d, channelID)
}

// --- Confirm / create ---

func presentConfirm(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID string) {
	d = cloneDraft(d)
	d.State = StateConfirm
	d.PendingField = ""
	if err := UpsertDraft(db, d); err != nil {
		postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
		log.Printf("confirm save error user=%s: %v", d.UserID, err)
		return
	}

	summary := draftSummary(d)
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Ready to create this binder?", false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, summary, false, false), nil, nil),
		slack.NewActionBlock("quinn_confirm",
			slack.NewButtonBlockElement(actionConfirmCreate, "create",
				slack.NewTextBlockObject(slack.PlainTextType, "Create binder", false, false)).WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(actionConfirmEdit, "edit",
				slack.NewTextBlockObject(slack.PlainTextType, "Keep editing", false, false)),
			slack.NewButtonBlockElement(actionConfirmDiscard, "discard",
				slack.NewTextBlockObject(slack.PlainTextType, "Discard", false, false)).WithStyle(slack.StyleDanger),
		),
	}
	if _, _, err := api.PostMessage(channelID, slack.MsgOptionBlocks(blocks...)); err != nil {
		log.Printf("confirm post error user=%s: %v", d.UserID, err)
		postText(api, channelID, "Ready to create this binder?\n"+summary+"\nReply `create`, `edit`, or `discard`.")
	}
	recordAssistant(db, d, "Ready to create this binder?\n"+summary, []string{"Create binder", "Keep editing", "Discard"})
	log.Printf("confirm presented user=%s title=%q", d.UserID, d.DisplayTitle())
}

func createBinder(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID string) {
	if !HasMinimumFields(d) {
		postText(api, channelID, "The binder still needs a matchup (or title) and a game date before I can create it.")
		log.Printf("create blocked user=%s missing-minimum", d.UserID)
		return
	}

	binder := Binder{
		UserID:        d.UserID,
		Title:         d.DisplayTitle(),
		HomeTeam:      d.HomeTeam,
		AwayTeam:      d.AwayTeam,
		GameDate:      d.GameDate,
		GameTime:      d.GameTime,
		Timezone:      d.Timezone,
		ControlRoom:   d.ControlRoom,
		Venue:         d.Venue,
		BroadcastFeed: d.BroadcastFeed,
	}
	id, err := InsertBinder(db, binder)
	if err != nil {
		postText(api, channelID, fmt.Sprintf("Error creating binder: %v", err))
		log.Printf("create insert error user=%s: %v", d.UserID, err)
		return
	}
	if err := DeleteDraft(db, d.UserID, d.DayKey); err != nil {
		log.Printf("create draft cleanup error (non-fatal) user=%s: %v", d.UserID, err)
	}

	msg := fmt.Sprintf("Binder #%d created: *%s*", id, binder.Title)
	if binder.GameDate != "" {
		msg += fmt.Sprintf(" — %s", binder.GameDate)
		if binder.GameTime != "" {
			msg += " " + binder.GameTime
			if binder.Timezone != "" {
				msg += " " + binder.Timezone
			}
		}
	}
	msg += "\nAnything I didn't get can be edited in the binder itself."
	postText(api, channelID, msg)
	if cfg.IntakeChannelID != "" && cfg.IntakeChannelID != channelID {
		_, _, postErr := api.PostMessage(cfg.IntakeChannelID, slack.MsgOptionText(
			fmt.Sprintf("New binder from <@%s>: %s", d.UserID, binder.Title), false))
		if postErr != nil {
			log.Printf("create channel announce error (non-fatal): %v", postErr)
		}
	}
	log.Printf("binder created user=%s id=%d title=%q", d.UserID, id, binder.Title)
}

func resumeEditing(api *slack.Client, db *sql.DB, cfg Config, d Draft, channelID string) {
	d = cloneDraft(d)
	d.State = StateIntake
	if err := UpsertDraft(db, d); err != nil {
		postText(api, channelID, fmt.Sprintf("Error saving draft: %v", err))
		return
	}
	log.Printf("confirm resumed-editing user=%s", d.UserID)
	askNextQuestion(api, db, cfg, d, channelID)
}

func discardDraft(api *slack.Client, db *sql.DB, d Draft, channelID string) {
	if err := ClearMessages(db, d.UserID, d.DayKey); err != nil {
		log.Printf("discard clear-messages error (non-fatal) user=%s: %v", d.UserID, err)
	}
	if err := DeleteDraft(db, d.UserID, d.DayKey); err != nil {
		postText(api, channelID, fmt.Sprintf("Error discarding draft: %v", err))
		log.Printf("discard error user=%s: %v", d.UserID, err)
		return
	}
	postText(api, channelID, "Draft discarded. `/binder` starts a fresh one.")
	log.Printf("draft discarded user=%s day=%s", d.UserID, d.DayKey)
}

// --- Slash subcommands ---

func handleBinderStatus(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	d, found, err := GetDraft(db, cmd.UserID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading draft: %v", err))
		return
	}
	if !found {
		postEphemeral(api, cmd, "No draft for today. `/binder` starts one.")
		return
	}

	msgs, err := GetMessages(db, d.UserID, d.DayKey)
	if err != nil {
		log.Printf("status transcript load error (non-fatal) user=%s: %v", cmd.UserID, err)
	}

	msg := fmt.Sprintf("Draft for %s (state: %s, %d transcript messages)\n%s", d.DayKey, d.State, len(msgs), draftSummary(d))
	if len(d.SkippedFields) > 0 {
		msg += fmt.Sprintf("\nSkipped: %s — revisit with `/binder ask <field>`", joinFieldSet(d.SkippedFields))
	}
	if HasMinimumFields(d) {
		msg += "\nThis draft has enough to create."
	} else {
		msg += "\nStill needs a matchup (or title) and a game date."
	}
	postEphemeral(api, cmd, msg)
	log.Printf("binder-status user=%s state=%s", cmd.UserID, d.State)
}

func handleBinderAsk(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, fieldName string) {
	q, ok := bankField(fieldName)
	if !ok {
		postEphemeral(api, cmd, fmt.Sprintf("Unknown field %q. Askable fields: %s.", fieldName, askableFieldNames()))
		return
	}

	d, found, err := GetDraft(db, cmd.UserID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading draft: %v", err))
		return
	}
	if !found {
		postEphemeral(api, cmd, "No draft for today. `/binder` starts one.")
		return
	}
	if !MissingFields(d)[q.Field] {
		postEphemeral(api, cmd, fmt.Sprintf("%s is already set — change it with `/binder set`.", q.Field))
		return
	}
	if d.AskCounts[q.Field] >= maxFieldAsks {
		postEphemeral(api, cmd, fmt.Sprintf("I've asked about %s twice already — fill it in with `/binder set %s <value>`.", q.Field, q.Field))
		return
	}

	d = ReopenField(d, q.Field)
	dm, err := openDM(api, cmd.UserID)
	if err != nil {
		postEphemeral(api, cmd, "Error opening a DM — check bot permissions.")
		return
	}
	prompt := QuestionPrompt{
		Field:        q.Field,
		Text:         q.Phrasings[d.AskCounts[q.Field]%len(q.Phrasings)],
		QuickReplies: append(append([]string{}, q.QuickReplies...), skipReply),
	}
	emitQuestion(api, db, cfg, d, dm, prompt, StateIntake, "")
	log.Printf("binder-ask user=%s field=%s", cmd.UserID, q.Field)
}

// settableFields are the value fields /binder set accepts.
var settableFields = []Field{
	FieldBinderTitle, FieldHomeTeam, FieldAwayTeam, FieldGameDate, FieldGameTime,
	FieldTimezone, FieldControlRoom, FieldVenue, FieldBroadcastFeed,
}

func handleBinderSet(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, rest string) {
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		postEphemeral(api, cmd, "Usage: /binder set <field> <value>\nExample: /binder set venue Madison Square Garden")
		return
	}
	field := Field(strings.TrimSpace(parts[0]))
	value := strings.TrimSpace(parts[1])

	known := false
	for _, f := range settableFields {
		if f == field {
			known = true
			break
		}
	}
	if !known {
		names := make([]string, len(settableFields))
		for i, f := range settableFields {
			names[i] = string(f)
		}
		postEphemeral(api, cmd, fmt.Sprintf("Unknown field %q. Settable fields: %s.", field, strings.Join(names, ", ")))
		return
	}

	// Shaped fields are normalized the same way conversational answers are.
	switch field {
	case FieldGameDate, FieldGameTime, FieldTimezone:
		askable := field
		answers, err := ParseAnswer(askable, value, time.Now().In(cfg.Location))
		if err != nil {
			postEphemeral(api, cmd, clarifyText(askable))
			return
		}
		value = answers[0].Value
	}

	d, found, err := GetDraft(db, cmd.UserID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading draft: %v", err))
		return
	}
	if !found {
		d = NewDraft(cmd.UserID, DayKey(time.Now(), cfg.Location))
		d.State = StateIntake
	}

	wasLocked := d.LockedFields[field]
	d = OverrideField(d, field, value)
	if err := UpsertDraft(db, d); err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error saving draft: %v", err))
		return
	}
	if wasLocked {
		postEphemeral(api, cmd, fmt.Sprintf("Replaced %s with %q (still locked against automatic changes).", field, value))
	} else {
		postEphemeral(api, cmd, fmt.Sprintf("Set %s to %q (locked against automatic changes).", field, value))
	}
	log.Printf("binder-set user=%s field=%s was_locked=%v", cmd.UserID, field, wasLocked)
}

func handleBinderImport(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, text string) {
	if strings.TrimSpace(text) == "" {
		postEphemeral(api, cmd, "Usage: /binder import <pasted email or rundown text>")
		return
	}

	d, found, err := GetDraft(db, cmd.UserID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading draft: %v", err))
		return
	}
	if !found {
		d = NewDraft(cmd.UserID, DayKey(time.Now(), cfg.Location))
		d.State = StateIntake
	}

	postEphemeral(api, cmd, "Reading that for binder details...")
	extracted, usage, err := ExtractFields(context.Background(), cfg, text)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error extracting fields: %v", err))
		log.Printf("binder-import extract error user=%s: %v", cmd.UserID, err)
		return
	}
	if len(extracted) == 0 {
		postEphemeral(api, cmd, "I couldn't find any binder fields in that text.")
		log.Printf("binder-import empty user=%s tokens=%d", cmd.UserID, usage.TotalTokens())
		return
	}

	hadMinimum := HasMinimumFields(d)
	var applied, held []string
	for _, ex := range extracted {
		before := d.FieldValue(ex.Field)
		next := ApplyFieldValue(d, ex.Field, ex.Value, ex.Confidence, OriginExtract)
		if next.FieldValue(ex.Field) != before {
			d = next
			applied = append(applied, fmt.Sprintf("%s=%q (%s)", ex.Field, ex.Value, ex.Confidence))
		} else {
			held = append(held, fmt.Sprintf("%s (kept existing value)", ex.Field))
		}
	}
	if err := UpsertDraft(db, d); err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error saving draft: %v", err))
		return
	}

	msg := fmt.Sprintf("Imported %d field(s), tokens used: %d", len(applied), usage.TotalTokens())
	for _, a := range applied {
		msg += "\n• " + a
	}
	for _, h := range held {
		msg += "\n• " + h
	}
	postEphemeral(api, cmd, msg)
	log.Printf("binder-import user=%s applied=%d held=%d tokens=%d", cmd.UserID, len(applied), len(held), usage.TotalTokens())

	if !hadMinimum && HasMinimumFields(d) {
		dm, dmErr := openDM(api, cmd.UserID)
		if dmErr == nil {
			presentConfirm(api, db, cfg, d, dm)
		}
	}
}

func handleBinderDiscard(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	d, found, err := GetDraft(db, cmd.UserID, DayKey(time.Now(), cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading draft: %v", err))
		return
	}
	if !found {
		postEphemeral(api, cmd, "No draft for today.")
		return
	}
	if err := ClearMessages(db, d.UserID, d.DayKey); err != nil {
		log.Printf("discard clear-messages error (non-fatal) user=%s: %v", d.UserID, err)
	}
	if err := DeleteDraft(db, d.UserID, d.DayKey); err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error discarding draft: %v", err))
		return
	}
	postEphemeral(api, cmd, "Draft discarded. `/binder` starts a fresh one.")
	log.Printf("draft discarded user=%s day=%s", d.UserID, d.DayKey)
}

func handleBinderList(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	binders, err := GetBindersByUser(db, cmd.UserID, 10)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading binders: %v", err))
		return
	}
	if len(binders) == 0 {
		postEphemeral(api, cmd, "No binders yet. `/binder` starts one.")
		return
	}

	msg := fmt.Sprintf("Your last %d binder(s):", len(binders))
	for _, b := range binders {
		line := fmt.Sprintf("\n• #%d %s", b.ID, b.Title)
		if b.GameDate != "" {
			line += " — " + b.GameDate
			if b.GameTime != "" {
				line += " " + b.GameTime
			}
		}
		if b.Venue != "" {
			line += " @ " + b.Venue
		}
		msg += line
	}
	postEphemeral(api, cmd, msg)
	log.Printf("binder-list user=%s count=%d", cmd.UserID, len(binders))
}

func handleHelp(api *slack.Client, cfg Config, cmd slack.SlashCommand) {
	msg := fmt.Sprintf("Quinn — binder intake for %s\n\n"+
		"• `/binder` — Start or resume today's binder conversation\n"+
		"• `/binder status` — Show the current draft and what's still missing\n"+
		"• `/binder ask <field>` — Revisit a skipped question (fields: %s)\n"+
		"• `/binder set <field> <value>` — Fill a field directly (locks it)\n"+
		"• `/binder import <text>` — Pull details out of a pasted email or rundown\n"+
		"• `/binder discard` — Throw away today's draft\n"+
		"• `/binder list` — Your recent binders",
		cfg.ProductionName, askableFieldNames())
	postEphemeral(api, cmd, msg)
}

func askableFieldNames() string {
	names := make([]string, len(questionBank))
	for i, q := range questionBank {
		names[i] = string(q.Field)
	}
	return strings.Join(names, ", ")
}

// --- Interactions ---

func handleInteraction(api *slack.Client, db *sql.DB, cfg Config, cb slack.InteractionCallback) {
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return
	}
	act := cb.ActionCallback.BlockActions[0]
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	userID := cb.User.ID

	switch act.ActionID {
	case actionQuickReply, actionSkipField:
		handleUserAnswer(api, db, cfg, userID, channelID, act.Value)
	case actionConfirmCreate, actionConfirmEdit, actionConfirmDiscard:
		d, found, err := GetDraft(db, userID, DayKey(time.Now(), cfg.Location))
		if err != nil {
			postText(api, channelID, fmt.Sprintf("Error loading draft: %v", err))
			return
		}
		if !found {
			postText(api, channelID, "That draft is gone — `/binder` starts a new one.")
			return
		}
		switch act.ActionID {
		case actionConfirmCreate:
			createBinder(api, db, cfg, d, channelID)
		case actionConfirmEdit:
			resumeEditing(api, db, cfg, d, channelID)
		case actionConfirmDiscard:
			discardDraft(api, db, d, channelID)
		}
	}
}

// --- Helpers ---

func draftSummary(d Draft) string {
	line := func(f Field, label, value string) string {
		if value == "" {
			return fmt.Sprintf("• %s: —", label)
		}
		marks := ""
		if d.LockedFields[f] {
			marks = " :lock:"
		} else if c, ok := d.FieldConfidence[f]; ok && c != ConfidenceHigh {
			marks = fmt.Sprintf(" _(%s confidence)_", c)
		}
		return fmt.Sprintf("• %s: %s%s", label, value, marks)
	}

	identity := d.DisplayTitle()
	rows := []string{
		fmt.Sprintf("*%s*", identity),
		line(FieldGameDate, "Game date", d.GameDate),
		line(FieldGameTime, "Start time", d.GameTime),
		line(FieldTimezone, "Timezone", d.Timezone),
		line(FieldControlRoom, "Control room", d.ControlRoom),
		line(FieldVenue, "Venue", d.Venue),
		line(FieldBroadcastFeed, "Feed", d.BroadcastFeed),
	}
	return strings.Join(rows, "\n")
}

func openDM(api *slack.Client, userID string) (string, error) {
	channel, _, _, err := api.OpenConversation(&slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func postText(api *slack.Client, channelID, text string) {
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting message: %v", err)
	}
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	postEphemeralTo(api, cmd.ChannelID, cmd.UserID, text)
}

func postEphemeralTo(api *slack.Client, channelID, userID, text string) {
	_, err := api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}

func recordAssistant(db *sql.DB, d Draft, text string, quickReplies []string) {
	err := InsertMessage(db, ConversationMessage{
		UserID:       d.UserID,
		DayKey:       d.DayKey,
		Role:         roleAssistant,
		Text:         text,
		QuickReplies: quickReplies,
	})
	if err != nil {
		log.Printf("transcript record error (non-fatal) user=%s: %v", d.UserID, err)
	}
}

func recordUser(db *sql.DB, d Draft, text string) {
	err := InsertMessage(db, ConversationMessage{
		UserID: d.UserID,
		DayKey: d.DayKey,
		Role:   roleUser,
		Text:   text,
	})
	if err != nil {
		log.Printf("transcript record error (non-fatal) user=%s: %v", d.UserID, err)
	}
}
