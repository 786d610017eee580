package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// extractTimeout bounds a single extraction call; a hung provider must not
// pin a conversation turn indefinitely.
const extractTimeout = 60 * time.Second

// Numeric extraction scores map to the closed confidence enum at these cut
// points.
const (
	highConfidenceScore   = 0.85
	mediumConfidenceScore = 0.55
)

// ExtractedField is one candidate value the extraction subsystem found in
// free text, with its trust level. Merging is the Reconciler's job.
type ExtractedField struct {
	Field      Field
	Value      string
	Confidence Confidence
}

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

var extractableFields = []struct {
	Field Field
	Hint  string
}{
	{FieldBinderTitle, "an explicit show or binder title"},
	{FieldHomeTeam, "home team name or abbreviation"},
	{FieldAwayTeam, "away team name or abbreviation"},
	{FieldGameDate, "game date, normalized to YYYY-MM-DD"},
	{FieldGameTime, "scheduled start time, normalized to 24h HH:MM"},
	{FieldTimezone, "timezone (ET, CT, MT, PT, or IANA name)"},
	{FieldControlRoom, "control room or production location"},
	{FieldVenue, "arena/stadium name"},
	{FieldBroadcastFeed, "which feed: home, away, or national"},
}

// ExtractFields asks the configured LLM to pull binder fields out of free
// text (a pasted rundown email, a schedule blurb, or a single answer).
// Every returned value still goes through the Reconciler; nothing here
// touches a draft.
func ExtractFields(ctx context.Context, cfg Config, text string) ([]ExtractedField, LLMUsage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, LLMUsage{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	systemPrompt, userPrompt := buildExtractionPrompts(text)

	var responseText string
	var usage LLMUsage
	var err error

	switch cfg.LLMProvider {
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		log.Printf("llm extract provider=openai model=%s chars=%d", model, len(text))
		responseText, usage, err = callOpenAI(ctx, cfg.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		model := cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		log.Printf("llm extract provider=anthropic model=%s chars=%d", model, len(text))
		responseText, usage, err = callAnthropic(ctx, cfg.AnthropicAPIKey, model, systemPrompt, userPrompt)
	}
	if err != nil {
		return nil, usage, err
	}

	fields, parseErr := parseExtractionResponse(responseText)
	return fields, usage, parseErr
}

func buildExtractionPrompts(text string) (string, string) {
	var fieldLines strings.Builder
	for _, f := range extractableFields {
		fieldLines.WriteString(fmt.Sprintf("- %s: %s\n", f.Field, f.Hint))
	}

	systemPrompt := fmt.Sprintf(`You extract broadcast-event fields from production emails and chat messages.
Recognized fields:
%s
Only include fields actually present in the text. Do not guess.
Set confidence between 0 and 1 for each extracted value.

Respond with JSON only (no markdown):
[{"field": "homeTeam", "value": "BOS", "confidence": 0.92}, ...]`, fieldLines.String())

	userPrompt := "Extract binder fields from this text:\n\n" + text
	return systemPrompt, userPrompt
}

type extractedFieldRaw struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

func parseExtractionResponse(responseText string) ([]ExtractedField, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var raw []extractedFieldRaw
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return nil, fmt.Errorf("parsing extraction response: %w (truncated response: %s)", err, truncated)
	}

	known := make(map[Field]bool, len(extractableFields))
	for _, f := range extractableFields {
		known[f.Field] = true
	}

	var out []ExtractedField
	for _, r := range raw {
		field := Field(strings.TrimSpace(r.Field))
		value := strings.TrimSpace(r.Value)
		if value == "" || !known[field] {
			continue
		}
		out = append(out, ExtractedField{
			Field:      field,
			Value:      value,
			Confidence: confidenceFromScore(r.Confidence),
		})
	}
	return out, nil
}

func confidenceFromScore(score float64) Confidence {
	switch {
	case score >= highConfidenceScore:
		return ConfidenceHigh
	case score >= mediumConfidenceScore:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// --- Anthropic ---

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", usage, fmt.Errorf("no text content in Anthropic response")
	}
	log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d",
		text.Len(), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
	return text.String(), usage, nil
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", LLMUsage{}, fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", LLMUsage{}, fmt.Errorf("OpenAI API status %d", resp.StatusCode)
	}

	if len(openAIResp.Choices) == 0 {
		return "", LLMUsage{}, fmt.Errorf("no choices in OpenAI response")
	}
	usage := LLMUsage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(openAIResp.Choices[0].Message.Content), usage.InputTokens, usage.OutputTokens)
	return openAIResp.Choices[0].Message.Content, usage, nil
}
