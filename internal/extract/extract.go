// Package extract reads event details from a poster image with a
// vision-capable chat-completions model.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"posteragent/internal/config"
	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

// SystemPrompt fixes the output contract: one JSON object with exactly the
// five EventRecord fields.
const SystemPrompt = `You are an event extraction agent. Extract details from the poster.

Return a JSON object with these EXACT keys:
1. "title": Name of event
2. "date_str": A clean date string (e.g. "2025-10-03")
3. "time_str": A clean time string in 24-hour format (e.g. "18:00")
4. "location": The address
5. "calendar_sentence": A natural string for calendar Quick Entry.
   Format: "[title] at [location] on [date_str] at [time_str]"

IMPORTANT: If the date is in the past (e.g. 2023), bump it to the NEXT future occurrence.`

const userPrompt = "Extract details."

// Completer is the subset of *openai.Client the extractor needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor issues exactly one extraction request per call. It never
// retries and never returns a partially filled record.
type Extractor struct {
	client    Completer
	model     string
	maxTokens int
}

// NewClient builds an OpenAI client from the extraction config.
func NewClient(cfg config.ExtractionConfig, apiKey string) *openai.Client {
	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oc)
}

// New returns an Extractor using client.
func New(client Completer, cfg config.ExtractionConfig) *Extractor {
	return &Extractor{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}
}

// Analyze sends the JPEG image and parses the reply into an EventRecord.
// Every failure wraps model.ErrExtraction.
func (e *Extractor) Analyze(ctx context.Context, jpeg []byte) (model.EventRecord, error) {
	if len(jpeg) == 0 {
		return model.EventRecord{}, fmt.Errorf("%w: empty image", model.ErrExtraction)
	}

	appLog.Info("analyzing poster", "model", e.model, "image_bytes", len(jpeg))

	resp, err := e.client.CreateChatCompletion(ctx, e.request(jpeg))
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: %v", model.ErrExtraction, err)
	}
	if len(resp.Choices) == 0 {
		return model.EventRecord{}, fmt.Errorf("%w: response has no choices", model.ErrExtraction)
	}

	content := resp.Choices[0].Message.Content
	appLog.Debug("extraction output", "content", content)

	rec, err := Parse(content)
	if err != nil {
		return model.EventRecord{}, err
	}
	appLog.Info("poster analyzed", "title", rec.Title, "date", rec.DateStr, "time", rec.TimeStr, "location", rec.Location)
	return rec, nil
}

func (e *Extractor) request(jpeg []byte) openai.ChatCompletionRequest {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	return openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	}
}

// Parse decodes the model's JSON reply. The reply must be exactly one
// object with title, date_str, time_str and location set; a partial record
// is an extraction failure. A missing calendar_sentence is filled from the
// other fields.
func Parse(content string) (model.EventRecord, error) {
	var rec model.EventRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &rec); err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: invalid JSON: %v", model.ErrExtraction, err)
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", rec.Title},
		{"date_str", rec.DateStr},
		{"time_str", rec.TimeStr},
		{"location", rec.Location},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return model.EventRecord{}, fmt.Errorf("%w: missing %s", model.ErrExtraction, strings.Join(missing, ", "))
	}

	if strings.TrimSpace(rec.CalendarSentence) == "" {
		rec = rec.Resync()
	}
	return rec, nil
}
