package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// DefaultFileName is used when no title could be generated.
const DefaultFileName = "narrated_fairy_tale.wav"

const (
	maxTitleGraphemes = 80
	maxSlugGraphemes  = 60
	// titleStoryGraphemes bounds how much of the story is sent for titling.
	titleStoryGraphemes = 6000
)

func titleSystemPrompt(languageCode string) string {
	return fmt.Sprintf(`Give the fairy tale provided by the user a short title of at most eight words.
Write the title in %s language.

Output format (strict):
- JSON object only (no markdown, no code fences)
- One key "title" (string)

Example:
{"title":"The Fox Who Borrowed the Moon"}`, languageCode)
}

// titleResponseSchema returns the genai.Schema for title JSON: {"title": "..."}.
func titleResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "Short title of the story, at most eight words",
			},
		},
		Required: []string{"title"},
	}
}

// GenerateTitle asks for a short title for story. When the genai client is
// unavailable it falls back to the story model with a JSON MIME type.
func (c *Client) GenerateTitle(ctx context.Context, story, languageCode string) (string, error) {
	excerpt, _ := truncateGraphemes(story, titleStoryGraphemes)
	systemPrompt := titleSystemPrompt(languageCode)

	var response string
	if c.genaiClient != nil {
		model := c.genaiClient.GenerativeModel(c.modelTitle)
		model.SetTemperature(0.5)
		model.SetMaxOutputTokens(100)
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = titleResponseSchema()
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

		resp, err := model.GenerateContent(ctx, genai.Text(excerpt))
		if err != nil {
			return "", fmt.Errorf("generate title: %w", err)
		}
		response = extractTextFromGenaiResponse(resp)
	} else if c.storyModel != nil {
		messages := []llms.MessageContent{
			{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}}},
			{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: excerpt}}},
		}
		resp, err := c.storyModel.GenerateContent(ctx, messages,
			llms.WithTemperature(0.5),
			llms.WithMaxTokens(100),
			llms.WithResponseMIMEType("application/json"),
		)
		if err != nil {
			return "", fmt.Errorf("generate title: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty response from model")
		}
		response = resp.Choices[0].Content
	} else {
		return "", errors.New("no title model available")
	}

	logModelResponse("GenerateTitle", response)
	return parseTitle(response)
}

// extractTextFromGenaiResponse returns the concatenated text from the first candidate's parts.
func extractTextFromGenaiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// parseTitle decodes {"title": "..."}, tolerating code fences around the JSON.
func parseTitle(response string) (string, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var out struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(response), &out); err != nil {
		return "", fmt.Errorf("parse title response: %w", err)
	}
	title := strings.Join(strings.Fields(out.Title), " ")
	if title == "" {
		return "", errors.New("model returned an empty title")
	}
	title, _ = truncateGraphemes(title, maxTitleGraphemes)
	return title, nil
}

// FileName turns a title into a download file name: letters and digits are
// kept (lower-cased), everything else collapses to single underscores.
// An empty or unusable title yields DefaultFileName.
func FileName(title string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	slug, _ := truncateGraphemes(b.String(), maxSlugGraphemes)
	slug = strings.TrimRight(slug, "_")
	if slug == "" {
		return DefaultFileName
	}
	return slug + ".wav"
}
