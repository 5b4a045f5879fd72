package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"github.com/snappy-loop/fairytales/internal/models"
)

// GenerationError reports a failed or empty story request.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("story generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StoryRequest holds the user's prompt and the feedback on the previous story.
type StoryRequest struct {
	Scenario     string
	Character    string
	Themes       string
	LanguageCode string
	Feedback     models.Feedback
}

// storyCallOptions are the sampling settings for story text.
func storyCallOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(2000),
		llms.WithTopP(1.0),
		llms.WithFrequencyPenalty(0.5),
		llms.WithPresencePenalty(0.5),
	}
}

func feedbackNote(f models.Feedback) string {
	switch f {
	case models.FeedbackLiked:
		return "The user liked your previous story. Maintain or enhance that appealing style/tone.\n"
	case models.FeedbackDisliked:
		return "The user disliked your previous story. Try a different approach or style.\n"
	default:
		return ""
	}
}

func storySystemPrompt(req StoryRequest) string {
	return "You are a creative AI specialized in crafting original fairy tales. " +
		"Write a complete story with a clear beginning, middle, and end. " +
		"It should be relatively small, around 1000 words. " +
		"Use rich detail, do not end abruptly, and conclude with a final resolution. " +
		fmt.Sprintf("Write the story in %s language.\n", req.LanguageCode) +
		feedbackNote(req.Feedback)
}

func storyUserPrompt(req StoryRequest) string {
	return fmt.Sprintf(`Initial Scenario: %s
Main Character: %s
Themes: %s

Please write the fairy tale using these elements, up to around 1000 words, ending conclusively.`,
		req.Scenario, req.Character, req.Themes)
}

// GenerateStory asks the story model for a fairy tale. Provider failures and
// empty responses are returned as *GenerationError.
func (c *Client) GenerateStory(ctx context.Context, req StoryRequest) (string, error) {
	log.Debug().
		Str("provider", c.provider).
		Str("language", req.LanguageCode).
		Str("feedback", string(req.Feedback)).
		Msg("Generating story")

	if c.storyModel == nil {
		return "", &GenerationError{Err: errors.New("no story model available")}
	}

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: storySystemPrompt(req)}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: storyUserPrompt(req)}}},
	}
	resp, err := c.storyModel.GenerateContent(ctx, messages, storyCallOptions()...)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: errors.New("empty response from model")}
	}
	logModelResponse("GenerateStory", resp.Choices[0].Content)

	story := strings.TrimSpace(resp.Choices[0].Content)
	if story == "" {
		return "", &GenerationError{Err: errors.New("model returned an empty story")}
	}
	log.Info().Int("story_len", len(story)).Msg("Story generation complete")
	return story, nil
}
