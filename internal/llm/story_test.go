package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/snappy-loop/fairytales/internal/models"
)

// fakeModel is a minimal llms.Model that records the last call.
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.reply, f.err
}

func textOf(m llms.MessageContent) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func TestStorySystemPromptFeedback(t *testing.T) {
	tests := []struct {
		feedback models.Feedback
		want     string
		notWant  string
	}{
		{models.FeedbackNone, "Write the story in ru language.\n", "previous story"},
		{models.FeedbackLiked, "Maintain or enhance that appealing style/tone.", "disliked"},
		{models.FeedbackDisliked, "Try a different approach or style.", "liked your"},
	}
	for _, tt := range tests {
		t.Run(string(tt.feedback), func(t *testing.T) {
			got := storySystemPrompt(StoryRequest{LanguageCode: "ru", Feedback: tt.feedback})
			if !strings.Contains(got, tt.want) {
				t.Errorf("prompt %q does not contain %q", got, tt.want)
			}
			if strings.Contains(got, tt.notWant) {
				t.Errorf("prompt %q unexpectedly contains %q", got, tt.notWant)
			}
			if !strings.HasPrefix(got, "You are a creative AI specialized in crafting original fairy tales.") {
				t.Errorf("unexpected prompt start: %q", got)
			}
		})
	}
}

func TestStorySystemPromptVoteNames(t *testing.T) {
	req := models.TaleRequest{LanguageCode: "en", Scenario: "s", Character: "c", Feedback: "like"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := storySystemPrompt(StoryRequest{LanguageCode: req.LanguageCode, Feedback: req.Feedback})
	if !strings.Contains(got, "The user liked your previous story.") {
		t.Errorf("prompt %q is missing the liked note", got)
	}
}

func TestGenerateStory(t *testing.T) {
	fake := &fakeModel{reply: "\n  Once upon a time...  \n"}
	c := &Client{provider: ProviderGoogleAI, storyModel: fake}

	got, err := c.GenerateStory(context.Background(), StoryRequest{
		Scenario:     "a lost star",
		Character:    "Mila the fox",
		Themes:       "space",
		LanguageCode: "en",
		Feedback:     models.FeedbackLiked,
	})
	if err != nil {
		t.Fatalf("GenerateStory: %v", err)
	}
	if got != "Once upon a time..." {
		t.Errorf("story = %q", got)
	}

	if len(fake.messages) != 2 || fake.messages[0].Role != llms.ChatMessageTypeSystem || fake.messages[1].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("messages = %+v", fake.messages)
	}
	user := textOf(fake.messages[1])
	for _, want := range []string{"Initial Scenario: a lost star", "Main Character: Mila the fox", "Themes: space", "ending conclusively"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q: %q", want, user)
		}
	}

	o := fake.opts
	if o.Temperature != 0.7 || o.MaxTokens != 2000 || o.TopP != 1.0 || o.FrequencyPenalty != 0.5 || o.PresencePenalty != 0.5 {
		t.Errorf("call options = %+v", o)
	}
}

func TestGenerateStoryErrors(t *testing.T) {
	tests := []struct {
		name  string
		model llms.Model
	}{
		{"no model", nil},
		{"provider error", &fakeModel{err: errors.New("quota exceeded")}},
		{"empty reply", &fakeModel{reply: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{storyModel: tt.model}
			_, err := c.GenerateStory(context.Background(), StoryRequest{LanguageCode: "en"})
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Errorf("err = %v, want GenerationError", err)
			}
		})
	}
}

func TestTruncateGraphemes(t *testing.T) {
	s := "ab🙋‍♂️cd"
	got, whole := truncateGraphemes(s, 3)
	if whole || got != "ab🙋‍♂️" {
		t.Errorf("truncateGraphemes = %q, %v", got, whole)
	}
	if got, whole := truncateGraphemes(s, 5); !whole || got != s {
		t.Errorf("truncateGraphemes(full) = %q, %v", got, whole)
	}
}
