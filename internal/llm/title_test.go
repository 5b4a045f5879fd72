package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func TestParseTitle(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", `{"title":"The Fox and the Moon"}`, "The Fox and the Moon", false},
		{"fenced", "```json\n{\"title\": \"  Star   Keeper \"}\n```", "Star Keeper", false},
		{"empty title", `{"title":""}`, "", true},
		{"not json", "The Fox", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTitle(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"The Fox and the Moon", "the_fox_and_the_moon.wav"},
		{"  Mila's Star-Ship!  ", "mila_s_star_ship.wav"},
		{"Лиса и Луна", "лиса_и_луна.wav"},
		{"", DefaultFileName},
		{"?!", DefaultFileName},
	}
	for _, tt := range tests {
		if got := FileName(tt.title); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
	long := FileName(strings.Repeat("a", 200))
	if long != strings.Repeat("a", maxSlugGraphemes)+".wav" {
		t.Errorf("long FileName = %q", long)
	}
}

func TestGenerateTitleFallsBackToStoryModel(t *testing.T) {
	fake := &fakeModel{reply: `{"title":"Mila and the Lost Star"}`}
	c := &Client{storyModel: fake}

	got, err := c.GenerateTitle(context.Background(), "Once upon a time...", "en")
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if got != "Mila and the Lost Star" {
		t.Errorf("title = %q", got)
	}
	if fake.opts.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", fake.opts.ResponseMIMEType)
	}
	if fake.messages[0].Role != llms.ChatMessageTypeSystem || !strings.Contains(textOf(fake.messages[0]), "en language") {
		t.Errorf("system prompt = %q", textOf(fake.messages[0]))
	}
}

func TestGenerateTitleNoModel(t *testing.T) {
	if _, err := (&Client{}).GenerateTitle(context.Background(), "story", "en"); err == nil {
		t.Error("expected error without any model")
	}
}
