package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Feedback is the user's vote on the previous story.
type Feedback string

const (
	FeedbackNone     Feedback = "none"
	FeedbackLiked    Feedback = "liked"
	FeedbackDisliked Feedback = "disliked"
)

// ParseFeedback accepts the stored values plus the "like"/"dislike" vote names.
func ParseFeedback(s string) (Feedback, error) {
	switch s {
	case "", "none":
		return FeedbackNone, nil
	case "like", "liked":
		return FeedbackLiked, nil
	case "dislike", "disliked":
		return FeedbackDisliked, nil
	}
	return FeedbackNone, fmt.Errorf("invalid feedback %q", s)
}

// Language is a selectable narration language.
type Language struct {
	Name string
	Code string
}

// Languages lists the supported languages in display order.
var Languages = []Language{
	{Name: "English", Code: "en"},
	{Name: "Russian", Code: "ru"},
	{Name: "French", Code: "fr"},
	{Name: "Spanish", Code: "es"},
	{Name: "German", Code: "de"},
}

// LanguageByCode returns the language for code, if supported.
func LanguageByCode(code string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// ErrTaleNotFound is returned by tale lookups for unknown IDs.
var ErrTaleNotFound = errors.New("tale not found")

// Tale statuses
const (
	TaleStatusRunning   = "running"
	TaleStatusSucceeded = "succeeded"
	TaleStatusFailed    = "failed"
)

// TaleRequest is one user-initiated generation.
type TaleRequest struct {
	LanguageCode string         `json:"language"`
	Scenario     string         `json:"scenario"`
	Character    string         `json:"character"`
	Theme        string         `json:"theme"`
	Feedback     Feedback       `json:"feedback"`
	Voice        VoiceReference `json:"-"`
}

// Validate checks the request fields that the pipeline depends on.
func (r *TaleRequest) Validate() error {
	if _, ok := LanguageByCode(r.LanguageCode); !ok {
		return fmt.Errorf("unsupported language %q", r.LanguageCode)
	}
	if r.Scenario == "" {
		return fmt.Errorf("scenario is required")
	}
	if r.Character == "" {
		return fmt.Errorf("character is required")
	}
	feedback, err := ParseFeedback(string(r.Feedback))
	if err != nil {
		return err
	}
	r.Feedback = feedback
	return nil
}

// Tale is the outcome of a pipeline run. On failure it still carries whatever
// was produced before the failing stage.
type Tale struct {
	ID           uuid.UUID  `json:"id"`
	Status       string     `json:"status"`
	LanguageCode string     `json:"language"`
	Scenario     string     `json:"scenario"`
	Character    string     `json:"character"`
	Theme        string     `json:"theme"`
	Feedback     Feedback   `json:"feedback"`
	Title        string     `json:"title,omitempty"`
	Story        string     `json:"story,omitempty"`
	MusicAsset   string     `json:"music_asset,omitempty"`
	FileName     string     `json:"file_name,omitempty"`
	Audio        []byte     `json:"-"`
	AudioKey     *string    `json:"-"`
	AudioURL     string     `json:"audio_url,omitempty"`
	Vote         *Feedback  `json:"vote,omitempty"`
	ErrorCode    *string    `json:"error_code,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// TaleResponse is the JSON API shape of a finished run.
type TaleResponse struct {
	Tale        *Tale  `json:"tale"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Progress is a pipeline milestone.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// Tale event types
const (
	EventTaleCompleted = "tale_completed"
	EventTaleFailed    = "tale_failed"
)

// TaleEvent is published when a pipeline run finishes.
type TaleEvent struct {
	TaleID     uuid.UUID `json:"tale_id"`
	Event      string    `json:"event"`
	Language   string    `json:"language"`
	Theme      string    `json:"theme"`
	MusicAsset string    `json:"music_asset,omitempty"`
	Title      string    `json:"title,omitempty"`
	AudioURL   string    `json:"audio_url,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
