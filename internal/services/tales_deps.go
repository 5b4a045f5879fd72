package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/snappy-loop/fairytales/internal/llm"
	"github.com/snappy-loop/fairytales/internal/models"
	"github.com/snappy-loop/fairytales/internal/voice"
)

// ProgressFunc receives pipeline milestones. May be nil.
type ProgressFunc func(models.Progress)

// Narrator turns story text into WAV bytes. speakerWAVPath, when set, is a
// voice sample to clone; otherwise preset names a speaker.
type Narrator interface {
	Synthesize(ctx context.Context, text, languageCode, speakerWAVPath, preset string) ([]byte, error)
}

// EventPublisher publishes tale events (e.g. to Kafka). May be nil to skip publishing.
type EventPublisher interface {
	PublishTaleEvent(ctx context.Context, event *models.TaleEvent) error
}

// storyGenerator is the subset of llm.Client used for story text.
type storyGenerator interface {
	GenerateStory(ctx context.Context, req llm.StoryRequest) (string, error)
}

// titleGenerator is the subset of llm.Client used for download names.
type titleGenerator interface {
	GenerateTitle(ctx context.Context, story, languageCode string) (string, error)
}

// themeResolver picks background music for a theme.
type themeResolver interface {
	Resolve(theme string) string
}

// voicePreparer turns a voice reference into something a Narrator accepts.
type voicePreparer interface {
	Prepare(ctx context.Context, ref models.VoiceReference) (*voice.Prepared, error)
}

// mixer overlays narration on a background asset.
type mixer interface {
	Mix(narration []byte, backgroundPath string) ([]byte, error)
}

// taleRepository is the subset of tale DB operations used by TaleService.
type taleRepository interface {
	Create(ctx context.Context, tale *models.Tale) error
	Finish(ctx context.Context, tale *models.Tale) error
	SetVote(ctx context.Context, taleID uuid.UUID, vote models.Feedback) error
	GetByID(ctx context.Context, taleID uuid.UUID) (*models.Tale, error)
}

// audioArchive is the subset of storage.Client used to keep mixed audio.
type audioArchive interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string, contentLength int64) error
	PublicURL(key string) string
	GeneratePresignedURL(key string, expiration time.Duration) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
}
