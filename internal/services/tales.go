package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/audio"
	"github.com/snappy-loop/fairytales/internal/llm"
	"github.com/snappy-loop/fairytales/internal/models"
)

// Pipeline milestones
var (
	ProgressGenerating = models.Progress{Stage: "generating", Percent: 33}
	ProgressStoryReady = models.Progress{Stage: "story_ready", Percent: 66}
	ProgressSynthesis  = models.Progress{Stage: "synthesizing", Percent: 75}
	ProgressNarrated   = models.Progress{Stage: "narrated", Percent: 90}
	ProgressMixed      = models.Progress{Stage: "mixed", Percent: 100}
)

// Error codes stored on failed tales
const (
	ErrorCodeGeneration = "generation_failed"
	ErrorCodeSynthesis  = "synthesis_failed"
	ErrorCodeMix        = "mix_failed"
)

// TaleDeps are the collaborators of TaleService. Stories, Themes, Voices,
// Narrator and Mixer are required; the rest may be nil.
type TaleDeps struct {
	Stories  storyGenerator
	Titles   titleGenerator
	Themes   themeResolver
	Voices   voicePreparer
	Narrator Narrator
	Mixer    mixer

	Repo      taleRepository
	Archive   audioArchive
	Publisher EventPublisher
	Feedback  *FeedbackStore
}

// TaleService runs the story → narration → mix pipeline.
type TaleService struct {
	stories   storyGenerator
	titles    titleGenerator
	themes    themeResolver
	voices    voicePreparer
	narrator  Narrator
	mixer     mixer
	repo      taleRepository
	archive   audioArchive
	publisher EventPublisher
	feedback  *FeedbackStore
	urlExpiry time.Duration
}

// NewTaleService creates a new TaleService. urlExpiry bounds presigned
// download links when an archive is configured.
func NewTaleService(deps TaleDeps, urlExpiry time.Duration) *TaleService {
	if deps.Feedback == nil {
		deps.Feedback = NewFeedbackStore()
	}
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &TaleService{
		stories:   deps.Stories,
		titles:    deps.Titles,
		themes:    deps.Themes,
		voices:    deps.Voices,
		narrator:  deps.Narrator,
		mixer:     deps.Mixer,
		repo:      deps.Repo,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		feedback:  deps.Feedback,
		urlExpiry: urlExpiry,
	}
}

// Create runs the whole pipeline for req. Stages run in order and any
// failure ends the run: the returned tale then carries what was produced so
// far (e.g. the story text) alongside the error.
func (s *TaleService) Create(ctx context.Context, req models.TaleRequest, progress ProgressFunc) (*models.Tale, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	report := func(p models.Progress) {
		if progress != nil {
			progress(p)
		}
	}

	tale := &models.Tale{
		ID:           uuid.New(),
		Status:       models.TaleStatusRunning,
		LanguageCode: req.LanguageCode,
		Scenario:     req.Scenario,
		Character:    req.Character,
		Theme:        req.Theme,
		Feedback:     req.Feedback,
		FileName:     llm.DefaultFileName,
		CreatedAt:    time.Now().UTC(),
	}
	logger := log.With().Str("tale_id", tale.ID.String()).Logger()
	logger.Info().
		Str("language", req.LanguageCode).
		Str("theme", req.Theme).
		Str("feedback", string(req.Feedback)).
		Str("voice", req.Voice.String()).
		Msg("Tale pipeline started")

	if s.repo != nil {
		if err := s.repo.Create(ctx, tale); err != nil {
			logger.Warn().Err(err).Msg("Failed to record tale")
		}
	}

	report(ProgressGenerating)
	story, err := s.stories.GenerateStory(ctx, llm.StoryRequest{
		Scenario:     req.Scenario,
		Character:    req.Character,
		Themes:       req.Theme,
		LanguageCode: req.LanguageCode,
		Feedback:     req.Feedback,
	})
	if err != nil {
		return s.fail(ctx, tale, ErrorCodeGeneration, err)
	}
	tale.Story = story
	report(ProgressStoryReady)

	if s.titles != nil {
		title, err := s.titles.GenerateTitle(ctx, story, req.LanguageCode)
		if err != nil {
			logger.Warn().Err(err).Msg("Title generation failed, using default file name")
		} else {
			tale.Title = title
			tale.FileName = llm.FileName(title)
		}
	}

	tale.MusicAsset = s.themes.Resolve(req.Theme)
	logger.Debug().Str("music", tale.MusicAsset).Msg("Background music selected")

	prepared, err := s.voices.Prepare(ctx, req.Voice)
	if err != nil {
		return s.fail(ctx, tale, ErrorCodeSynthesis, &SynthesisError{Err: err})
	}
	defer prepared.Close()

	report(ProgressSynthesis)
	narration, err := s.narrator.Synthesize(ctx, story, req.LanguageCode, prepared.Path, prepared.Preset)
	if err != nil {
		return s.fail(ctx, tale, ErrorCodeSynthesis, &SynthesisError{Err: err})
	}
	report(ProgressNarrated)

	mixed, err := s.mixer.Mix(narration, tale.MusicAsset)
	if err != nil {
		return s.fail(ctx, tale, ErrorCodeMix, err)
	}
	tale.Audio = mixed
	report(ProgressMixed)

	s.archiveAudio(ctx, tale)

	now := time.Now().UTC()
	tale.Status = models.TaleStatusSucceeded
	tale.FinishedAt = &now
	s.finish(ctx, tale)

	logger.Info().
		Int("audio_bytes", len(mixed)).
		Str("file_name", tale.FileName).
		Msg("Tale pipeline complete")
	return tale, nil
}

// fail marks tale as failed, records it, and returns it with err.
func (s *TaleService) fail(ctx context.Context, tale *models.Tale, code string, err error) (*models.Tale, error) {
	now := time.Now().UTC()
	msg := err.Error()
	tale.Status = models.TaleStatusFailed
	tale.ErrorCode = &code
	tale.ErrorMessage = &msg
	tale.FinishedAt = &now

	log.Error().
		Err(err).
		Str("tale_id", tale.ID.String()).
		Str("error_code", code).
		Bool("has_story", tale.Story != "").
		Msg("Tale pipeline failed")

	s.finish(ctx, tale)
	return tale, err
}

// finish persists the final state and publishes the outcome. Failures are logged only.
func (s *TaleService) finish(ctx context.Context, tale *models.Tale) {
	if s.repo != nil {
		if err := s.repo.Finish(ctx, tale); err != nil {
			log.Warn().Err(err).Str("tale_id", tale.ID.String()).Msg("Failed to update tale record")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishTaleEvent(ctx, taleEvent(tale)); err != nil {
			log.Warn().Err(err).Str("tale_id", tale.ID.String()).Msg("Failed to publish tale event")
		}
	}
}

func taleEvent(tale *models.Tale) *models.TaleEvent {
	ev := &models.TaleEvent{
		TaleID:     tale.ID,
		Event:      models.EventTaleCompleted,
		Language:   tale.LanguageCode,
		Theme:      tale.Theme,
		Title:      tale.Title,
		AudioURL:   tale.AudioURL,
		OccurredAt: time.Now().UTC(),
	}
	if tale.MusicAsset != "" {
		ev.MusicAsset = filepath.Base(tale.MusicAsset)
	}
	if tale.Status == models.TaleStatusFailed {
		ev.Event = models.EventTaleFailed
		if tale.ErrorCode != nil {
			ev.ErrorCode = *tale.ErrorCode
		}
	}
	return ev
}

// AudioKey is the object key of a tale's mixed audio.
func AudioKey(taleID uuid.UUID, fileName string) string {
	return fmt.Sprintf("tales/%s/%s", taleID, fileName)
}

// archiveAudio uploads the mix and attaches a download URL. Failures are logged only.
func (s *TaleService) archiveAudio(ctx context.Context, tale *models.Tale) {
	if s.archive == nil || len(tale.Audio) == 0 {
		return
	}
	key := AudioKey(tale.ID, tale.FileName)
	if err := s.archive.Upload(ctx, key, bytes.NewReader(tale.Audio), "audio/wav", int64(len(tale.Audio))); err != nil {
		log.Warn().Err(err).Str("tale_id", tale.ID.String()).Msg("Failed to archive tale audio")
		return
	}
	tale.AudioKey = &key
	tale.AudioURL = s.audioURL(key)
}

// audioURL prefers the public bucket URL and falls back to a presigned link.
func (s *TaleService) audioURL(key string) string {
	if u := s.archive.PublicURL(key); u != "" {
		return u
	}
	u, err := s.archive.GeneratePresignedURL(key, s.urlExpiry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to presign tale audio URL")
		return ""
	}
	return u
}

// Feedback returns the session's latest vote.
func (s *TaleService) Feedback(sessionID string) models.Feedback {
	return s.feedback.Get(sessionID)
}

// Vote stores the session's feedback for the next generation and, when tale
// history is enabled and taleID is set, records the vote on that tale.
func (s *TaleService) Vote(ctx context.Context, sessionID string, taleID uuid.UUID, feedback models.Feedback) error {
	feedback, err := models.ParseFeedback(string(feedback))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	s.feedback.Set(sessionID, feedback)
	log.Info().Str("session", sessionID).Str("feedback", string(feedback)).Msg("Feedback recorded")

	if s.repo == nil || taleID == uuid.Nil {
		return nil
	}
	if err := s.repo.SetVote(ctx, taleID, feedback); err != nil {
		log.Warn().Err(err).Str("tale_id", taleID.String()).Msg("Failed to record vote on tale")
	}
	return nil
}

// Get returns a stored tale. Presigned URLs are refreshed on each call.
func (s *TaleService) Get(ctx context.Context, taleID uuid.UUID) (*models.Tale, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	tale, err := s.repo.GetByID(ctx, taleID)
	if err != nil {
		if errors.Is(err, models.ErrTaleNotFound) {
			return nil, ErrTaleNotFound
		}
		return nil, fmt.Errorf("get tale: %w", err)
	}
	if tale.AudioKey != nil && s.archive != nil {
		tale.AudioURL = s.audioURL(*tale.AudioKey)
	}
	return tale, nil
}

// OpenAudio streams a stored tale's archived mix. The caller closes the reader.
func (s *TaleService) OpenAudio(ctx context.Context, taleID uuid.UUID) (*models.Tale, io.ReadCloser, int64, error) {
	tale, err := s.Get(ctx, taleID)
	if err != nil {
		return nil, nil, 0, err
	}
	if tale.AudioKey == nil || s.archive == nil {
		return tale, nil, 0, ErrNoAudio
	}
	rc, size, err := s.archive.Open(ctx, *tale.AudioKey)
	if err != nil {
		return tale, nil, 0, fmt.Errorf("open tale audio: %w", err)
	}
	return tale, rc, size, nil
}

// IsLocalAudioError reports whether err came from decoding or loading audio
// on this side rather than from an upstream service.
func IsLocalAudioError(err error) bool {
	var decodeErr *audio.DecodeError
	var assetErr *audio.AssetNotFoundError
	return errors.As(err, &decodeErr) || errors.As(err, &assetErr)
}
