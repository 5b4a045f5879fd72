package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/llm"
	"github.com/snappy-loop/fairytales/internal/models"
	"github.com/snappy-loop/fairytales/internal/services"
)

const (
	sessionCookieName = "tale_session"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// taleService is the subset of services.TaleService used by the handlers.
type taleService interface {
	Create(ctx context.Context, req models.TaleRequest, progress services.ProgressFunc) (*models.Tale, error)
	Feedback(sessionID string) models.Feedback
	Vote(ctx context.Context, sessionID string, taleID uuid.UUID, feedback models.Feedback) error
	Get(ctx context.Context, taleID uuid.UUID) (*models.Tale, error)
	OpenAudio(ctx context.Context, taleID uuid.UUID) (*models.Tale, io.ReadCloser, int64, error)
}

// themeLister supplies the theme choices shown on the form.
type themeLister interface {
	Themes() []string
}

// HealthChecker reports the health of an optional backend (e.g. the database).
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	tales          taleService
	themes         themeLister
	db             HealthChecker
	maxUploadBytes int64
}

// NewHandler creates a new handler. db may be nil.
func NewHandler(tales taleService, themes themeLister, db HealthChecker, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		tales:          tales,
		themes:         themes,
		db:             db,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Health(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Database health check failed")
			writeJSONError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the caller's session ID, issuing a new cookie when the
// request has none. Must run before the response header is written.
func session(w http.ResponseWriter, r *http.Request) string {
	if id, ok := sessionFromRequest(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func sessionFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// statusForError maps pipeline errors to HTTP status codes.
func statusForError(err error) int {
	var genErr *llm.GenerationError
	var synthErr *services.SynthesisError
	switch {
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, errInvalidVoice):
		return http.StatusBadRequest
	case errors.Is(err, errVoiceTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrTaleNotFound), errors.Is(err, services.ErrNoAudio):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPersistenceDisabled):
		return http.StatusNotImplemented
	case errors.As(err, &genErr), errors.As(err, &synthErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown to the user for a failed run.
func userMessage(err error) string {
	var genErr *llm.GenerationError
	var synthErr *services.SynthesisError
	switch {
	case errors.As(err, &genErr):
		return "The story could not be written right now. Please try again."
	case errors.As(err, &synthErr):
		return "The story could not be narrated: " + synthErr.Err.Error()
	case services.IsLocalAudioError(err):
		return "The narration could not be mixed with music: " + err.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
