package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/markup"
	"github.com/snappy-loop/fairytales/internal/models"
)

// customThemeValue is the theme radio value that selects the free-text field.
const customThemeValue = "other"

type indexPage struct {
	Languages   []models.Language
	Themes      []string
	Feedback    models.Feedback
	MaxUploadMB int64
}

type resultPage struct {
	Tale      *models.Tale
	StoryHTML template.HTML
	AudioURI  template.URL
	Error     string
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sid := session(w, r)
	h.renderPage(w, http.StatusOK, "index", indexPage{
		Languages:   models.Languages,
		Themes:      h.themes.Themes(),
		Feedback:    h.tales.Feedback(sid),
		MaxUploadMB: h.maxUploadBytes >> 20,
	})
}

// CreateTaleForm handles POST /tales (multipart/form-data from the index page)
func (h *Handler) CreateTaleForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderPage(w, http.StatusRequestEntityTooLarge, "result", resultPage{Error: errVoiceTooLarge.Error()})
			return
		}
		h.renderPage(w, http.StatusBadRequest, "result", resultPage{Error: "failed to parse form"})
		return
	}

	voice, err := h.formVoice(r)
	if err != nil {
		h.renderPage(w, statusForError(err), "result", resultPage{Error: err.Error()})
		return
	}
	sid := session(w, r)
	req := models.TaleRequest{
		LanguageCode: r.FormValue("language"),
		Scenario:     strings.TrimSpace(r.FormValue("scenario")),
		Character:    strings.TrimSpace(r.FormValue("character")),
		Theme:        formTheme(r),
		Feedback:     h.tales.Feedback(sid),
		Voice:        voice,
	}

	tale, err := h.tales.Create(r.Context(), req, nil)
	page := resultPage{Tale: tale}
	if tale != nil {
		page.StoryHTML = template.HTML(markup.StoryToHTML(tale.Story))
		if len(tale.Audio) > 0 {
			page.AudioURI = template.URL("data:audio/wav;base64," + base64.StdEncoding.EncodeToString(tale.Audio))
		}
	}
	status := http.StatusOK
	if err != nil {
		page.Error = userMessage(err)
		status = statusForError(err)
	}
	h.renderPage(w, status, "result", page)
}

// formTheme returns the chosen theme, or the custom text when "Other" is picked.
func formTheme(r *http.Request) string {
	theme := strings.TrimSpace(r.FormValue("theme"))
	if theme == "" || theme == customThemeValue {
		return strings.TrimSpace(r.FormValue("custom_theme"))
	}
	return theme
}

// createTaleRequest is the JSON body of POST /v1/tales and of WebSocket generate messages.
type createTaleRequest struct {
	Language    string `json:"language"`
	Scenario    string `json:"scenario"`
	Character   string `json:"character"`
	Theme       string `json:"theme"`
	Feedback    string `json:"feedback,omitempty"`
	VoiceBase64 string `json:"voice_base64,omitempty"`
	VoicePreset string `json:"voice_preset,omitempty"`
}

// toModel builds the pipeline request. Without an explicit feedback field the
// session's stored vote is used.
func (h *Handler) toModel(in createTaleRequest, sessionID string) (models.TaleRequest, error) {
	voice, err := h.encodedVoice(in.VoiceBase64, in.VoicePreset)
	if err != nil {
		return models.TaleRequest{}, err
	}
	feedback := h.tales.Feedback(sessionID)
	if in.Feedback != "" {
		feedback = models.Feedback(in.Feedback)
		if parsed, err := models.ParseFeedback(in.Feedback); err == nil {
			feedback = parsed
		}
	}
	return models.TaleRequest{
		LanguageCode: in.Language,
		Scenario:     strings.TrimSpace(in.Scenario),
		Character:    strings.TrimSpace(in.Character),
		Theme:        strings.TrimSpace(in.Theme),
		Feedback:     feedback,
		Voice:        voice,
	}, nil
}

func taleResponse(tale *models.Tale, err error) models.TaleResponse {
	resp := models.TaleResponse{Tale: tale}
	if tale != nil && len(tale.Audio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(tale.Audio)
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// CreateTale handles POST /v1/tales
func (h *Handler) CreateTale(w http.ResponseWriter, r *http.Request) {
	var in createTaleRequest
	// base64 inflates by a third
	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes*4/3+1<<20)
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sid := session(w, r)
	req, err := h.toModel(in, sid)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}

	tale, err := h.tales.Create(r.Context(), req, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create tale")
		writeJSON(w, statusForError(err), taleResponse(tale, err))
		return
	}
	writeJSON(w, http.StatusOK, taleResponse(tale, nil))
}

// GetTale handles GET /v1/tales/{id}
func (h *Handler) GetTale(w http.ResponseWriter, r *http.Request) {
	taleID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid tale id")
		return
	}
	tale, err := h.tales.Get(r.Context(), taleID)
	if err != nil {
		log.Error().Err(err).Str("tale_id", taleID.String()).Msg("Failed to get tale")
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tale)
}

// GetTaleAudio handles GET /v1/tales/{id}/audio
func (h *Handler) GetTaleAudio(w http.ResponseWriter, r *http.Request) {
	taleID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid tale id")
		return
	}
	tale, rc, size, err := h.tales.OpenAudio(r.Context(), taleID)
	if err != nil {
		log.Error().Err(err).Str("tale_id", taleID.String()).Msg("Failed to open tale audio")
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tale.FileName))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("tale_id", taleID.String()).Msg("Tale audio stream interrupted")
	}
}
