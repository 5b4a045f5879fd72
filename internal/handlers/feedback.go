package handlers

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"github.com/snappy-loop/fairytales/internal/models"
)

type feedbackRequest struct {
	Vote   string `json:"vote"`
	TaleID string `json:"tale_id,omitempty"`
}

// Feedback handles POST /feedback. JSON bodies get a JSON reply; form posts
// from the result page are redirected back to the index.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	isJSON := false
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && ct == "application/json" {
		isJSON = true
	}

	var in feedbackRequest
	if isJSON {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&in); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		in.Vote = r.FormValue("vote")
		in.TaleID = r.FormValue("tale_id")
	}

	fail := func(status int, msg string) {
		if isJSON {
			writeJSONError(w, status, msg)
			return
		}
		http.Error(w, msg, status)
	}

	if in.Vote == "" {
		fail(http.StatusBadRequest, "vote is required")
		return
	}
	feedback, err := models.ParseFeedback(in.Vote)
	if err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}
	var taleID uuid.UUID
	if in.TaleID != "" {
		if taleID, err = uuid.Parse(in.TaleID); err != nil {
			fail(http.StatusBadRequest, "invalid tale id")
			return
		}
	}

	sid := session(w, r)
	if err := h.tales.Vote(r.Context(), sid, taleID, feedback); err != nil {
		fail(statusForError(err), err.Error())
		return
	}
	if isJSON {
		writeJSON(w, http.StatusOK, map[string]string{"feedback": string(feedback)})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
