package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/models"
)

const (
	talesWSReadTimeout  = 30 * time.Minute
	talesWSWriteTimeout = 30 * time.Second
)

var talesWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// talesWSInMessage is the JSON shape sent from the client.
type talesWSInMessage struct {
	Type string `json:"type"`
	createTaleRequest
}

// talesWSOutMessage is the JSON shape sent to the client.
type talesWSOutMessage struct {
	Type     string               `json:"type"`
	Progress *models.Progress     `json:"progress,omitempty"`
	Result   *models.TaleResponse `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// TalesWS handles GET /v1/tales/ws: each "generate" message runs the pipeline,
// streaming "progress" milestones and then one "result".
func (h *Handler) TalesWS(w http.ResponseWriter, r *http.Request) {
	// Cookies cannot be set once upgraded; without one the vote history is empty.
	sid, _ := sessionFromRequest(r)

	conn, err := talesWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("tales ws upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxUploadBytes*4/3 + 64<<10)
	conn.SetReadDeadline(time.Now().Add(talesWSReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(talesWSReadTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Debug().Err(err).Msg("tales ws read")
			return
		}
		conn.SetReadDeadline(time.Now().Add(talesWSReadTimeout))

		var in talesWSInMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			_ = writeWSJSON(conn, talesWSOutMessage{Type: "result", Error: "invalid JSON: " + err.Error()})
			continue
		}
		if in.Type != "generate" {
			_ = writeWSJSON(conn, talesWSOutMessage{Type: "result", Error: "expected type: generate"})
			continue
		}
		req, err := h.toModel(in.createTaleRequest, sid)
		if err != nil {
			_ = writeWSJSON(conn, talesWSOutMessage{Type: "result", Error: err.Error()})
			continue
		}

		// Progress is reported synchronously from this goroutine, so writes never overlap.
		var writeErr error
		progress := func(p models.Progress) {
			if writeErr != nil {
				return
			}
			writeErr = writeWSJSON(conn, talesWSOutMessage{Type: "progress", Progress: &p})
		}
		tale, err := h.tales.Create(r.Context(), req, progress)
		if writeErr != nil {
			log.Debug().Err(writeErr).Msg("tales ws write")
			return
		}
		resp := taleResponse(tale, err)
		out := talesWSOutMessage{Type: "result", Result: &resp}
		if err != nil {
			out.Error = userMessage(err)
		}
		if err := writeWSJSON(conn, out); err != nil {
			log.Debug().Err(err).Msg("tales ws write")
			return
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(talesWSWriteTimeout))
	return conn.WriteJSON(v)
}
