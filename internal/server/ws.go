package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/capture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Live message types sent to the client.
const (
	msgSession = "session"
	msgStatus  = "status"
	msgResult  = "result"
	msgError   = "error"
)

// liveMessage is every message the live tremor socket sends.
type liveMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Status    *app.LiveStatus   `json:"status,omitempty"`
	Result    *app.TremorReport `json:"result,omitempty"`
	// Skipped is set when a frame was byte-for-byte the previous one.
	Skipped bool `json:"skipped,omitempty"`
	// Motion is the percentage of pixels that changed since the previous
	// tracked frame.
	Motion float64 `json:"motion,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// liveFeed is the per-connection frame state.
type liveFeed struct {
	meter  *capture.ChangeMeter
	digest uint64
	frames int
}

func (f *liveFeed) reset() {
	f.meter.Reset()
	f.digest = 0
	f.frames = 0
}

type liveCommand struct {
	Action    string `json:"action"`
	SubjectID string `json:"subject_id"`
}

// LiveTremorHandler tracks a hand over a websocket. Clients send JPEG frames
// as binary messages and {"action":"analyze"|"reset"} as text.
type LiveTremorHandler struct {
	app       *app.App
	threshold float64
	readLimit int64
	logger    *slog.Logger
}

// NewLiveTremorHandler creates a LiveTremorHandler.
func NewLiveTremorHandler(a *app.App, readLimit int64, logger *slog.Logger) *LiveTremorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveTremorHandler{
		app:       a,
		threshold: a.Config().Capture.StallThreshold,
		readLimit: readLimit,
		logger:    logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests. Without a session_id query
// parameter a new session is started and dropped when the socket closes.
func (h *LiveTremorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	owned := sessionID == ""
	if owned {
		sessionID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	ctx := r.Context()
	logger := h.logger.With("session", sessionID)
	feed := &liveFeed{meter: capture.NewChangeMeter(h.threshold)}
	defer feed.meter.Close()
	defer func() {
		if owned {
			if err := h.app.ResetTremor(context.WithoutCancel(ctx), sessionID); err != nil {
				logger.Debug("drop live session", "error", err)
			}
		}
	}()

	send := func(m liveMessage) error {
		m.SessionID = sessionID
		return conn.WriteJSON(m)
	}
	if err := send(liveMessage{Type: msgSession}); err != nil {
		return
	}
	logger.Info("live tremor session opened")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("live tremor read ended", "error", err)
			}
			return
		}

		var reply liveMessage
		switch kind {
		case websocket.BinaryMessage:
			reply = h.frame(ctx, sessionID, feed, data)
		case websocket.TextMessage:
			reply = h.command(ctx, sessionID, data)
			if reply.Type != msgError {
				// The session was analyzed or reset.
				feed.reset()
			}
		default:
			continue
		}
		if err := send(reply); err != nil {
			logger.Debug("live tremor write failed", "error", err)
			return
		}
	}
}

// frame tracks every decoded frame. Only a payload identical to the previous
// one is dropped; small hand movements must still reach the position series
// so samples stay evenly spaced.
func (h *LiveTremorHandler) frame(ctx context.Context, sessionID string, feed *liveFeed, data []byte) liveMessage {
	digest := xxhash.Sum64(data)
	if feed.frames > 0 && digest == feed.digest {
		return liveMessage{Type: msgStatus, Skipped: true}
	}

	img, err := capture.DecodeImage(data)
	if err != nil {
		return liveMessage{Type: msgError, Error: err.Error()}
	}
	defer img.Close()
	feed.digest = digest
	feed.frames++

	_, motion := feed.meter.Measure(img)
	status, err := h.app.TrackTremor(ctx, sessionID, img)
	if err != nil {
		return liveMessage{Type: msgError, Error: err.Error()}
	}
	return liveMessage{Type: msgStatus, Status: &status, Motion: motion}
}

func (h *LiveTremorHandler) command(ctx context.Context, sessionID string, data []byte) liveMessage {
	var cmd liveCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return liveMessage{Type: msgError, Error: "invalid command"}
	}
	switch strings.ToLower(cmd.Action) {
	case "analyze":
		rep, err := h.app.AnalyzeTremorSession(ctx, cmd.SubjectID, sessionID)
		if err != nil {
			return liveMessage{Type: msgError, Error: err.Error()}
		}
		return liveMessage{Type: msgResult, Result: &rep}
	case "reset":
		if err := h.app.ResetTremor(ctx, sessionID); err != nil {
			return liveMessage{Type: msgError, Error: err.Error()}
		}
		return liveMessage{Type: msgStatus, Status: &app.LiveStatus{}}
	default:
		return liveMessage{Type: msgError, Error: fmt.Sprintf("unknown action %q", cmd.Action)}
	}
}
