package transcription

import (
	"net/http"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// FinalSink receives the consolidated transcript when a session ends
// normally. Implementations must not block the caller for long; the session
// goroutine is already past its protocol duties when this fires.
type FinalSink interface {
	SessionFinished(sessionID, transcript string)
}

// Handler upgrades HTTP connections and drives one session per connection.
type Handler struct {
	sink   FinalSink
	logger zerolog.Logger
}

// NewHandler creates a Handler. sink may be nil.
func NewHandler(sink FinalSink, logger zerolog.Logger) *Handler {
	return &Handler{sink: sink, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/transcribe", h.HandleTranscribe)
}

// HandleTranscribe runs the session protocol over a WebSocket connection.
// All messages for a connection are processed sequentially on this
// goroutine; sessions share no state with each other.
func (h *Handler) HandleTranscribe(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	session := NewSession()
	log := h.logger.With().Str("remote", c.RealIP()).Logger()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			// Transport disconnect: the session state is abandoned here,
			// never persisted.
			log.Debug().Str("session_id", session.ID()).Msg("transcription connection closed")
			return nil
		}

		ev := session.Handle(raw)
		for _, reply := range ev.Replies {
			if err := ws.WriteJSON(reply); err != nil {
				return nil
			}
		}

		if ev.Close {
			msg := gorillawebsocket.FormatCloseMessage(ev.CloseCode, ev.CloseReason)
			_ = ws.WriteMessage(gorillawebsocket.CloseMessage, msg)

			if ev.Transcript != "" && h.sink != nil {
				// Transcript content is never logged, only its size.
				log.Info().
					Str("session_id", session.ID()).
					Int("transcript_len", len(ev.Transcript)).
					Msg("transcription session finished")
				h.sink.SessionFinished(session.ID(), ev.Transcript)
			}
			return nil
		}
	}
}
