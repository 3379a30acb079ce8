package transcription

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

// State is the session lifecycle state.
type State int

const (
	AwaitingInit State = iota
	Active
	Closed
)

const (
	// fragmentWindowMs is the fixed span of each synthesized partial
	// fragment. Placeholder for a streaming decoder; the ordering and
	// validation contract is independent of it.
	fragmentWindowMs = 800

	// minFinalEndMs is the floor for the final segment's end timestamp.
	minFinalEndMs = 1500
)

// Session is the per-connection state machine. It holds no transport
// references: callers feed it raw messages and act on the returned Event.
// Each session is exclusively owned by its connection's goroutine, so no
// locking is needed.
type Session struct {
	id        string
	audio     AudioInfo
	state     State
	lastSeq   int64
	cursorMs  int64
	fragments []string
}

// Event is the outcome of handling one client message.
type Event struct {
	// Replies are outbound messages to send, in order.
	Replies []interface{}
	// Close instructs the transport to close after sending Replies.
	Close       bool
	CloseCode   int
	CloseReason string
	// Transcript is the consolidated transcript, set only on the normal
	// end-of-session path.
	Transcript string
}

func NewSession() *Session {
	return &Session{state: AwaitingInit, lastSeq: -1}
}

func (s *Session) ID() string   { return s.id }
func (s *Session) State() State { return s.state }

// Handle processes one raw client message and advances the state machine.
func (s *Session) Handle(raw []byte) Event {
	switch s.state {
	case AwaitingInit:
		return s.handleInit(raw)
	case Active:
		return s.handleActive(raw)
	default:
		return Event{}
	}
}

// handleInit accepts only a well-formed init message; anything else is fatal.
func (s *Session) handleInit(raw []byte) Event {
	var init clientInit
	if err := json.Unmarshal(raw, &init); err != nil || init.Type != "init" ||
		init.SessionID == "" || init.Audio == nil || init.Audio.validate() != nil {
		s.state = Closed
		return Event{
			Replies:     []interface{}{newProtocolError("Invalid init", CodeBadInit)},
			Close:       true,
			CloseCode:   websocket.ClosePolicyViolation,
			CloseReason: "Invalid init",
		}
	}

	s.id = init.SessionID
	s.audio = *init.Audio
	s.state = Active
	return Event{}
}

func (s *Session) handleActive(raw []byte) Event {
	kind, err := messageType(raw)
	if err != nil {
		return errReply("Unknown message type", CodeBadType)
	}

	switch kind {
	case "audio":
		return s.handleAudio(raw)
	case "end":
		return s.handleEnd(raw)
	default:
		return errReply("Unknown message type", CodeBadType)
	}
}

func (s *Session) handleAudio(raw []byte) Event {
	var audio clientAudio
	if err := json.Unmarshal(raw, &audio); err != nil || audio.Seq == nil || audio.Data == "" {
		return errReply("Invalid audio", CodeBadAudio)
	}

	seq := *audio.Seq
	if seq <= s.lastSeq {
		return errReply("Seq out of order", CodeSeqOrder)
	}
	s.lastSeq = seq

	// Every second accepted chunk synthesizes a partial fragment spanning a
	// fixed window. A real decoder replaces this; the seq/cursor contract
	// must survive the substitution.
	if seq%2 != 0 {
		return Event{}
	}

	text := "chunk " + strconv.FormatInt(seq, 10) + " received"
	startMs := s.cursorMs
	endMs := startMs + fragmentWindowMs
	s.cursorMs = endMs
	s.fragments = append(s.fragments, text)

	return Event{Replies: []interface{}{
		newTranscriptChunk("t-"+strconv.FormatInt(seq, 10), text, startMs, endMs),
	}}
}

func (s *Session) handleEnd(raw []byte) Event {
	var end struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &end); err != nil || end.Type != "end" {
		return errReply("Invalid end", CodeBadEnd)
	}

	finalText := strings.Join(s.fragments, " ")
	endMs := s.cursorMs
	if endMs < minFinalEndMs {
		endMs = minFinalEndMs
	}

	s.state = Closed
	return Event{
		Replies: []interface{}{
			newFinal([]FinalSegment{{Text: finalText, StartMs: 0, EndMs: endMs}}),
		},
		Close:       true,
		CloseCode:   websocket.CloseNormalClosure,
		CloseReason: "End of session",
		Transcript:  finalText,
	}
}

func errReply(message, code string) Event {
	return Event{Replies: []interface{}{newProtocolError(message, code)}}
}
