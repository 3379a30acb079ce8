// Package transcription implements the streaming transcription session
// protocol: a per-connection state machine that validates inbound messages,
// enforces sequence ordering, and emits partial and final transcripts.
package transcription

import (
	"encoding/json"
	"fmt"
)

// Protocol error codes.
const (
	CodeBadInit  = "BAD_INIT"
	CodeBadAudio = "BAD_AUDIO"
	CodeBadEnd   = "BAD_END"
	CodeBadType  = "BAD_TYPE"
	CodeSeqOrder = "SEQ_ORDER"
)

// AudioInfo is the audio format negotiated at session start, immutable
// thereafter.
type AudioInfo struct {
	Codec        string `json:"codec"`
	SampleRateHz int    `json:"sampleRateHz"`
	Channels     int    `json:"channels"`
}

func (a *AudioInfo) validate() error {
	if a.Codec != "opus" && a.Codec != "pcm16" {
		return fmt.Errorf("codec must be opus or pcm16")
	}
	if a.SampleRateHz != 16000 && a.SampleRateHz != 48000 {
		return fmt.Errorf("sample rate must be 16000 or 48000")
	}
	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1")
	}
	return nil
}

// Client messages.

type clientInit struct {
	Type      string     `json:"type"`
	SessionID string     `json:"sessionId"`
	Audio     *AudioInfo `json:"audio"`
}

type clientAudio struct {
	Type string `json:"type"`
	Seq  *int64 `json:"seq"`
	Data string `json:"data"`
}

// Server messages.

// TranscriptChunk is a partial transcript emitted while the session is live.
type TranscriptChunk struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Text    string `json:"text"`
	Partial bool   `json:"partial"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// FinalSegment is one span of the consolidated end-of-session transcript.
type FinalSegment struct {
	Text    string `json:"text"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// Final carries the consolidated transcript, emitted exactly once.
type Final struct {
	Type     string         `json:"type"`
	Segments []FinalSegment `json:"segments"`
}

// ProtocolError is a server-side error reply. Only BAD_INIT is fatal.
type ProtocolError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func newTranscriptChunk(id, text string, startMs, endMs int64) TranscriptChunk {
	return TranscriptChunk{Type: "transcript", ID: id, Text: text, Partial: true, StartMs: startMs, EndMs: endMs}
}

func newFinal(segments []FinalSegment) Final {
	return Final{Type: "final", Segments: segments}
}

func newProtocolError(message, code string) ProtocolError {
	return ProtocolError{Type: "error", Message: message, Code: code}
}

// messageType peeks at the type discriminator of a raw client message.
func messageType(raw []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}
