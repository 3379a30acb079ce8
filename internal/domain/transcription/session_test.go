package transcription

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gorilla/websocket"
)

func validInit() []byte {
	return []byte(`{"type":"init","sessionId":"s-1","audio":{"codec":"opus","sampleRateHz":16000,"channels":1}}`)
}

func audioMsg(seq int64) []byte {
	return []byte(fmt.Sprintf(`{"type":"audio","seq":%d,"data":"AAAA"}`, seq))
}

func activeSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	ev := s.Handle(validInit())
	if len(ev.Replies) != 0 || ev.Close {
		t.Fatalf("valid init should produce no replies, got %+v", ev)
	}
	if s.State() != Active {
		t.Fatalf("expected Active state, got %v", s.State())
	}
	return s
}

func errCode(t *testing.T, ev Event) string {
	t.Helper()
	if len(ev.Replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(ev.Replies))
	}
	perr, ok := ev.Replies[0].(ProtocolError)
	if !ok {
		t.Fatalf("expected ProtocolError, got %T", ev.Replies[0])
	}
	return perr.Code
}

func TestSession_InvalidInitIsFatal(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"wrong type", `{"type":"audio","seq":0,"data":"AA"}`},
		{"missing session id", `{"type":"init","audio":{"codec":"opus","sampleRateHz":16000,"channels":1}}`},
		{"missing audio", `{"type":"init","sessionId":"s-1"}`},
		{"bad codec", `{"type":"init","sessionId":"s-1","audio":{"codec":"mp3","sampleRateHz":16000,"channels":1}}`},
		{"bad sample rate", `{"type":"init","sessionId":"s-1","audio":{"codec":"opus","sampleRateHz":44100,"channels":1}}`},
		{"stereo", `{"type":"init","sessionId":"s-1","audio":{"codec":"opus","sampleRateHz":16000,"channels":2}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession()
			ev := s.Handle([]byte(tc.raw))
			if code := errCode(t, ev); code != CodeBadInit {
				t.Errorf("expected BAD_INIT, got %s", code)
			}
			if !ev.Close || ev.CloseCode != websocket.ClosePolicyViolation {
				t.Errorf("expected policy-violation close, got %+v", ev)
			}
			if s.State() != Closed {
				t.Errorf("expected Closed state, got %v", s.State())
			}
		})
	}
}

func TestSession_ClosedSessionIgnoresMessages(t *testing.T) {
	s := NewSession()
	s.Handle([]byte(`not an init`))
	ev := s.Handle(audioMsg(0))
	if len(ev.Replies) != 0 || ev.Close {
		t.Errorf("closed session must not react, got %+v", ev)
	}
}

func TestSession_UnknownTypeNonFatal(t *testing.T) {
	s := activeSession(t)
	ev := s.Handle([]byte(`{"type":"ping"}`))
	if code := errCode(t, ev); code != CodeBadType {
		t.Errorf("expected BAD_TYPE, got %s", code)
	}
	if s.State() != Active {
		t.Errorf("session must stay Active after BAD_TYPE")
	}
}

func TestSession_UndecodableMessageNonFatal(t *testing.T) {
	s := activeSession(t)
	ev := s.Handle([]byte(`{{{`))
	if code := errCode(t, ev); code != CodeBadType {
		t.Errorf("expected BAD_TYPE, got %s", code)
	}
	if s.State() != Active {
		t.Errorf("session must stay Active")
	}
}

func TestSession_MalformedAudioDropsChunk(t *testing.T) {
	s := activeSession(t)
	cases := []string{
		`{"type":"audio","data":"AAAA"}`,
		`{"type":"audio","seq":0}`,
	}
	for _, raw := range cases {
		ev := s.Handle([]byte(raw))
		if code := errCode(t, ev); code != CodeBadAudio {
			t.Errorf("expected BAD_AUDIO for %s, got %s", raw, code)
		}
	}
	// The dropped chunks must not have consumed seq 0.
	ev := s.Handle(audioMsg(0))
	if len(ev.Replies) != 1 {
		t.Fatalf("seq 0 should still be accepted, got %+v", ev)
	}
}

func TestSession_SeqOrderViolation(t *testing.T) {
	s := activeSession(t)

	ev := s.Handle(audioMsg(0))
	chunk, ok := ev.Replies[0].(TranscriptChunk)
	if !ok {
		t.Fatalf("expected TranscriptChunk, got %T", ev.Replies[0])
	}
	if chunk.EndMs != 800 {
		t.Fatalf("expected cursor at 800, got %d", chunk.EndMs)
	}

	ev = s.Handle(audioMsg(0))
	if code := errCode(t, ev); code != CodeSeqOrder {
		t.Errorf("expected SEQ_ORDER, got %s", code)
	}

	// Cursor must not have advanced: next accepted even chunk starts at 800.
	ev = s.Handle(audioMsg(2))
	chunk = ev.Replies[0].(TranscriptChunk)
	if chunk.StartMs != 800 || chunk.EndMs != 1600 {
		t.Errorf("cursor advanced on rejected chunk: got [%d,%d]", chunk.StartMs, chunk.EndMs)
	}
}

func TestSession_OddSeqAcceptedSilently(t *testing.T) {
	s := activeSession(t)
	ev := s.Handle(audioMsg(1))
	if len(ev.Replies) != 0 {
		t.Errorf("odd seq should produce no fragment, got %+v", ev.Replies)
	}
	// seq 1 was accepted, so seq 1 again is out of order.
	ev = s.Handle(audioMsg(1))
	if code := errCode(t, ev); code != CodeSeqOrder {
		t.Errorf("expected SEQ_ORDER, got %s", code)
	}
}

func TestSession_TranscriptChunkShape(t *testing.T) {
	s := activeSession(t)
	ev := s.Handle(audioMsg(0))
	chunk := ev.Replies[0].(TranscriptChunk)
	if chunk.ID != "t-0" || chunk.Text != "chunk 0 received" || !chunk.Partial {
		t.Errorf("unexpected chunk: %+v", chunk)
	}
	if chunk.StartMs != 0 || chunk.EndMs != 800 {
		t.Errorf("unexpected window: [%d,%d]", chunk.StartMs, chunk.EndMs)
	}
}

func TestSession_EndJoinsFragments(t *testing.T) {
	s := activeSession(t)
	s.Handle(audioMsg(0))
	s.Handle(audioMsg(2))

	ev := s.Handle([]byte(`{"type":"end"}`))
	if !ev.Close || ev.CloseCode != websocket.CloseNormalClosure {
		t.Fatalf("expected normal closure, got %+v", ev)
	}
	final, ok := ev.Replies[0].(Final)
	if !ok {
		t.Fatalf("expected Final, got %T", ev.Replies[0])
	}
	if len(final.Segments) != 1 {
		t.Fatalf("expected one segment, got %d", len(final.Segments))
	}
	seg := final.Segments[0]
	want := "chunk 0 received chunk 2 received"
	if seg.Text != want {
		t.Errorf("got %q, want %q", seg.Text, want)
	}
	if seg.StartMs != 0 || seg.EndMs != 1600 {
		t.Errorf("expected [0,1600], got [%d,%d]", seg.StartMs, seg.EndMs)
	}
	if ev.Transcript != want {
		t.Errorf("event transcript %q, want %q", ev.Transcript, want)
	}
	if s.State() != Closed {
		t.Errorf("expected Closed state")
	}
}

func TestSession_EndWithNoFragmentsFloorsAt1500(t *testing.T) {
	s := activeSession(t)
	ev := s.Handle([]byte(`{"type":"end"}`))
	final := ev.Replies[0].(Final)
	seg := final.Segments[0]
	if seg.Text != "" {
		t.Errorf("expected empty transcript, got %q", seg.Text)
	}
	if seg.EndMs != 1500 {
		t.Errorf("expected endMs floor 1500, got %d", seg.EndMs)
	}
}

func TestSession_ServerMessagesMarshal(t *testing.T) {
	s := activeSession(t)
	ev := s.Handle(audioMsg(0))
	raw, err := json.Marshal(ev.Replies[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "transcript" {
		t.Errorf("expected type transcript, got %v", decoded["type"])
	}
	if decoded["partial"] != true {
		t.Errorf("expected partial true")
	}
}
