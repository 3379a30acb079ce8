package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, srv *httptest.Server, attempts int) *Client {
	t.Helper()
	return New(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Model:       "test-model",
		Timeout:     2 * time.Second,
		MaxAttempts: attempts,
		Logger:      zerolog.Nop(),
	})
}

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

const validNoteJSON = `{"subjective":"Sore throat for 3 days","objective":"Temp 38.2C","assessment":"Strep pharyngitis","plan":"Amoxicillin 500mg TID"}`

func TestExtractNote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		fmt.Fprint(w, chatResponse(validNoteJSON))
	}))
	defer srv.Close()

	note, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "patient reports sore throat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Assessment != "Strep pharyngitis" {
		t.Errorf("unexpected assessment: %s", note.Assessment)
	}
	if note.Model != "test-model" {
		t.Errorf("expected model metadata, got %s", note.Model)
	}
}

func TestExtractNote_EmptyTranscriptReturnsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("service should not be called for empty transcript")
	}))
	defer srv.Close()

	note, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "   \n\t ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, section := range []string{note.Subjective, note.Objective, note.Assessment, note.Plan} {
		if section != "Not provided" {
			t.Errorf("expected placeholder section, got %q", section)
		}
	}
}

func TestExtractNote_RateLimitShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "transcript")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single attempt, got %d", n)
	}
}

func TestExtractNote_OverloadShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "transcript")
	if !errors.Is(err, ErrOverloaded) {
		t.Fatalf("expected ErrOverloaded, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single attempt, got %d", n)
	}
}

func TestExtractNote_TimeoutShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(Config{
		APIKey:      "k",
		BaseURL:     srv.URL,
		Model:       "m",
		Timeout:     50 * time.Millisecond,
		MaxAttempts: 3,
		Logger:      zerolog.Nop(),
	})

	_, err := c.ExtractNote(context.Background(), "transcript")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExtractNote_RetriesMalformedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, chatResponse("this is not JSON at all"))
			return
		}
		fmt.Fprint(w, chatResponse(validNoteJSON))
	}))
	defer srv.Close()

	note, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Plan != "Amoxicillin 500mg TID" {
		t.Errorf("unexpected plan: %s", note.Plan)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestExtractNote_MissingSectionRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, chatResponse(`{"subjective":"s","objective":"o","assessment":"a","plan":""}`))
			return
		}
		fmt.Fprint(w, chatResponse(validNoteJSON))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "transcript"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestExtractNote_FencedJSONAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("```json\n"+validNoteJSON+"\n```"))
	}))
	defer srv.Close()

	note, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Subjective != "Sore throat for 3 days" {
		t.Errorf("unexpected subjective: %s", note.Subjective)
	}
}

func TestExtractNote_ExhaustionReturnsErrExtraction(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, chatResponse("still not JSON"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).ExtractNote(context.Background(), "transcript")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestExtractNote_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(t, srv, 3).ExtractNote(ctx, "transcript")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractMedications_NormalizesOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse(`{"meds":[" Amoxicillin ","azithromycin","AMOXICILLIN",""]}`))
	}))
	defer srv.Close()

	meds := newTestClient(t, srv, 3).ExtractMedications(context.Background(), "start amoxicillin and azithromycin")
	want := []string{"amoxicillin", "azithromycin"}
	if !reflect.DeepEqual(meds, want) {
		t.Errorf("got %v, want %v", meds, want)
	}
}

func TestExtractMedications_FailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if meds := newTestClient(t, srv, 3).ExtractMedications(context.Background(), "some plan"); len(meds) != 0 {
		t.Errorf("expected empty result on failure, got %v", meds)
	}
}

func TestExtractMedications_EmptyInputSkipsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("service should not be called for empty plan text")
	}))
	defer srv.Close()

	if meds := newTestClient(t, srv, 3).ExtractMedications(context.Background(), "  "); meds != nil {
		t.Errorf("expected nil, got %v", meds)
	}
}

func TestExplainFindings_ParsesRecommendations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse(`{"recommendations":[{"findingId":"abx-penicillin-cross-reactivity","reason":"cross-reactivity risk","alternatives":["azithromycin","doxycycline"]}]}`))
	}))
	defer srv.Close()

	recs := newTestClient(t, srv, 3).ExplainFindings(context.Background(), []Finding{
		{ID: "abx-penicillin-cross-reactivity", Title: "Penicillin cross-reactivity", Severity: "high"},
	})
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].FindingID != "abx-penicillin-cross-reactivity" {
		t.Errorf("unexpected finding id: %s", recs[0].FindingID)
	}
	if len(recs[0].Alternatives) != 2 {
		t.Errorf("unexpected alternatives: %v", recs[0].Alternatives)
	}
}

func TestExplainFindings_FailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("no json here"))
	}))
	defer srv.Close()

	recs := newTestClient(t, srv, 3).ExplainFindings(context.Background(), []Finding{{ID: "f1"}})
	if len(recs) != 0 {
		t.Errorf("expected empty result, got %v", recs)
	}
}

func TestExplainFindings_NoFindingsSkipsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("service should not be called with zero findings")
	}))
	defer srv.Close()

	if recs := newTestClient(t, srv, 3).ExplainFindings(context.Background(), nil); recs != nil {
		t.Errorf("expected nil, got %v", recs)
	}
}

func TestStripFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripFence(tc.in); got != tc.want {
			t.Errorf("stripFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
