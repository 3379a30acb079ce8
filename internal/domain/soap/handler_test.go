package soap

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinscribe/clinscribe/internal/platform/reasoner"
)

func postExtract(t *testing.T, ext NoteExtractor, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/soap/extract", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHandler(NewService(nil, ext, zerolog.Nop()))
	return rec, h.Extract(c)
}

func TestExtractHandler_Success(t *testing.T) {
	rec, err := postExtract(t, &stubExtractor{note: validNote()},
		fmt.Sprintf(`{"transcript":%q}`, validTranscript))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Strep pharyngitis") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestExtractHandler_ValidationError(t *testing.T) {
	_, err := postExtract(t, &stubExtractor{note: validNote()}, `{"transcript":"short"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestExtractHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{reasoner.ErrTimeout, http.StatusGatewayTimeout},
		{reasoner.ErrRateLimited, http.StatusTooManyRequests},
		{reasoner.ErrOverloaded, http.StatusBadGateway},
		{reasoner.ErrExtraction, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec, err := postExtract(t, &stubExtractor{err: tc.err},
			fmt.Sprintf(`{"transcript":%q}`, validTranscript))
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != tc.want {
			t.Errorf("for %v expected %d, got %v", tc.err, tc.want, err)
		}
		if tc.err == reasoner.ErrRateLimited && rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header on rate limit")
		}
	}
}
