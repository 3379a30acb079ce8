// Package reasoner wraps the external text-reasoning service used for note
// extraction, medication extraction, and finding rationale. It owns retry,
// timeout classification, and strict output validation; it never originates
// or alters a safety finding.
package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultConcurrency = 8
)

// Note is a four-section clinical note as returned by the reasoning service.
// All four sections are required and non-empty after validation.
type Note struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`

	// Extraction metadata, advisory only.
	Model        string   `json:"model,omitempty"`
	ProcessingMS int64    `json:"processing_ms,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// Finding is the reasoner-side view of a deterministic safety finding. It is
// input only: recommendations reference findings by ID and never modify them.
type Finding struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

// Recommendation is model-generated rationale for one finding, keyed by the
// finding's ID. It lives in a separate table and is never merged into the
// finding itself.
type Recommendation struct {
	FindingID    string   `json:"findingId"`
	Reason       string   `json:"reason"`
	Alternatives []string `json:"alternatives"`
}

// Config holds the settings for a reasoning-service client.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxAttempts   int
	MaxConcurrent int64
	HTTPClient    *http.Client
	Logger        zerolog.Logger
}

// Client calls the reasoning service's chat-completions endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	timeout     time.Duration
	maxAttempts int
	client      *http.Client
	sem         *semaphore.Weighted
	logger      zerolog.Logger
}

// New creates a Client. Zero values in cfg fall back to defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultConcurrency
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		client:      httpClient,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:      cfg.Logger,
	}
}

const noteSystemPrompt = `You are a SOAP (subjective, objective, assessment, plan) note extractor. ` +
	`You will be given a transcript of a session between a patient and a doctor. ` +
	`Extract the SOAP note from the transcript. Only output JSON matching ` +
	`{"subjective": "...", "objective": "...", "assessment": "...", "plan": "..."}. No prose.`

const medsSystemPrompt = `You are a clinical assistant. Task: extract antibiotic GENERIC names present in the provided text. ` +
	`Output ONLY JSON: {"meds":[lowercase generic antibiotic names]}. No prose. No markdown. If none, return {"meds":[]}.`

const explainSystemPrompt = `Explain antibiotic safety findings and propose safe alternatives. JSON only. ` +
	`Return: {"recommendations":[{"findingId":"...","reason":"...","alternatives":["..."]}]}`

// ExtractNote structures a transcript into a four-section clinical note.
// A whitespace-only transcript yields a placeholder note without calling the
// service. Transient upstream failures surface as ErrTimeout, ErrRateLimited,
// or ErrOverloaded without retry; malformed responses are retried up to the
// attempt budget and then reported as ErrExtraction.
func (c *Client) ExtractNote(ctx context.Context, transcript string) (*Note, error) {
	if strings.TrimSpace(transcript) == "" {
		return placeholderNote(), nil
	}

	userPrompt := fmt.Sprintf("Transcript:\n%s\n\nProduce strictly {\"subjective\": \"...\", \"objective\": \"...\", \"assessment\": \"...\", \"plan\": \"...\"}", transcript)

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := c.chat(ctx, noteSystemPrompt, userPrompt)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		note, err := parseNote(content)
		if err != nil {
			c.logger.Warn().Int("attempt", attempt).Err(err).Msg("malformed note response")
			lastErr = err
			continue
		}

		note.Model = c.model
		note.ProcessingMS = time.Since(start).Milliseconds()
		return note, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExtraction, c.maxAttempts, lastErr)
}

// ExtractMedications pulls medication generic names out of plan text. It is
// best-effort: any failure returns an empty list, never an error, because the
// result only augments the caller's medication list and is never
// authoritative. Output is lower-cased, trimmed, de-duplicated, and sorted.
func (c *Client) ExtractMedications(ctx context.Context, planText string) []string {
	if strings.TrimSpace(planText) == "" {
		return nil
	}

	userPrompt := fmt.Sprintf("Plan text:\n%s\n\nReturn strictly this JSON object: {\"meds\": [\"...\"]}", planText)
	content, err := c.chat(ctx, medsSystemPrompt, userPrompt)
	if err != nil {
		c.logger.Warn().Err(err).Msg("medication extraction failed")
		return nil
	}

	var parsed struct {
		Meds []string `json:"meds"`
	}
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		c.logger.Warn().Err(err).Msg("medication extraction returned malformed JSON")
		return nil
	}

	return normalizeMeds(parsed.Meds)
}

// ExplainFindings asks the service for rationale and alternatives for the
// given deterministic findings. Best-effort: failures return an empty list.
// Callers must not invoke it with zero findings.
func (c *Client) ExplainFindings(ctx context.Context, findings []Finding) []Recommendation {
	if len(findings) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string][]Finding{"findings": findings})
	if err != nil {
		return nil
	}

	content, err := c.chat(ctx, explainSystemPrompt, fmt.Sprintf("Findings JSON:\n%s", payload))
	if err != nil {
		c.logger.Warn().Err(err).Msg("recommendation generation failed")
		return nil
	}

	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		c.logger.Warn().Err(err).Msg("recommendation response malformed")
		return nil
	}

	return parsed.Recommendations
}

// chat issues one chat-completions request and returns the assistant message
// content. Transport timeouts, 429s, and 5xx responses are classified into
// the package's sentinel errors; everything else is a plain (retryable) error.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return "", ctx.Err()
		}
		if isTimeout(err) || callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("reasoner request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read reasoner response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", ErrOverloaded, resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("reasoner API error: %s (%s)", resp.Status, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode reasoner response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("reasoner returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// isFatal reports whether the error should short-circuit the retry loop.
func isFatal(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrOverloaded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// parseNote validates content against the four-required-field note schema.
// If the raw response is wrapped in a code fence, one layer is stripped
// before a second validation attempt.
func parseNote(content string) (*Note, error) {
	note, err := decodeNote(content)
	if err == nil {
		return note, nil
	}

	stripped := stripFence(content)
	if stripped != content {
		if note, err2 := decodeNote(stripped); err2 == nil {
			return note, nil
		}
	}
	return nil, err
}

func decodeNote(content string) (*Note, error) {
	var note Note
	if err := json.Unmarshal([]byte(content), &note); err != nil {
		return nil, fmt.Errorf("invalid note JSON: %w", err)
	}
	for name, section := range map[string]string{
		"subjective": note.Subjective,
		"objective":  note.Objective,
		"assessment": note.Assessment,
		"plan":       note.Plan,
	} {
		if strings.TrimSpace(section) == "" {
			return nil, fmt.Errorf("note is missing required section %q", name)
		}
	}
	return &note, nil
}

// stripFence removes one layer of markdown code fencing ("```json ... ```").
func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func normalizeMeds(meds []string) []string {
	seen := make(map[string]struct{}, len(meds))
	out := make([]string, 0, len(meds))
	for _, m := range meds {
		norm := strings.ToLower(strings.TrimSpace(m))
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return out
}

func placeholderNote() *Note {
	return &Note{
		Subjective: "Not provided",
		Objective:  "Not provided",
		Assessment: "Not provided",
		Plan:       "Not provided",
	}
}
