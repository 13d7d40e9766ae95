// Package ai talks to the Gemini generation API to produce structured code
// reviews.
//
// The contract is deliberately small: one prompt in, one JSON object out with
// exactly three keys (bugs, style, explanation). The model is ASKED to emit
// bare JSON but not trusted to — replies regularly arrive wrapped in markdown
// code fences, so parsing is a two-stage pipeline: normalize the text, then
// decode it. A reply that survives neither stage is a first-class error
// (apperror.ErrMalformedResponse), never a silently empty analysis.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"codewhisperer/internal/apperror"
	"codewhisperer/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

// Reviewer produces a structured analysis of a code snippet. userContext is
// the author's stated intent and may be empty.
type Reviewer interface {
	Review(ctx context.Context, codeContent, language, userContext string) (*model.Analysis, error)
}

// GeminiClient calls the Gemini generateContent endpoint.
//
// Each review is a single non-streaming request with thinking disabled (the
// fastest and cheapest mode). There is no retry: an upstream failure surfaces
// to the caller as apperror.ErrUpstream after exactly one attempt.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithBaseURL overrides the API base URL. Used by tests to point the client
// at an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *GeminiClient) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// NewGeminiClient creates a client for the given API key.
//
// No request timeout is configured beyond the HTTP client's default; a
// hanging upstream call holds the request open until the server's write
// timeout fires.
func NewGeminiClient(apiKey string, logger *slog.Logger, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateContent request/response wire types — only the fields we use.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ThinkingConfig thinkingConfig `json:"thinkingConfig"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Review sends the snippet to Gemini and parses the reply into an Analysis.
func (c *GeminiClient) Review(ctx context.Context, codeContent, language, userContext string) (*model.Analysis, error) {
	prompt := buildPrompt(codeContent, language, userContext)

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			// Budget 0 disables thinking entirely.
			ThinkingConfig: thinkingConfig{ThinkingBudget: 0},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ai: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("ai: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("AI provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("gemini returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
		)
		return nil, apperror.Upstream(
			fmt.Sprintf("AI provider returned status %d", resp.StatusCode),
			fmt.Errorf("ai: status %d", resp.StatusCode),
		)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, apperror.Upstream("could not read AI provider response", err)
	}

	text := firstCandidateText(genResp)
	if text == "" {
		return nil, apperror.MalformedAIResponse("AI reply contained no text")
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		c.logger.Error("failed to parse AI reply as JSON",
			slog.String("error", err.Error()),
			slog.Int("replyLength", len(text)),
		)
		return nil, apperror.MalformedAIResponse("AI reply was not valid JSON")
	}

	return analysis, nil
}

func firstCandidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// buildPrompt assembles the reviewer instruction. The model is told to return
// a bare JSON object with exactly the three expected keys; when the author
// supplied context, the prompt instructs the model to weigh that stated
// intent heavily in the bugs and explanation findings.
func buildPrompt(codeContent, language, userContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert code reviewer. Your task is to analyze the following %s code snippet.\n", language)
	b.WriteString(`Provide your analysis in a structured JSON object with three distinct keys: "bugs", "style", and "explanation".
- "bugs": Identify potential bugs, errors, or security vulnerabilities. If none, say "No apparent bugs found.".
- "style": Suggest improvements for code style, naming conventions, and readability. If code is perfect, say "Excellent style.".
- "explanation": Briefly explain what the code does in simple terms.
`)

	if userContext != "" {
		fmt.Fprintf(&b, `
The author describes the intent of this code as follows:
%s

Weigh this stated intent heavily in the "bugs" and "explanation" findings: flag places where the code does not do what the author intends, and explain the code relative to that intent.
`, userContext)
	} else {
		b.WriteString("\nNo author context was provided; analyze the code on its own terms.\n")
	}

	fmt.Fprintf(&b, "\nHere is the code:\n```%s\n%s\n```\n", language, codeContent)
	b.WriteString("\nYour response MUST be a valid JSON object. Do not include any text before or after the JSON object.")

	return b.String()
}

// parseAnalysis is the normalize-then-decode pipeline: strip a wrapping
// markdown fence if present, then unmarshal into the three-field struct.
func parseAnalysis(text string) (*model.Analysis, error) {
	cleaned := stripCodeFence(text)

	var a model.Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// stripCodeFence removes a leading ```json (or bare ```) line and a trailing
// ``` line if the reply arrived fenced.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		// Drop everything up to and including the first newline, which
		// swallows the fence marker and any language tag after it.
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
