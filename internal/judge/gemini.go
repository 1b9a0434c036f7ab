package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"securedoc/internal/config"
	"securedoc/internal/model"
)

// generator abstracts the raw text-generation call so failures can be
// injected in tests.
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Gemini is the judgment-service adapter backed by Google Gemini.
// The policy is enforced by the model; the adapter enforces the reply
// contract: closed verdict vocabulary, fail-open on any failure.
type Gemini struct {
	gen           generator
	warnThreshold int
	timeout       time.Duration
	log           *zap.Logger
}

var _ Judge = (*Gemini)(nil)

// NewGemini builds the adapter and its underlying API client. The returned
// closer releases the client connection.
func NewGemini(ctx context.Context, cfg config.JudgeConfig, sec config.SecurityConfig, log *zap.Logger) (*Gemini, func() error, error) {
	if cfg.APIKey == "" {
		return nil, nil, errors.New("judge: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, nil, fmt.Errorf("judge: create client: %w", err)
	}
	g := &Gemini{
		gen:           &geminiGenerator{model: client.GenerativeModel(cfg.Model)},
		warnThreshold: sec.WarnThreshold,
		timeout:       cfg.Timeout,
		log:           log,
	}
	return g, client.Close, nil
}

// Judge sends the complete event log plus the attempt counter and
// normalizes the reply. An empty log short-circuits to SAFE without
// touching the remote service.
func (g *Gemini) Judge(ctx context.Context, events []string, attempt int) Judgment {
	if len(events) == 0 {
		return safe()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.gen.generate(ctx, g.prompt(events, attempt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			g.log.Warn("judge quota exceeded, skipping check", zap.Int("attempt", attempt))
		} else {
			g.log.Warn("judge unavailable, failing open", zap.Error(err), zap.Int("attempt", attempt))
		}
		return safe()
	}

	var reply Judgment
	if err := json.Unmarshal([]byte(stripFences(text)), &reply); err != nil {
		g.log.Warn("judge reply unparseable, failing open", zap.Error(err), zap.String("reply", text))
		return safe()
	}
	verdict, ok := model.ParseVerdict(string(reply.Verdict))
	if !ok {
		g.log.Warn("judge verdict outside vocabulary, failing open", zap.String("verdict", string(reply.Verdict)))
		return safe()
	}
	return Judgment{Verdict: verdict, Reason: reply.Reason}
}

// prompt interpolates the locally-owned policy thresholds so the policy is
// configuration, not prose re-derived from a third-party prompt.
func (g *Gemini) prompt(events []string, attempt int) string {
	actions, _ := json.Marshal(events)
	return fmt.Sprintf(`You are a security AI watching a protected document viewing session.
Context: Attempt %d. Actions: %s
Rules:
1. "Window Focus Lost", "Blur" -> IGNORE (Return "SAFE").
2. "Right Click" -> If Attempt <= %d Return "WARNING", else "TERMINATE".
3. "PrintScreen", "Capture", "Snipping" -> ALWAYS "TERMINATE".

Return JSON: { "verdict": "TERMINATE" or "WARNING" or "SAFE", "reason": "Message" }`,
		attempt, actions, g.warnThreshold)
}

// stripFences removes incidental markdown code fences around the reply.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
