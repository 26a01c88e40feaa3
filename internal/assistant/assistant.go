// Package assistant routes health questions to a tier-specific expert
// prompt, calls the hosted model once, and applies the safety guard to the
// reply. A turn always yields a storable reply, even when the model is down.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/carebridge/carebridge/internal/platform/llm"
	"github.com/carebridge/carebridge/pkg/textutil"
)

const (
	// MaxHistoryTurns bounds how many prior turns are sent to the model.
	MaxHistoryTurns = 10
	// MaxDocumentChars bounds the document text inlined into the user turn.
	MaxDocumentChars = 8000

	chatTemperature = 0.3
	chatMaxTokens   = 4096
	chatTopP        = 0.9
)

// Turn is one prior conversation message. Role is user, assistant or model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is the input to a chat turn.
type TurnRequest struct {
	Query           string
	Role            string
	DocumentContext string
	History         []Turn
}

// TurnResult is the outcome of a chat turn.
type TurnResult struct {
	Reply       string
	Category    Category
	Tier        AudienceTier
	HasDocument bool
	Model       string
	TokensUsed  int
	LatencyMS   int64
	Flags       []string
	// Degraded is set when the reply is the fixed fallback.
	Degraded bool
}

// Options configures model names and the per-call timeout.
type Options struct {
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// Service orchestrates chat turns. It is safe for concurrent use.
type Service struct {
	completer Completer
	router    *Router
	guard     *Guard
	opts      Options
	logger    zerolog.Logger
}

func NewService(completer Completer, router *Router, guard *Guard, opts Options, logger zerolog.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	return &Service{
		completer: completer,
		router:    router,
		guard:     guard,
		opts:      opts,
		logger:    logger,
	}
}

// Chat runs one conversational turn. Upstream failures are absorbed into a
// fallback reply; Chat never returns an error.
func (s *Service) Chat(ctx context.Context, req TurnRequest) TurnResult {
	start := time.Now()

	tier := ResolveTier(req.Role)
	hasDocument := strings.TrimSpace(req.DocumentContext) != ""
	verdict := s.guard.CheckInput(req.Query)
	decision := s.router.Route(req.Query, tier, hasDocument)
	systemPrompt := AugmentPrompt(decision.Prompt, tier, hasDocument)

	messages := make([]llm.Message, 0, MaxHistoryTurns+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, historyMessages(req.History)...)
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: userContent(req.Query, req.DocumentContext, hasDocument, !verdict.Safe && tier == TierPatient),
	})

	result := TurnResult{
		Category:    decision.Category,
		Tier:        tier,
		HasDocument: hasDocument,
		Model:       s.opts.Model,
		Flags:       verdict.Flags,
	}

	resp, err := s.complete(ctx, llm.Request{
		Model:       s.opts.Model,
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		TopP:        chatTopP,
	})
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		s.logger.Error().Err(err).
			Str("category", string(result.Category)).
			Str("tier", tier.String()).
			Bool("has_document", hasDocument).
			Int64("latency_ms", result.LatencyMS).
			Msg("chat completion failed, returning fallback reply")
		result.Reply = withDisclaimer(fallbackReply, s.guard.Disclaimer())
		result.Degraded = true
		return result
	}

	result.Reply = s.guard.Sanitize(resp.Content, tier)
	result.TokensUsed = resp.TotalTokens
	if resp.Model != "" {
		result.Model = resp.Model
	}

	s.logger.Info().
		Str("category", string(result.Category)).
		Str("tier", tier.String()).
		Bool("has_document", hasDocument).
		Bool("diagnosis_seeking", !verdict.Safe).
		Int("tokens", result.TokensUsed).
		Int64("latency_ms", result.LatencyMS).
		Msg("chat turn completed")

	return result
}

func (s *Service) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if s.completer == nil {
		return nil, llm.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.completer.Complete(ctx, req)
}

// historyMessages keeps the most recent turns and normalises roles.
func historyMessages(history []Turn) []llm.Message {
	recent := lo.Subset(history, -MaxHistoryTurns, MaxHistoryTurns)
	return lo.Map(recent, func(t Turn, _ int) llm.Message {
		role := t.Role
		switch role {
		case "model":
			role = "assistant"
		case "":
			role = "user"
		}
		return llm.Message{Role: role, Content: t.Content}
	})
}

func userContent(query, document string, hasDocument, addNote bool) string {
	content := query
	if hasDocument {
		var b strings.Builder
		b.WriteString("Here is the medical document content:\n\n---BEGIN DOCUMENT---\n")
		b.WriteString(textutil.Truncate(document, MaxDocumentChars))
		b.WriteString("\n---END DOCUMENT---\n\nUser's question: ")
		b.WriteString(query)
		b.WriteString("\n\nPlease answer based on the document content above.")
		content = b.String()
	}
	if addNote {
		content += clarifyingNote
	}
	return content
}
