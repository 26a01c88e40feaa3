package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/carebridge/carebridge/internal/platform/llm"
)

const (
	visionTemperature = 0.3
	visionMaxTokens   = 2048
)

// AnalyzeImage asks the vision model to describe an image without diagnosing.
// The reply is always treated as patient-facing.
func (s *Service) AnalyzeImage(ctx context.Context, data []byte, mimeType, query string) TurnResult {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		query = defaultImageQuery
	}
	result := TurnResult{
		Category: CategoryRadiology,
		Tier:     TierPatient,
		Model:    s.opts.VisionModel,
	}

	resp, err := s.complete(ctx, llm.Request{
		Model: s.opts.VisionModel,
		Messages: []llm.Message{
			{Role: "system", Content: visionPrompt},
			{Role: "user", Parts: []llm.ContentPart{llm.TextPart(query), llm.ImagePart(mimeType, data)}},
		},
		Temperature: visionTemperature,
		MaxTokens:   visionMaxTokens,
	})
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		s.logger.Error().Err(err).
			Str("mime_type", mimeType).
			Int("image_bytes", len(data)).
			Msg("image analysis failed")
		result.Reply = withDisclaimer(imageFailureReply, s.guard.Disclaimer())
		result.Degraded = true
		return result
	}

	result.Reply = s.guard.Sanitize(resp.Content, TierPatient)
	result.TokensUsed = resp.TotalTokens
	return result
}
