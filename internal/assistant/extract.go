package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/carebridge/carebridge/internal/platform/llm"
	"github.com/carebridge/carebridge/pkg/textutil"
)

const (
	maxExtractionChars    = 4000
	extractionTemperature = 0.1
)

// HealthRecord is one structured value pulled from a document.
type HealthRecord struct {
	RecordType         string   `json:"record_type"`
	Name               string   `json:"name"`
	Value              string   `json:"value,omitempty"`
	Unit               string   `json:"unit,omitempty"`
	ReferenceRangeLow  *float64 `json:"reference_range_low"`
	ReferenceRangeHigh *float64 `json:"reference_range_high"`
	IsAbnormal         bool     `json:"is_abnormal"`
	EffectiveDate      string   `json:"effective_date,omitempty"`
}

// ExtractHealthData asks the model for a JSON array of records found in
// ocrText. Any failure yields an empty, non-nil slice.
func (s *Service) ExtractHealthData(ctx context.Context, ocrText string) []HealthRecord {
	records := []HealthRecord{}
	if strings.TrimSpace(ocrText) == "" {
		return records
	}

	resp, err := s.complete(ctx, llm.Request{
		Model: s.opts.Model,
		Messages: []llm.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(extractionPrompt, textutil.Truncate(ocrText, maxExtractionChars))},
		},
		Temperature: extractionTemperature,
		MaxTokens:   chatMaxTokens,
		TopP:        chatTopP,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("health data extraction failed")
		return records
	}

	parsed, err := parseHealthRecords(resp.Content)
	if err != nil {
		s.logger.Warn().Err(err).Int("reply_chars", textutil.Len(resp.Content)).Msg("health data extraction returned unparseable reply")
		return records
	}

	s.logger.Info().Int("records", len(parsed)).Msg("health data extracted")
	return parsed
}

// parseHealthRecords decodes the slice between the first '[' and the last ']'.
func parseHealthRecords(reply string) ([]HealthRecord, error) {
	text := strings.TrimSpace(reply)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	return lo.FilterMap(raw, func(m map[string]any, _ int) (HealthRecord, bool) {
		rec := HealthRecord{
			RecordType:         looseString(m["record_type"]),
			Name:               looseString(m["name"]),
			Value:              looseString(m["value"]),
			Unit:               looseString(m["unit"]),
			ReferenceRangeLow:  looseFloat(m["reference_range_low"]),
			ReferenceRangeHigh: looseFloat(m["reference_range_high"]),
			IsAbnormal:         looseBool(m["is_abnormal"]),
			EffectiveDate:      looseString(m["effective_date"]),
		}
		return rec, rec.Name != ""
	}), nil
}

func looseString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func looseFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func looseBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	default:
		return false
	}
}
