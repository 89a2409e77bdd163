package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// flexFloat accepts a JSON number or a numeric string such as "75" or "75%".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("not a finite number: %q", s)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// analysisResponse is the wire shape shared by the community and rating prompts.
type analysisResponse struct {
	TruthinessPercentage *flexFloat `json:"truthiness_percentage"`
	Confidence           *flexFloat `json:"confidence"`
	Reasoning            string     `json:"reasoning"`
	Category             string     `json:"category"`
	UrgencyLevel         string     `json:"urgency_level"`
	SpreadRisk           string     `json:"spread_risk"`
}

// extractJSON extracts the first JSON object from a string that may contain
// markdown fences or prose around it.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // let the decoder fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		// Only count braces outside of strings
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // unbalanced, let the decoder fail
}

// ParseAnalysis parses a provider's raw answer into a normalized result.
//
// The answer must contain a JSON object with at least one of
// truthiness_percentage or confidence. A missing truthiness defaults to
// types.DefaultTruthinessPercent and a missing confidence to
// types.DefaultConfidence. Anything else wraps ErrMalformedResponse.
func ParseAnalysis(raw string) (*types.AnalysisResult, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.TruthinessPercentage == nil && resp.Confidence == nil {
		return nil, fmt.Errorf("%w: neither truthiness_percentage nor confidence present", ErrMalformedResponse)
	}

	result := &types.AnalysisResult{
		TruthinessPercent: types.DefaultTruthinessPercent,
		Confidence:        types.DefaultConfidence,
		Reasoning:         strings.TrimSpace(resp.Reasoning),
		Category:          types.Category(resp.Category),
		Urgency:           types.Urgency(resp.UrgencyLevel),
		SpreadRisk:        types.SpreadRisk(resp.SpreadRisk),
	}
	if resp.TruthinessPercentage != nil {
		result.TruthinessPercent = float64(*resp.TruthinessPercentage)
	}
	if resp.Confidence != nil {
		result.Confidence = float64(*resp.Confidence)
	}
	result.Normalize()
	return result, nil
}
