// Package llm talks to the external analysis providers. It builds the
// fact-check prompts, sends them to OpenAI-compatible, Anthropic, Gemini or
// Ollama endpoints behind a circuit breaker, and parses the JSON answers into
// a normalized types.AnalysisResult.
package llm

import (
	"fmt"
	"strings"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// Sampling parameters shared by every analysis request.
const (
	AnalysisTemperature = 0.3
	AnalysisMaxTokens   = 1500
)

// Context limits applied when embedding conversation history in a prompt.
const (
	promptContextMessages = 3
	promptContextChars    = 100
)

// SystemPrompt frames every analysis request.
const SystemPrompt = "You are an expert fact-checker and misinformation analyst. " +
	"Provide accurate, well-reasoned analysis based on scientific consensus, " +
	"reliable sources, and logical reasoning. Always respond in valid JSON format."

// StrictJSONInstructions is appended for providers that like to wrap JSON in markdown.
const StrictJSONInstructions = `

CRITICAL INSTRUCTIONS:
- Respond ONLY with a valid JSON object
- Do NOT include any markdown formatting (no code fences)
- Do NOT include any explanations before or after the JSON
- Start your response directly with { and end with }`

func categoryList() string {
	names := make([]string, len(types.ValidCategories))
	for i, c := range types.ValidCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// CommunityAnalysisPrompt asks for a full analysis of statement, including
// urgency and spread risk, with the last few context messages embedded.
func CommunityAnalysisPrompt(statement string, window types.ContextWindow, communityID string) string {
	var ctxBlock strings.Builder
	if len(window) > 0 {
		ctxBlock.WriteString("\nRecent conversation context:\n")
		start := len(window) - promptContextMessages
		if start < 0 {
			start = 0
		}
		for _, m := range window[start:] {
			author := m.Author
			if author == "" {
				author = "User"
			}
			fmt.Fprintf(&ctxBlock, "- %s: %s...\n", author, types.Truncate(m.Content, promptContextChars))
		}
	}
	if communityID == "" {
		communityID = "Unknown"
	}

	return fmt.Sprintf(`Analyze the following statement for misinformation with community context awareness.

Statement: %q
%s
Community ID: %s

Consider:
1. The statement's factual accuracy
2. Potential for community harm or division
3. Likelihood of viral spread in chat communities
4. Conversation context and relevance
5. Urgency of intervention needed
6. Common misinformation patterns in online communities

Respond with a single JSON object:
{
  "truthiness_percentage": <integer 0-100>,
  "confidence": <float 0-1>,
  "reasoning": "<detailed contextual analysis>",
  "category": "<%s>",
  "urgency_level": "<low, medium, high, or critical>",
  "spread_risk": "<low, medium, or high>",
  "key_concerns": ["<concern>", "..."]
}

Be especially vigilant for health misinformation that could cause harm,
political misinformation that increases polarization, conspiracy theories,
false claims exploiting current events, and claims contradicting scientific consensus.`,
		statement, ctxBlock.String(), communityID, categoryList())
}

// RatingPrompt asks only for a truthiness rating. It is the degraded path
// used when the full analysis is unavailable, and the on-demand check command.
func RatingPrompt(statement string) string {
	return fmt.Sprintf(`Rate the truthiness of the following statement as a percentage from 0-100.

Statement: %q

Respond with a single JSON object:
{
  "truthiness_percentage": <integer 0-100>,
  "confidence": <float 0-1>,
  "reasoning": "<why you gave this rating>",
  "category": "<%s>",
  "key_factors": ["<factor>", "..."],
  "evidence_quality": "<Strong, Moderate, Weak, or Insufficient>"
}

Consider scientific consensus, logical consistency, source reliability,
historical context, and potential bias. Be precise with the percentage.`,
		statement, categoryList())
}

// NewAnalysisRequest wraps a prompt with the shared system prompt and sampling settings.
func NewAnalysisRequest(prompt string) Request {
	return Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: AnalysisTemperature,
		MaxTokens:   AnalysisMaxTokens,
	}
}
