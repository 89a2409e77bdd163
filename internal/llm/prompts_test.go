package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

func TestCommunityAnalysisPrompt(t *testing.T) {
	window := types.ContextWindow{
		{Author: "ann", Content: "first message that should not appear"},
		{Author: "bob", Content: "second message that should not appear"},
		{Author: "cat", Content: "third message in the prompt"},
		{Author: "", Content: "fourth message in the prompt"},
		{Author: "eve", Content: strings.Repeat("z", 150)},
	}

	prompt := CommunityAnalysisPrompt("vaccines contain microchips", window, "guild-1")

	assert.Contains(t, prompt, `"vaccines contain microchips"`)
	assert.Contains(t, prompt, "Community ID: guild-1")
	assert.NotContains(t, prompt, "first message")
	assert.NotContains(t, prompt, "second message")
	assert.Contains(t, prompt, "- cat: third message in the prompt...")
	assert.Contains(t, prompt, "- User: fourth message in the prompt...")
	assert.Contains(t, prompt, "- eve: "+strings.Repeat("z", 100)+"...")
	assert.NotContains(t, prompt, strings.Repeat("z", 101))
	assert.Contains(t, prompt, "urgency_level")
	assert.Contains(t, prompt, "spread_risk")
}

func TestCommunityAnalysisPrompt_NoContext(t *testing.T) {
	prompt := CommunityAnalysisPrompt("claim", nil, "")
	assert.NotContains(t, prompt, "Recent conversation context")
	assert.Contains(t, prompt, "Community ID: Unknown")
}

func TestRatingPrompt(t *testing.T) {
	prompt := RatingPrompt("the earth is flat")
	assert.Contains(t, prompt, `"the earth is flat"`)
	assert.Contains(t, prompt, "truthiness_percentage")
	assert.NotContains(t, prompt, "urgency_level")

	req := NewAnalysisRequest(prompt)
	assert.Equal(t, SystemPrompt, req.System)
	assert.Equal(t, AnalysisTemperature, req.Temperature)
}
