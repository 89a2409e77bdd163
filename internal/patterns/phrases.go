package patterns

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// MaxKeyPhrases caps the phrases taken from one message.
const MaxKeyPhrases = 5

// minTokenLen is the shortest token kept; shorter ones carry no signal.
const minTokenLen = 4

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// ExtractKeyPhrases lowercases text, drops stop words and tokens of three
// characters or fewer, and returns contiguous bigrams and trigrams in
// position order (bigram then trigram at each index), capped at MaxKeyPhrases.
// Leading and trailing punctuation is trimmed from each token.
func ExtractKeyPhrases(text string) []types.KeyPhrase {
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, unicode.IsPunct)
		if _, stop := stopWords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) < minTokenLen {
			continue
		}
		tokens = append(tokens, w)
	}

	var phrases []types.KeyPhrase
	for i := range tokens {
		if i+1 < len(tokens) {
			phrases = append(phrases, types.KeyPhrase(fmt.Sprintf("%s %s", tokens[i], tokens[i+1])))
		}
		if i+2 < len(tokens) {
			phrases = append(phrases, types.KeyPhrase(fmt.Sprintf("%s %s %s", tokens[i], tokens[i+1], tokens[i+2])))
		}
		if len(phrases) >= MaxKeyPhrases {
			return phrases[:MaxKeyPhrases]
		}
	}
	return phrases
}
